package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/config"
	"github.com/dateja/sqlitedb/internal/database"
	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/logger"
	"github.com/dateja/sqlitedb/internal/services"
	"github.com/dateja/sqlitedb/internal/usecase"
)

// app is everything a command needs, opened from the environment.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	dbCtx   *database.Context
	dataset *usecase.Dataset
}

func openApp(opts ...usecase.Option) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	dbCtx, err := database.CreateDatabase(cfg.Storage.MetadataDBPath)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	opts = append([]usecase.Option{
		usecase.WithMetadata(services.NewFileService(dbCtx)),
		usecase.WithSampleRows(cfg.Storage.SampleRows),
	}, opts...)
	store := filesystem.NewStore(cfg.Storage.UploadDir)

	return &app{
		cfg:     cfg,
		log:     log,
		dbCtx:   dbCtx,
		dataset: usecase.NewDataset(store, opts...),
	}, nil
}

// context carries the app logger so domain packages log through it.
func (a *app) context(parent context.Context) context.Context {
	return logger.WithContext(parent, a.log)
}

func (a *app) Close() {
	_ = database.CloseDatabase(a.dbCtx)
	_ = a.log.Sync()
}
