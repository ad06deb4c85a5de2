// Package api serves the dataset operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/logger"
	"github.com/dateja/sqlitedb/internal/metrics"
	"github.com/dateja/sqlitedb/internal/usecase"
)

// Options configures a Server.
type Options struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
}

// Server is the HTTP front of a Dataset.
type Server struct {
	echo    *echo.Echo
	dataset *usecase.Dataset
	log     *zap.Logger
}

// New builds the echo instance with middleware and routes.
func New(dataset *usecase.Dataset, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, dataset: dataset, log: log}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:        uuid.NewString,
		RequestIDHandler: s.attachLogger,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:     true,
		LogURI:        true,
		LogStatus:     true,
		LogLatency:    true,
		LogError:      true,
		HandleError:   true,
		LogValuesFunc: s.logRequest,
	}))
	if opts.Metrics != nil {
		e.Use(opts.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}
	e.Use(middleware.CORS())

	e.GET("/", s.root)
	e.GET("/health", s.health)

	var uploadLimit []echo.MiddlewareFunc
	if opts.MaxUploadBytes > 0 {
		uploadLimit = append(uploadLimit, middleware.BodyLimit(fmt.Sprintf("%dB", opts.MaxUploadBytes)))
	}
	e.POST("/upload-file", s.uploadFile, uploadLimit...)
	e.POST("/execute-query", s.executeQuery)
	e.GET("/get-schema/:uuid", s.getSchema)
	e.GET("/get-schemas", s.getSchemas)
	e.POST("/merge", s.merge)
	e.GET("/get-file-dataframe/:uuid", s.getFileDataframe)
	e.GET("/download_cleaned_data/:uuid", s.downloadCleanedData)
	e.GET("/get-file-metadata/:uuid", s.getFileMetadata)
	e.GET("/get-uploads-dir", s.getUploadsDir)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for at most shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) attachLogger(c echo.Context, requestID string) {
	log := s.log.With(zap.String("request_id", requestID))
	c.Set(logger.EchoKey, log)
	req := c.Request()
	c.SetRequest(req.WithContext(logger.WithContext(req.Context(), log)))
}

func (s *Server) logRequest(c echo.Context, v middleware.RequestLoggerValues) error {
	log := logger.FromEcho(c, s.log)
	fields := []zap.Field{
		zap.String("method", v.Method),
		zap.String("uri", v.URI),
		zap.Int("status", v.Status),
		zap.Duration("latency", v.Latency),
	}
	if v.Error != nil {
		log.Warn("request failed", append(fields, zap.Error(v.Error))...)
		return nil
	}
	log.Info("request", fields...)
	return nil
}
