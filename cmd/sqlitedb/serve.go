package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/api"
	"github.com/dateja/sqlitedb/internal/metrics"
	"github.com/dateja/sqlitedb/internal/usecase"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := metrics.New("sqlitedb")
			a, err := openApp(usecase.WithRecorder(m))
			if err != nil {
				return err
			}
			defer a.Close()

			if port == "" {
				port = a.cfg.Server.Port
			}
			a.log.Info("starting sqlitedb", a.cfg.LogFields()...)

			server := api.New(a.dataset, api.Options{
				Logger:         a.log,
				Metrics:        m,
				MaxUploadBytes: a.cfg.Storage.MaxUploadBytes,
			})

			ctx, stop := signal.NotifyContext(a.context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := server.Run(ctx, ":"+port, a.cfg.Server.ShutdownTimeout); err != nil {
				a.log.Error("server stopped", zap.Error(err))
				return err
			}
			a.log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (default $SERVER_PORT or 8000)")

	return cmd
}
