package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/internal/api"
	"github.com/asima2006/Grocery-Cart-Automater/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	logger := observability.GetLogger()
	defer observability.Sync()

	components, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Shutdown()

	handler := api.NewHandler(logger, components.Orchestrator)
	router := api.NewRouter(logger, handler)
	server := api.NewServer(cfg.Server, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	// Stop accepting requests before tearing down the browser pool so
	// in-flight automation phases can finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	return nil
}
