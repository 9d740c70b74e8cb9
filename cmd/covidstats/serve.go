package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/httpadapter"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves health, metrics, and snapshot files while scraping every REFRESH_INTERVAL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup := buildPipeline()
		defer cleanup()

		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		srv.ServeFiles("data", cfg.OutputDir)
		if cfg.ChartsEnabled {
			srv.ServeFiles("charts", cfg.ChartDir)
		}

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()

		// Run errors are logged by the pipeline; the server keeps reporting
		// not-ready until a run succeeds.
		schedule := func(ctx context.Context) error {
			return p.Schedule(ctx, cfg.RefreshInterval, clockwork.NewRealClock(), nil)
		}
		serveUntilDone(cmd.Context(), schedule, srv.Shutdown, cfg.ShutdownTimeout, logger)
		return nil
	},
}

// serveUntilDone starts run, blocks until ctx is cancelled, shuts the server
// down, then waits for run to return before handing back to the caller. The
// wait is bounded by timeout. It reports whether run returned in time.
func serveUntilDone(
	ctx context.Context,
	run func(context.Context) error,
	shutdown func(context.Context) error,
	timeout time.Duration,
	logger *slog.Logger,
) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := run(ctx); err != nil {
			logger.Warn("scheduled run failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Loaders such as the Kafka writer are closed after this returns, so an
	// in-flight run has to finish first.
	select {
	case <-done:
		logger.Info("shutdown complete")
		return true
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run still in progress at shutdown deadline")
		return false
	}
}
