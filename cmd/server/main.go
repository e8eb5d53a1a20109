// Package main provides the sweep server:
// - POST /runs starts a two-phase experiment in the background
// - GET /runs, /runs/{id}, /runs/{id}/report read the run registry
// - GET /ws/progress streams per-row progress over websocket
// - GET /metrics exposes Prometheus metrics
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"inventory-sweep-lab/internal/app"
	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/logging"
	"inventory-sweep-lab/internal/observability"
	"inventory-sweep-lab/internal/progress"
)

var (
	configPath      string
	envFile         string
	addr            string
	useMemory       bool
	runOnStart      bool
	shutdownTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Serve experiment runs, progress streaming and metrics over HTTP",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML experiment config (defaults when empty)")
	f.StringVar(&envFile, "env-file", ".env", "Env file with POSTGRES_DSN / CLICKHOUSE_DSN")
	f.StringVar(&addr, "addr", ":9090", "HTTP listen address")
	f.BoolVar(&useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL")
	f.BoolVar(&runOnStart, "run-on-start", false, "Start one experiment immediately")
	f.DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Graceful shutdown limit")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if useMemory {
		cfg.Storage.Backend = config.BackendMemory
	}
	// Servers log JSON unless configured otherwise.
	if configPath == "" && os.Getenv(config.EnvLogFormat) == "" {
		cfg.Log.Format = "json"
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stores, err := app.OpenStores(ctx, cfg.Storage, observability.DefaultMetrics, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	hub := progress.NewHub(nil, &logger)
	srv := NewServer(ctx, cfg, stores, observability.DefaultMetrics, hub, logger)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(observability.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("backend", stores.Backend).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if runOnStart {
		if _, err := srv.Start(cfg); err != nil {
			logger.Error().Err(err).Msg("initial run not started")
		}
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}

	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		return fmt.Errorf("experiment did not stop within %s", shutdownTimeout)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
