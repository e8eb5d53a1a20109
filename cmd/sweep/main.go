// Package main provides the sweep command-line tool: run the two-phase
// experiment, print the parameter grid and rebuild reports of stored runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/logging"
)

var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Parameter sweep, significance filter and Pareto front for inventory control",
	Long: `Search a grid of inventory-control parameters (k, alpha, hth, hsz) by seeded
simulation, keep the statistically significant parameter sets, re-validate
them on disjoint out-of-sample seeds and extract the risk/reward Pareto front.

Examples:
  sweep run --config sweep.yaml
  sweep run --use-memory --threshold 2.5 --parallelism 8
  sweep grid --config sweep.yaml
  sweep report 2b0c5b4e-... --output-dir out`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML experiment config (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file with POSTGRES_DSN / CLICKHOUSE_DSN")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override: console, json")

	rootCmd.AddCommand(runCmd, gridCmd, reportCmd, runsCmd, verifyCmd)
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

// loadConfig reads the env file and the config, then applies the global
// flag overrides and builds the logger.
func loadConfig() (config.Config, zerolog.Logger, error) {
	if err := config.LoadEnv(envFile); err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, logger, nil
}
