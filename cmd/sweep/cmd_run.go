package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"inventory-sweep-lab/internal/app"
	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/observability"
	"inventory-sweep-lab/internal/pipeline"
)

var (
	runOutputDir     string
	runThreshold     float64
	runParallelism   int
	runMetric        string
	runFailurePolicy string
	runUseMemory     bool
	runPostgresDSN   string
	runClickhouseDSN string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the in-sample sweep, significance filter and out-of-sample validation",
	Long: `Run Phase 1 over the in-sample seeds, keep parameter sets with |t| >= threshold,
run Phase 2 over the out-of-sample seeds and write results.csv, oos_result.csv,
pareto_oos.csv and REPORT.md to the output directory.

Flags override the config file, which overrides the environment defaults.`,
	Args: cobra.NoArgs,
	RunE: runExperiment,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOutputDir, "output-dir", "", "Output directory for CSVs and REPORT.md")
	f.Float64Var(&runThreshold, "threshold", 0, "Minimum |t| for a parameter set to survive Phase 1")
	f.IntVar(&runParallelism, "parallelism", 0, "Concurrent trials (0 = GOMAXPROCS)")
	f.StringVar(&runMetric, "metric", "", "Significance metric: controlled_pnl, risk_adjusted")
	f.StringVar(&runFailurePolicy, "failure-policy", "", "On trial failure: skip, abort")
	f.BoolVar(&runUseMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL")
	f.StringVar(&runPostgresDSN, "postgres-dsn", "", "PostgreSQL connection string (overrides POSTGRES_DSN)")
	f.StringVar(&runClickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string (overrides CLICKHOUSE_DSN)")
}

// applyRunFlags copies explicitly set flags onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("output-dir") {
		cfg.OutputDir = runOutputDir
	}
	if f.Changed("threshold") {
		cfg.Threshold = runThreshold
	}
	if f.Changed("parallelism") {
		cfg.Parallelism = runParallelism
	}
	if f.Changed("metric") {
		cfg.Metric = runMetric
	}
	if f.Changed("failure-policy") {
		cfg.FailurePolicy = runFailurePolicy
	}
	if f.Changed("postgres-dsn") {
		cfg.Storage.PostgresDSN = runPostgresDSN
		cfg.Storage.Backend = config.BackendPostgres
	}
	if f.Changed("clickhouse-dsn") {
		cfg.Storage.ClickhouseDSN = runClickhouseDSN
	}
	if runUseMemory {
		cfg.Storage.Backend = config.BackendMemory
	}
}

func runExperiment(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	stores, err := app.OpenStores(ctx, cfg.Storage, observability.DefaultMetrics, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	exp, err := app.NewExperiment(cfg, app.Deps{
		Stores:  stores,
		Metrics: observability.DefaultMetrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	exp.WithReplayCommand(replayCommand(cfg))

	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s\n", res.RunID, res.Status)
	fmt.Fprintf(out, "  Phase 1 rows: %d (failed: %d)\n", res.InSample.Len(), len(res.InSample.Failures))
	fmt.Fprintf(out, "  Significant survivors: %d\n", res.Survivors.Len())
	if res.Phase2Skipped {
		fmt.Fprintln(out, "  Phase 2 skipped: no significant parameter set")
	} else {
		fmt.Fprintf(out, "  Phase 2 rows: %d (failed: %d)\n", res.OutOfSample.Len(), len(res.OutOfSample.Failures))
	}
	fmt.Fprintf(out, "  Pareto front: %d points\n", len(res.Front))
	for _, name := range []string{pipeline.ResultsFile, pipeline.OOSResultsFile, pipeline.ParetoFile, pipeline.ReportFile} {
		fmt.Fprintf(out, "  - %s\n", filepath.Join(cfg.OutputDir, name))
	}
	return nil
}

// replayCommand returns the invocation that reproduces this run.
func replayCommand(cfg config.Config) string {
	parts := []string{"sweep run"}
	if configPath != "" {
		parts = append(parts, "--config "+configPath)
	}
	parts = append(parts,
		fmt.Sprintf("--threshold %g", cfg.Threshold),
		"--metric "+cfg.Metric,
		"--failure-policy "+cfg.FailurePolicy,
	)
	return strings.Join(parts, " ")
}
