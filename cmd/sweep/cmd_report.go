package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inventory-sweep-lab/internal/app"
	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/idhash"
	"inventory-sweep-lab/internal/observability"
	"inventory-sweep-lab/internal/pipeline"
	"inventory-sweep-lab/internal/reporting"
)

var (
	reportOutputDir string
	runsLimit       int
)

var reportCmd = &cobra.Command{
	Use:   "report RUN_ID",
	Short: "Rebuild REPORT.md and the CSVs of a stored run",
	Long: `Load a run and its summary rows from PostgreSQL, recompute the survivors and
the Pareto front with the run's threshold and write the report files.

Failure details are not persisted, so rebuilt reports list none.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !idhash.IsRunID(args[0]) {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output-dir") {
			cfg.OutputDir = reportOutputDir
		}

		ctx := cmd.Context()
		stores, err := openPersistentStores(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		report, err := reporting.NewGenerator(stores.Runs, stores.Rows).Generate(ctx, args[0])
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return err
		}
		files := map[string]string{
			pipeline.ResultsFile:    reporting.RenderResultCSV(report.InSample),
			pipeline.OOSResultsFile: reporting.RenderResultCSV(report.OutOfSample),
			pipeline.ParetoFile:     reporting.RenderParetoCSV(report.Front),
			pipeline.ReportFile:     reporting.RenderMarkdown(report),
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(cfg.OutputDir, name), []byte(content), 0644); err != nil {
				return err
			}
		}
		observability.DefaultMetrics.RecordReport()
		logger.Info().Str("run_id", report.RunID).Str("dir", cfg.OutputDir).Msg("report rebuilt")
		fmt.Fprintf(cmd.OutOrStdout(), "Report for %s written to %s/\n", report.RunID, cfg.OutputDir)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		stores, err := openPersistentStores(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		runs, err := stores.Runs.List(ctx, runsLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTARTED\tSTATUS\tGRID\tSURVIVORS\tFRONT\tFAILED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				r.RunID, time.UnixMilli(r.StartedAt).UTC().Format(time.RFC3339),
				r.Status, r.GridSize, r.Survivors, r.FrontSize, r.Failures)
		}
		return w.Flush()
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOutputDir, "output-dir", "", "Output directory (defaults to the config's)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (0 = all)")
}

// openPersistentStores opens PostgreSQL; stored runs do not outlive an
// in-memory backend.
func openPersistentStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app.Stores, error) {
	if cfg.Storage.PostgresDSN == "" {
		return nil, fmt.Errorf("%s is required to read stored runs", config.EnvPostgresDSN)
	}
	cfg.Storage.Backend = config.BackendPostgres
	cfg.Storage.ClickhouseDSN = ""
	return app.OpenStores(ctx, cfg.Storage, observability.DefaultMetrics, logger)
}
