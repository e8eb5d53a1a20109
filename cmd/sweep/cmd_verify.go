package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/metrics"
	"inventory-sweep-lab/internal/simulation"
	"inventory-sweep-lab/internal/sweep"
	"inventory-sweep-lab/internal/verification"
)

var verifyPhase string

var verifyCmd = &cobra.Command{
	Use:   "verify RUN_ID",
	Short: "Re-simulate a stored run phase and check its rows reproduce",
	Long: `Re-run the parameter sets stored for one phase of a run with the seeds and
market of the current config and the run's recorded significance metric, then
compare every summary row within 1e-7.

Use the config the run was produced with; other seeds or markets diverge.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		phase := domain.Phase(verifyPhase)
		var seeds domain.SeedRange
		switch phase {
		case domain.PhaseInSample:
			seeds = cfg.Seeds.InSample.Range()
		case domain.PhaseOutOfSample:
			seeds = cfg.Seeds.OutOfSample.Range()
		default:
			return fmt.Errorf("unknown phase %q (want %s or %s)", verifyPhase, domain.PhaseInSample, domain.PhaseOutOfSample)
		}

		oracle := simulation.NewInventorySimulator(cfg.Market)
		newEngine := func(metric metrics.SignificanceMetric) (*sweep.Engine, error) {
			return sweep.New(sweep.Options{
				Oracle:        oracle,
				Metric:        metric,
				Parallelism:   cfg.Parallelism,
				FailurePolicy: sweep.SkipFailed,
				Logger:        &logger,
			})
		}

		ctx := cmd.Context()
		stores, err := openPersistentStores(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		report, err := verification.NewVerifier(stores.Runs, stores.Rows, newEngine).VerifyPhase(ctx, args[0], phase, seeds)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s %s: %d/%d rows reproduced\n", report.RunID, report.Phase, report.MatchedRows, report.TotalRows)
		for _, r := range report.Results {
			if r.Match {
				continue
			}
			if r.Failure != "" {
				fmt.Fprintf(out, "  %s: replay failed: %s\n", r.Params, r.Failure)
				continue
			}
			for _, d := range r.Divergences {
				fmt.Fprintf(out, "  %s: %s stored=%v replayed=%v\n", r.Params, d.Field, d.Expected, d.Actual)
			}
		}
		if !report.AllMatch() {
			return fmt.Errorf("%d rows diverged", report.DivergentRows)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPhase, "phase", string(domain.PhaseInSample), "Phase to verify: in_sample, out_of_sample")
}
