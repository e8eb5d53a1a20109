package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"inventory-sweep-lab/internal/idhash"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the expanded parameter grid in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		grid := cfg.Grid.Expand()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tKEY\tK\tALPHA\tHTH\tHSZ")
		for i, p := range grid {
			fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%g\t%g\n", i, idhash.ShortParamsKey(p, 8), p.K, p.Alpha, p.HTh, p.HSz)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d parameter sets x %d in-sample seeds = %d trials\n",
			len(grid), len(cfg.Seeds.InSample.Range()), len(grid)*len(cfg.Seeds.InSample.Range()))
		return nil
	},
}
