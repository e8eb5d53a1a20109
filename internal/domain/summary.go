package domain

// SummaryRow aggregates the trials of one parameter set over a seed range.
type SummaryRow struct {
	Params            ParameterSet
	MeanInvVol        float64
	MeanControlledPnL float64
	StdControlledPnL  float64 // sample standard deviation (n-1)
	NSeeds            int

	// TStat is mean / (std / sqrt(n)) of the significance metric sample.
	// When TStatDefined is false (n == 1 or zero dispersion) TStat is NaN.
	TStat        float64
	TStatDefined bool
}

// ResultTable holds one row per successfully evaluated parameter set in grid
// order, plus the parameter sets that failed.
type ResultTable struct {
	Rows     []SummaryRow
	Failures []TrialFailure
}

// Len returns the number of rows.
func (t *ResultTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Params returns the parameter sets of all rows, in row order.
func (t *ResultTable) Params() Grid {
	if t == nil {
		return nil
	}
	grid := make(Grid, len(t.Rows))
	for i, r := range t.Rows {
		grid[i] = r.Params
	}
	return grid
}

// Phase identifies which half of the validation split produced a table.
type Phase string

const (
	PhaseInSample    Phase = "in_sample"
	PhaseOutOfSample Phase = "out_of_sample"
)
