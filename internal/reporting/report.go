package reporting

import (
	"time"

	"inventory-sweep-lab/internal/domain"
)

// Report is the outcome of one two-phase experiment.
type Report struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time
	Status      string
	Metric      string
	Threshold   float64

	// Sizes
	GridSize       int
	InSampleSeeds  int
	OutSampleSeeds int

	// Phase 1 table, the rows passing the filter, Phase 2 table
	InSample    *domain.ResultTable
	Survivors   *domain.ResultTable
	OutOfSample *domain.ResultTable

	// Out-of-sample Pareto front, ordered by ascending risk
	Front []domain.ParetoPoint

	// Phase2Skipped is set when no parameter set survived Phase 1.
	Phase2Skipped bool

	Reproducibility ReproducibilityMetadata
}

// FailureCount returns the failed parameter sets across both phases.
func (r *Report) FailureCount() int {
	n := 0
	if r.InSample != nil {
		n += len(r.InSample.Failures)
	}
	if r.OutOfSample != nil {
		n += len(r.OutOfSample.Failures)
	}
	return n
}
