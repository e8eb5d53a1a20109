// Package verification re-runs stored sweeps and checks that the stored
// summary rows are reproduced by the same seeds.
package verification

import (
	"context"
	"errors"
	"fmt"
	"math"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/metrics"
	"inventory-sweep-lab/internal/storage"
	"inventory-sweep-lab/internal/sweep"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// ErrNoStoredRows is returned when a run phase has nothing to verify.
var ErrNoStoredRows = errors.New("no stored rows to verify")

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// RowResult is the verification outcome of one stored row.
type RowResult struct {
	Params      domain.ParameterSet
	Match       bool
	Divergences []FieldDivergence
	Failure     string // set when the replay of this parameter set failed
}

// Report contains results for one phase of a run.
type Report struct {
	RunID         string
	Phase         domain.Phase
	TotalRows     int
	MatchedRows   int
	DivergentRows int
	Results       []RowResult
}

// AllMatch reports whether every stored row was reproduced.
func (r *Report) AllMatch() bool {
	return r.TotalRows > 0 && r.MatchedRows == r.TotalRows
}

// EngineFactory builds the replay engine for the significance metric a run
// was produced with.
type EngineFactory func(metric metrics.SignificanceMetric) (*sweep.Engine, error)

// Verifier replays stored rows through a sweep engine.
type Verifier struct {
	runs      storage.RunStore
	rows      storage.SummaryRowStore
	newEngine EngineFactory
}

// NewVerifier creates a verifier. newEngine must use the oracle the run was
// produced with; the metric is taken from the run registry.
func NewVerifier(runs storage.RunStore, rows storage.SummaryRowStore, newEngine EngineFactory) *Verifier {
	return &Verifier{runs: runs, rows: rows, newEngine: newEngine}
}

// VerifyPhase re-sweeps the parameter sets stored for (runID, phase) over
// seeds with the run's recorded metric and compares every row.
func (v *Verifier) VerifyPhase(ctx context.Context, runID string, phase domain.Phase, seeds domain.SeedRange) (*Report, error) {
	run, err := v.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	metric, err := metrics.ParseSignificanceMetric(run.Metric)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	stored, err := v.rows.GetByRun(ctx, runID, phase)
	if err != nil {
		return nil, fmt.Errorf("load %s rows: %w", phase, err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: run %s phase %s", ErrNoStoredRows, runID, phase)
	}

	engine, err := v.newEngine(metric)
	if err != nil {
		return nil, err
	}
	grid := (&domain.ResultTable{Rows: stored}).Params()
	replayed, err := engine.Sweep(ctx, grid, seeds)
	if err != nil && !errors.Is(err, sweep.ErrPartialFailure) {
		return nil, fmt.Errorf("replay %s sweep: %w", phase, err)
	}

	byParams := make(map[domain.ParameterSet]domain.SummaryRow, replayed.Len())
	for _, r := range replayed.Rows {
		byParams[r.Params] = r
	}
	failures := make(map[domain.ParameterSet]string, len(replayed.Failures))
	for _, f := range replayed.Failures {
		failures[f.Params] = f.Reason
	}

	report := &Report{RunID: runID, Phase: phase, TotalRows: len(stored)}
	for _, s := range stored {
		res := RowResult{Params: s.Params}
		if r, ok := byParams[s.Params]; ok {
			res.Divergences = CompareRows(s, r)
		} else {
			res.Failure = failures[s.Params]
		}
		res.Match = res.Failure == "" && len(res.Divergences) == 0
		if res.Match {
			report.MatchedRows++
		} else {
			report.DivergentRows++
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// CompareRows compares two summary rows and returns divergences.
// Uses FloatTolerance for float64 comparisons; two undefined t-statistics
// are equal.
func CompareRows(stored, replayed domain.SummaryRow) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.Params != replayed.Params {
		divergences = append(divergences, FieldDivergence{
			Field:    "Params",
			Expected: stored.Params,
			Actual:   replayed.Params,
		})
	}

	if stored.NSeeds != replayed.NSeeds {
		divergences = append(divergences, FieldDivergence{
			Field:    "NSeeds",
			Expected: stored.NSeeds,
			Actual:   replayed.NSeeds,
		})
	}

	floats := []struct {
		field            string
		stored, replayed float64
	}{
		{"MeanInvVol", stored.MeanInvVol, replayed.MeanInvVol},
		{"MeanControlledPnL", stored.MeanControlledPnL, replayed.MeanControlledPnL},
		{"StdControlledPnL", stored.StdControlledPnL, replayed.StdControlledPnL},
	}
	for _, f := range floats {
		if !floatEquals(f.stored, f.replayed) {
			divergences = append(divergences, FieldDivergence{
				Field:    f.field,
				Expected: f.stored,
				Actual:   f.replayed,
			})
		}
	}

	switch {
	case stored.TStatDefined != replayed.TStatDefined:
		divergences = append(divergences, FieldDivergence{
			Field:    "TStatDefined",
			Expected: stored.TStatDefined,
			Actual:   replayed.TStatDefined,
		})
	case stored.TStatDefined && !floatEquals(stored.TStat, replayed.TStat):
		divergences = append(divergences, FieldDivergence{
			Field:    "TStat",
			Expected: stored.TStat,
			Actual:   replayed.TStat,
		})
	}

	return divergences
}

// floatEquals compares two float64 values with relative tolerance for
// large magnitudes.
func floatEquals(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return diff <= FloatTolerance*scale
}
