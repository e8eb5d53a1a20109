// Package sweep evaluates a grid of parameter sets over a seed range.
//
// Every (parameter set, seed) trial is independent, so trials run on a
// bounded worker pool over the flat Cartesian product. Outcomes land in
// slots indexed by (parameter position, seed position); a row is aggregated
// as soon as its last trial finishes and the table is assembled in grid
// order, independent of completion order.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/metrics"
	"inventory-sweep-lab/internal/simulation"
)

// Engine errors
var (
	ErrNoSeeds        = errors.New("sweep requires at least one seed")
	ErrNoOracle       = errors.New("sweep requires an oracle")
	ErrPartialFailure = errors.New("sweep completed with failed parameter sets")
)

// FailurePolicy decides what a failed trial does to the rest of the sweep.
type FailurePolicy int

const (
	// SkipFailed omits the failed parameter set's row, records it in
	// ResultTable.Failures and keeps every other row.
	SkipFailed FailurePolicy = iota
	// AbortOnFailure cancels the sweep on the first failed trial.
	AbortOnFailure
)

func (p FailurePolicy) String() string {
	switch p {
	case SkipFailed:
		return "skip"
	case AbortOnFailure:
		return "abort"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy parses "skip" or "abort".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "skip":
		return SkipFailed, nil
	case "abort":
		return AbortOnFailure, nil
	default:
		return 0, fmt.Errorf("unknown failure policy %q (want skip or abort)", s)
	}
}

// RowEvent reports one finished parameter set. Exactly one of Row and
// Failure is set.
type RowEvent struct {
	Index   int // position in the grid
	Total   int // grid size
	Row     *domain.SummaryRow
	Failure *domain.TrialFailure
}

// Observer receives row events. It is called from worker goroutines and must
// be safe for concurrent use.
type Observer func(RowEvent)

// Options configures an Engine.
type Options struct {
	Oracle        simulation.Oracle
	Metric        metrics.SignificanceMetric
	Parallelism   int // <= 0 uses GOMAXPROCS
	FailurePolicy FailurePolicy
	Observer      Observer
	Logger        *zerolog.Logger
}

// Engine runs parameter sweeps. It holds no state between calls.
type Engine struct {
	runner      *simulation.Runner
	aggregator  *metrics.Aggregator
	parallelism int
	policy      FailurePolicy
	observer    Observer
	logger      zerolog.Logger
}

// New creates a sweep engine.
func New(opts Options) (*Engine, error) {
	if opts.Oracle == nil {
		return nil, ErrNoOracle
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "sweep").Logger()
	}
	return &Engine{
		runner:      simulation.NewRunner(opts.Oracle),
		aggregator:  metrics.NewAggregator(opts.Metric),
		parallelism: parallelism,
		policy:      opts.FailurePolicy,
		observer:    opts.Observer,
		logger:      logger,
	}, nil
}

// Policy returns the configured failure policy.
func (e *Engine) Policy() FailurePolicy {
	return e.policy
}

// rowResult is the per-parameter-set slot filled when its last trial ends.
type rowResult struct {
	row     *domain.SummaryRow
	failure *domain.TrialFailure
}

// Sweep evaluates every parameter set of grid on every seed and returns one
// row per successfully evaluated set, in grid order.
//
// Under SkipFailed, failed sets are listed in ResultTable.Failures and the
// returned error wraps ErrPartialFailure; the table is still returned.
// Under AbortOnFailure the first trial error is returned with a nil table.
func (e *Engine) Sweep(ctx context.Context, grid domain.Grid, seeds domain.SeedRange) (*domain.ResultTable, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}
	if len(grid) == 0 {
		return &domain.ResultTable{}, nil
	}

	started := time.Now()
	nParams, nSeeds := len(grid), len(seeds)

	outcomes := make([][]domain.TrialOutcome, nParams)
	trialErrs := make([][]error, nParams)
	remaining := make([]atomic.Int32, nParams)
	results := make([]rowResult, nParams)
	for i := range grid {
		outcomes[i] = make([]domain.TrialOutcome, nSeeds)
		trialErrs[i] = make([]error, nSeeds)
		remaining[i].Store(int32(nSeeds))
	}

	e.logger.Info().
		Int("grid", nParams).
		Int("seeds", nSeeds).
		Int("parallelism", e.parallelism).
		Str("policy", e.policy.String()).
		Msg("sweep started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for t := 0; t < nParams*nSeeds; t++ {
		if e.policy == AbortOnFailure && gctx.Err() != nil {
			break
		}
		pi, si := t/nSeeds, t%nSeeds
		g.Go(func() error {
			o, err := e.runner.RunTrial(gctx, grid[pi], seeds[si])
			if err != nil {
				trialErrs[pi][si] = err
			} else {
				outcomes[pi][si] = o
			}

			if remaining[pi].Add(-1) == 0 {
				results[pi] = e.finishRow(pi, grid[pi], seeds, outcomes[pi], trialErrs[pi])
				e.notify(pi, nParams, results[pi])
			}

			if err != nil && e.policy == AbortOnFailure {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Error().Err(err).Msg("sweep aborted")
		return nil, err
	}

	table := &domain.ResultTable{Rows: make([]domain.SummaryRow, 0, nParams)}
	for _, r := range results {
		switch {
		case r.row != nil:
			table.Rows = append(table.Rows, *r.row)
		case r.failure != nil:
			table.Failures = append(table.Failures, *r.failure)
		}
	}

	e.logger.Info().
		Int("rows", len(table.Rows)).
		Int("failures", len(table.Failures)).
		Dur("elapsed", time.Since(started)).
		Msg("sweep finished")

	if len(table.Failures) > 0 {
		return table, fmt.Errorf("%w: %d of %d parameter sets", ErrPartialFailure, len(table.Failures), nParams)
	}
	return table, nil
}

// finishRow aggregates a parameter set whose trials have all returned.
// The failure reported is the one at the lowest seed position, so the report
// does not depend on scheduling.
func (e *Engine) finishRow(idx int, params domain.ParameterSet, seeds domain.SeedRange, outcomes []domain.TrialOutcome, errs []error) rowResult {
	for si, err := range errs {
		if err != nil {
			e.logger.Warn().Err(err).Int("index", idx).Str("params", params.String()).Int64("seed", seeds[si]).Msg("parameter set failed")
			return rowResult{failure: &domain.TrialFailure{Params: params, Seed: seeds[si], Reason: err.Error()}}
		}
	}

	row, err := e.aggregator.Aggregate(params, outcomes)
	if err != nil {
		return rowResult{failure: &domain.TrialFailure{Params: params, Seed: seeds[0], Reason: err.Error()}}
	}
	e.logger.Debug().
		Int("index", idx).
		Str("params", params.String()).
		Float64("mean_inv_vol", row.MeanInvVol).
		Float64("mean_controlled_pnl", row.MeanControlledPnL).
		Float64("t_stat", row.TStat).
		Msg("row aggregated")
	return rowResult{row: &row}
}

func (e *Engine) notify(idx, total int, r rowResult) {
	if e.observer == nil {
		return
	}
	e.observer(RowEvent{Index: idx, Total: total, Row: r.row, Failure: r.failure})
}

// Observers fans a row event out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var active []Observer
	for _, o := range obs {
		if o != nil {
			active = append(active, o)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(ev RowEvent) {
		for _, o := range active {
			o(ev)
		}
	}
}
