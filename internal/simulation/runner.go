package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"inventory-sweep-lab/internal/domain"
)

// Runner errors
var (
	ErrOracleFailure = errors.New("oracle failure")
	ErrNoSeeds       = errors.New("no seeds provided")

	// ErrNonFiniteOutcome marks an oracle result carrying NaN or Inf.
	ErrNonFiniteOutcome = errors.New("oracle produced non-finite outcome")
)

// TrialError identifies the trial that aborted a parameter set.
type TrialError struct {
	Params domain.ParameterSet
	Seed   int64
	Err    error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %s seed=%d: %v", e.Params, e.Seed, e.Err)
}

// Unwrap exposes both ErrOracleFailure and the underlying cause to errors.Is.
func (e *TrialError) Unwrap() []error {
	return []error{ErrOracleFailure, e.Err}
}

// NewTrialError wraps err with the failing (params, seed).
func NewTrialError(params domain.ParameterSet, seed int64, err error) *TrialError {
	return &TrialError{Params: params, Seed: seed, Err: err}
}

// Runner executes trials against an Oracle.
type Runner struct {
	oracle Oracle
}

// NewRunner creates a trial runner.
func NewRunner(oracle Oracle) *Runner {
	return &Runner{oracle: oracle}
}

// RunTrial invokes the oracle once for (params, seed). A cancelled context
// and a NaN or Inf outcome are reported the same way as an oracle error.
func (r *Runner) RunTrial(ctx context.Context, params domain.ParameterSet, seed int64) (domain.TrialOutcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.TrialOutcome{}, NewTrialError(params, seed, err)
	}

	out, err := r.oracle.Simulate(ctx, params, seed)
	if err != nil {
		return domain.TrialOutcome{}, NewTrialError(params, seed, err)
	}
	if !isFinite(out.InvVol) || !isFinite(out.ControlledPnL) {
		return domain.TrialOutcome{}, NewTrialError(params, seed,
			fmt.Errorf("%w: inv_vol=%v controlled_pnl=%v", ErrNonFiniteOutcome, out.InvVol, out.ControlledPnL))
	}

	return domain.TrialOutcome{
		Params:        params,
		Seed:          seed,
		InvVol:        out.InvVol,
		ControlledPnL: out.ControlledPnL,
	}, nil
}

// Run executes one trial per seed, in seed order.
// The first failing seed aborts the parameter set; partial outcomes are
// discarded so that no statistic is computed over a truncated sample.
func (r *Runner) Run(ctx context.Context, params domain.ParameterSet, seeds domain.SeedRange) ([]domain.TrialOutcome, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	outcomes := make([]domain.TrialOutcome, 0, len(seeds))
	for _, seed := range seeds {
		o, err := r.RunTrial(ctx, params, seed)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
