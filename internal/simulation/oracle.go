package simulation

import (
	"context"

	"inventory-sweep-lab/internal/domain"
)

// Outcome is what one simulation run reports.
type Outcome struct {
	InvVol        float64
	ControlledPnL float64
}

// Oracle simulates the inventory-controlled policy for one parameter set and
// seed. Implementations must be deterministic in (params, seed) and safe for
// concurrent use.
type Oracle interface {
	Simulate(ctx context.Context, params domain.ParameterSet, seed int64) (Outcome, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, params domain.ParameterSet, seed int64) (Outcome, error)

// Simulate calls f(ctx, params, seed).
func (f OracleFunc) Simulate(ctx context.Context, params domain.ParameterSet, seed int64) (Outcome, error) {
	return f(ctx, params, seed)
}
