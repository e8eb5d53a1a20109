package strategy

import (
	"errors"
	"math"

	"inventory-sweep-lab/internal/domain"
)

// Factory errors
var (
	ErrInvalidGain      = errors.New("k must be finite and >= 0")
	ErrInvalidSmoothing = errors.New("alpha must be in [0, 1)")
	ErrInvalidThreshold = errors.New("hth must be finite and > 0")
	ErrInvalidHedgeSize = errors.New("hsz must be finite and > 0")
)

// FromParams creates an InventoryControl from a parameter set.
// Returns clear errors for out-of-range controls.
func FromParams(p domain.ParameterSet) (*InventoryControl, error) {
	if !finite(p.K) || p.K < 0 {
		return nil, ErrInvalidGain
	}
	if !finite(p.Alpha) || p.Alpha < 0 || p.Alpha >= 1 {
		return nil, ErrInvalidSmoothing
	}
	if !finite(p.HTh) || p.HTh <= 0 {
		return nil, ErrInvalidThreshold
	}
	if !finite(p.HSz) || p.HSz <= 0 {
		return nil, ErrInvalidHedgeSize
	}
	return NewInventoryControl(p), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
