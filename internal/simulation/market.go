package simulation

import (
	"context"
	"math"
	"math/rand"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/strategy"
)

// MarketConfig describes the synthetic market the policy quotes into.
type MarketConfig struct {
	Steps         int     `yaml:"steps" validate:"gt=0"`                // ticks per run
	InitialMid    float64 `yaml:"initial_mid" validate:"gt=0"`          // starting mid price
	Volatility    float64 `yaml:"volatility" validate:"gte=0"`          // per-tick stddev of mid changes
	HalfSpread    float64 `yaml:"half_spread" validate:"gt=0"`          // base half spread before skew
	FillIntensity float64 `yaml:"fill_intensity" validate:"gt=0,lte=1"` // fill probability at zero distance from mid
	DepthDecay    float64 `yaml:"depth_decay" validate:"gte=0"`         // exponential decay of fill probability with distance
	HedgeCost     float64 `yaml:"hedge_cost" validate:"gte=0"`          // cost per hedged unit
}

// DefaultMarketConfig returns the market used by the reference experiment.
func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		Steps:         2000,
		InitialMid:    100,
		Volatility:    0.2,
		HalfSpread:    0.1,
		FillIntensity: 0.9,
		DepthDecay:    1.5,
		HedgeCost:     0.05,
	}
}

// InventorySimulator is the default Oracle: a seeded market-making random
// walk in which the policy posts one-unit quotes each tick and hedges at mid
// once its smoothed inventory leaves the threshold band.
type InventorySimulator struct {
	market MarketConfig
}

// NewInventorySimulator creates a simulator over the given market.
func NewInventorySimulator(market MarketConfig) *InventorySimulator {
	return &InventorySimulator{market: market}
}

// Simulate runs one trial. InvVol is the population stddev of the inventory
// path; ControlledPnL is cash plus inventory marked at the final mid.
func (s *InventorySimulator) Simulate(ctx context.Context, params domain.ParameterSet, seed int64) (Outcome, error) {
	policy, err := strategy.FromParams(params)
	if err != nil {
		return Outcome{}, err
	}

	m := s.market
	rng := rand.New(rand.NewSource(seed))

	mid := m.InitialMid
	var inventory, cash, signal float64
	var invSum, invSqSum float64

	for step := 0; step < m.Steps; step++ {
		if step%256 == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
		}

		quotes := policy.Quote(mid, m.HalfSpread, signal)
		mid += m.Volatility * rng.NormFloat64()

		// Bid fills when the market trades down through it, ask when up.
		if rng.Float64() < fillProbability(m, mid-quotes.Bid) {
			inventory++
			cash -= quotes.Bid
		}
		if rng.Float64() < fillProbability(m, quotes.Ask-mid) {
			inventory--
			cash += quotes.Ask
		}

		signal = policy.Smooth(signal, inventory)
		if qty := policy.Hedge(signal, inventory); qty != 0 {
			inventory += qty
			cash -= qty*mid + m.HedgeCost*math.Abs(qty)
			signal = policy.Smooth(signal, inventory)
		}

		invSum += inventory
		invSqSum += inventory * inventory
	}

	n := float64(m.Steps)
	var invVol float64
	if m.Steps > 0 {
		meanInv := invSum / n
		variance := invSqSum/n - meanInv*meanInv
		if variance > 0 {
			invVol = math.Sqrt(variance)
		}
	}

	return Outcome{
		InvVol:        invVol,
		ControlledPnL: cash + inventory*mid,
	}, nil
}

// fillProbability decays with the quote's distance from mid; quotes through
// the mid fill at FillIntensity.
func fillProbability(m MarketConfig, distance float64) float64 {
	if distance <= 0 {
		return m.FillIntensity
	}
	return m.FillIntensity * math.Exp(-m.DepthDecay*distance)
}

var _ Oracle = (*InventorySimulator)(nil)
