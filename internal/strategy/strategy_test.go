package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sweep-lab/internal/domain"
)

func TestFromParams_Valid(t *testing.T) {
	p := domain.ParameterSet{K: 0.5, Alpha: 0.01, HTh: 20, HSz: 10}

	c, err := FromParams(p)
	require.NoError(t, err)
	assert.Equal(t, p, c.Params())
	assert.Equal(t, "INVENTORY_CONTROL_k=0.5,alpha=0.01,hth=20,hsz=10", c.ID())
}

func TestFromParams_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params domain.ParameterSet
		want   error
	}{
		{"negative k", domain.ParameterSet{K: -1, HTh: 20, HSz: 10}, ErrInvalidGain},
		{"nan k", domain.ParameterSet{K: math.NaN(), HTh: 20, HSz: 10}, ErrInvalidGain},
		{"alpha one", domain.ParameterSet{K: 1, Alpha: 1, HTh: 20, HSz: 10}, ErrInvalidSmoothing},
		{"negative alpha", domain.ParameterSet{K: 1, Alpha: -0.1, HTh: 20, HSz: 10}, ErrInvalidSmoothing},
		{"zero threshold", domain.ParameterSet{K: 1, HTh: 0, HSz: 10}, ErrInvalidThreshold},
		{"inf threshold", domain.ParameterSet{K: 1, HTh: math.Inf(1), HSz: 10}, ErrInvalidThreshold},
		{"zero hedge size", domain.ParameterSet{K: 1, HTh: 20, HSz: 0}, ErrInvalidHedgeSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromParams(tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInventoryControl_Smooth(t *testing.T) {
	raw := NewInventoryControl(domain.ParameterSet{K: 1, Alpha: 0, HTh: 20, HSz: 10})
	assert.Equal(t, 7.0, raw.Smooth(100, 7))

	smoothed := NewInventoryControl(domain.ParameterSet{K: 1, Alpha: 0.5, HTh: 20, HSz: 10})
	assert.InDelta(t, 6.0, smoothed.Smooth(10, 2), 1e-12)
}

func TestInventoryControl_QuoteSkewsAgainstInventory(t *testing.T) {
	c := NewInventoryControl(domain.ParameterSet{K: 1, Alpha: 0, HTh: 10, HSz: 5})

	flat := c.Quote(100, 1, 0)
	assert.Equal(t, Quotes{Bid: 99, Ask: 101}, flat)

	long := c.Quote(100, 1, 10)
	assert.InDelta(t, 98, long.Bid, 1e-12)
	assert.InDelta(t, 100, long.Ask, 1e-12)

	short := c.Quote(100, 1, -10)
	assert.InDelta(t, 100, short.Bid, 1e-12)
	assert.InDelta(t, 102, short.Ask, 1e-12)
}

func TestInventoryControl_QuoteZeroGainIsSymmetric(t *testing.T) {
	c := NewInventoryControl(domain.ParameterSet{K: 0, Alpha: 0, HTh: 10, HSz: 5})
	q := c.Quote(50, 0.5, 42)
	assert.Equal(t, Quotes{Bid: 49.5, Ask: 50.5}, q)
}

func TestInventoryControl_Hedge(t *testing.T) {
	c := NewInventoryControl(domain.ParameterSet{K: 1, Alpha: 0, HTh: 20, HSz: 10})

	tests := []struct {
		name      string
		signal    float64
		inventory float64
		want      float64
	}{
		{"inside band", 20, 20, 0},
		{"inside band short", -15, -15, 0},
		{"long above threshold", 25, 25, -10},
		{"short below threshold", -30, -30, 10},
		{"clip to flat", 25, 4, -4},
		{"flat inventory", 25, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Hedge(tt.signal, tt.inventory))
		})
	}
}
