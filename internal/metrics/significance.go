package metrics

import (
	"fmt"
	"strings"

	"inventory-sweep-lab/internal/domain"
)

// SignificanceMetric selects the per-seed sample the t-statistic is computed on.
type SignificanceMetric string

const (
	// MetricControlledPnL tests mean controlled PnL against zero.
	MetricControlledPnL SignificanceMetric = "controlled_pnl"
	// MetricRiskAdjusted tests mean controlled_pnl / inv_vol against zero.
	// Trials with zero inventory volatility contribute no sample value.
	MetricRiskAdjusted SignificanceMetric = "risk_adjusted"
)

// ParseSignificanceMetric parses a metric name. Empty selects MetricControlledPnL.
func ParseSignificanceMetric(s string) (SignificanceMetric, error) {
	switch SignificanceMetric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricControlledPnL:
		return MetricControlledPnL, nil
	case MetricRiskAdjusted:
		return MetricRiskAdjusted, nil
	default:
		return "", fmt.Errorf("%w: unknown significance metric %q", ErrInvalidInput, s)
	}
}

// sample extracts the significance sample from outcomes.
func (m SignificanceMetric) sample(outcomes []domain.TrialOutcome) []float64 {
	values := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		switch m {
		case MetricRiskAdjusted:
			if o.InvVol == 0 {
				continue
			}
			values = append(values, o.ControlledPnL/o.InvVol)
		default:
			values = append(values, o.ControlledPnL)
		}
	}
	return values
}
