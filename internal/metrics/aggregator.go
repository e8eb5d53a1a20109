package metrics

import (
	"errors"
	"fmt"

	"inventory-sweep-lab/internal/domain"
)

// Aggregator errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoOutcomes   = fmt.Errorf("%w: no outcomes to aggregate", ErrInvalidInput)
	ErrMixedParams  = fmt.Errorf("%w: outcomes belong to different parameter sets", ErrInvalidInput)
)

// Aggregator reduces per-seed outcomes to a summary row.
type Aggregator struct {
	metric SignificanceMetric
}

// NewAggregator creates an aggregator testing the given metric.
// An empty metric selects MetricControlledPnL.
func NewAggregator(metric SignificanceMetric) *Aggregator {
	if metric == "" {
		metric = MetricControlledPnL
	}
	return &Aggregator{metric: metric}
}

// Metric returns the significance metric in use.
func (a *Aggregator) Metric() SignificanceMetric {
	return a.metric
}

// Aggregate computes the summary row of params over outcomes.
// Every outcome must carry params. A degenerate t-statistic (single sample
// or zero dispersion) is reported through TStatDefined, not as an error.
func (a *Aggregator) Aggregate(params domain.ParameterSet, outcomes []domain.TrialOutcome) (domain.SummaryRow, error) {
	if len(outcomes) == 0 {
		return domain.SummaryRow{}, ErrNoOutcomes
	}

	invVol := make([]float64, len(outcomes))
	pnl := make([]float64, len(outcomes))
	for i, o := range outcomes {
		if o.Params != params {
			return domain.SummaryRow{}, fmt.Errorf("%w: got %s, want %s", ErrMixedParams, o.Params, params)
		}
		invVol[i] = o.InvVol
		pnl[i] = o.ControlledPnL
	}

	meanPnL := computeMean(pnl)
	t, defined := TStat(a.metric.sample(outcomes))

	return domain.SummaryRow{
		Params:            params,
		MeanInvVol:        computeMean(invVol),
		MeanControlledPnL: meanPnL,
		StdControlledPnL:  computeStddev(pnl, meanPnL),
		NSeeds:            len(outcomes),
		TStat:             t,
		TStatDefined:      defined,
	}, nil
}
