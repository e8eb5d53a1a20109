// Package selection filters sweep results by statistical significance and
// extracts the risk/reward Pareto front.
package selection

import (
	"errors"
	"fmt"
	"math"

	"inventory-sweep-lab/internal/domain"
)

// ErrInvalidThreshold is returned for a non-positive or NaN threshold.
var ErrInvalidThreshold = errors.New("significance threshold must be a positive number")

// Significant returns the rows whose |t| >= threshold, in input order.
// Rows with an undefined t-statistic never pass. Failures are carried over
// unchanged so the caller can still report them.
func Significant(table *domain.ResultTable, threshold float64) (*domain.ResultTable, error) {
	if math.IsNaN(threshold) || threshold <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}

	out := &domain.ResultTable{}
	if table == nil {
		return out, nil
	}
	out.Failures = table.Failures
	for _, row := range table.Rows {
		if passes(row, threshold) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func passes(row domain.SummaryRow, threshold float64) bool {
	if !row.TStatDefined || math.IsNaN(row.TStat) {
		return false
	}
	return math.Abs(row.TStat) >= threshold
}

// Params returns the parameter sets of table in row order.
func Params(table *domain.ResultTable) domain.Grid {
	return table.Params()
}
