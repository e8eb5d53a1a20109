package selection

import (
	"math"
	"sort"

	"inventory-sweep-lab/internal/domain"
)

// ParetoFront returns the non-dominated rows of table, with risk = mean
// inventory volatility (minimised) and reward = mean controlled PnL
// (maximised). The result is ordered by ascending risk.
func ParetoFront(table *domain.ResultTable) []domain.ParetoPoint {
	if table == nil || len(table.Rows) == 0 {
		return []domain.ParetoPoint{}
	}
	points := make([]domain.ParetoPoint, len(table.Rows))
	for i, row := range table.Rows {
		points[i] = domain.PointFromRow(row)
	}
	return ParetoFrontPoints(points)
}

// ParetoFrontPoints extracts the front of raw points. Points are sorted by
// risk ascending, reward descending; a point is kept when its reward strictly
// exceeds the best reward seen so far. Of exact ties only the first survives.
// Points with a NaN or infinite coordinate are ignored. The input slice is
// not modified.
func ParetoFrontPoints(points []domain.ParetoPoint) []domain.ParetoPoint {
	front := []domain.ParetoPoint{}

	sorted := make([]domain.ParetoPoint, 0, len(points))
	for _, p := range points {
		if finite(p.Risk) && finite(p.Reward) {
			sorted = append(sorted, p)
		}
	}
	if len(sorted) == 0 {
		return front
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Risk != sorted[j].Risk {
			return sorted[i].Risk < sorted[j].Risk
		}
		return sorted[i].Reward > sorted[j].Reward
	})

	for i, p := range sorted {
		if i == 0 || p.Reward > front[len(front)-1].Reward {
			front = append(front, p)
		}
	}
	return front
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
