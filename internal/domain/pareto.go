package domain

// ParetoPoint is a (risk, reward) pair tagged with its parameter set.
// Risk is mean inventory volatility (minimised), reward is mean controlled
// PnL (maximised).
type ParetoPoint struct {
	Params ParameterSet
	Risk   float64
	Reward float64
}

// Dominates reports whether a dominates b: a.Risk <= b.Risk and
// a.Reward >= b.Reward with at least one inequality strict.
func Dominates(a, b ParetoPoint) bool {
	if a.Risk > b.Risk || a.Reward < b.Reward {
		return false
	}
	return a.Risk < b.Risk || a.Reward > b.Reward
}

// PointFromRow builds the tradeoff point of a summary row.
func PointFromRow(r SummaryRow) ParetoPoint {
	return ParetoPoint{Params: r.Params, Risk: r.MeanInvVol, Reward: r.MeanControlledPnL}
}
