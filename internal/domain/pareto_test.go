package domain

import "testing"

func TestDominates(t *testing.T) {
	tests := []struct {
		name string
		a, b ParetoPoint
		want bool
	}{
		{"lower risk same reward", ParetoPoint{Risk: 1, Reward: 5}, ParetoPoint{Risk: 2, Reward: 5}, true},
		{"same risk higher reward", ParetoPoint{Risk: 2, Reward: 6}, ParetoPoint{Risk: 2, Reward: 4}, true},
		{"better on both", ParetoPoint{Risk: 1, Reward: 6}, ParetoPoint{Risk: 2, Reward: 4}, true},
		{"equal", ParetoPoint{Risk: 1, Reward: 5}, ParetoPoint{Risk: 1, Reward: 5}, false},
		{"tradeoff", ParetoPoint{Risk: 1, Reward: 5}, ParetoPoint{Risk: 2, Reward: 6}, false},
		{"worse", ParetoPoint{Risk: 3, Reward: 6}, ParetoPoint{Risk: 2, Reward: 6}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dominates(tt.a, tt.b); got != tt.want {
				t.Errorf("Dominates(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPointFromRow(t *testing.T) {
	r := SummaryRow{Params: ParameterSet{K: 1}, MeanInvVol: 2.5, MeanControlledPnL: -1}
	p := PointFromRow(r)
	if p.Risk != 2.5 || p.Reward != -1 || p.Params != r.Params {
		t.Errorf("PointFromRow = %+v", p)
	}
}
