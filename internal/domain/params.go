package domain

import (
	"fmt"
	"strconv"
)

// ParameterSet is one combination of inventory-control values under evaluation.
// It is a comparable value type: two sets with equal fields are the same set
// and can be used as a map key.
type ParameterSet struct {
	K     float64 `json:"k" yaml:"k"`         // risk-aversion gain on inventory skew
	Alpha float64 `json:"alpha" yaml:"alpha"` // smoothing/decay coefficient of the inventory signal
	HTh   float64 `json:"hth" yaml:"hth"`     // hedge trigger threshold
	HSz   float64 `json:"hsz" yaml:"hsz"`     // hedge size / window control
}

// String renders the set as k=..,alpha=..,hth=..,hsz=..
func (p ParameterSet) String() string {
	return fmt.Sprintf("k=%s,alpha=%s,hth=%s,hsz=%s",
		formatFloat(p.K), formatFloat(p.Alpha), formatFloat(p.HTh), formatFloat(p.HSz))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Grid is an ordered sequence of parameter sets. Duplicates are allowed and
// are evaluated independently.
type Grid []ParameterSet

// GridSpec lists the candidate values of each control.
type GridSpec struct {
	K     []float64 `json:"k" yaml:"k" validate:"required,min=1"`
	Alpha []float64 `json:"alpha" yaml:"alpha" validate:"required,min=1"`
	HTh   []float64 `json:"hth" yaml:"hth" validate:"required,min=1"`
	HSz   []float64 `json:"hsz" yaml:"hsz" validate:"required,min=1"`
}

// Expand enumerates the Cartesian product in nested order k, alpha, hth, hsz
// (hsz varies fastest).
func (g GridSpec) Expand() Grid {
	grid := make(Grid, 0, len(g.K)*len(g.Alpha)*len(g.HTh)*len(g.HSz))
	for _, k := range g.K {
		for _, alpha := range g.Alpha {
			for _, hth := range g.HTh {
				for _, hsz := range g.HSz {
					grid = append(grid, ParameterSet{K: k, Alpha: alpha, HTh: hth, HSz: hsz})
				}
			}
		}
	}
	return grid
}

// DefaultGridSpec is the 81-point grid of the reference experiment.
func DefaultGridSpec() GridSpec {
	return GridSpec{
		K:     []float64{0.5, 1.0, 1.5},
		Alpha: []float64{0.0, 0.01, 0.05},
		HTh:   []float64{20, 50, 100},
		HSz:   []float64{10, 20, 50},
	}
}
