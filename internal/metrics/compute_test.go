package metrics

import (
	"math"
	"testing"
)

func TestComputeMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4}, 4},
		{"mixed signs", []float64{-1, 1, 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeMean(tt.values); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("computeMean() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestComputeStddev_Sample(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)

	// sum of squared deviations = 32, n-1 = 7
	want := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); math.Abs(got-want) > 1e-12 {
		t.Errorf("computeStddev() = %f, want %f", got, want)
	}

	if got := computeStddev([]float64{3}, 3); got != 0 {
		t.Errorf("computeStddev(single) = %f, want 0", got)
	}
}

func TestTStat(t *testing.T) {
	got, defined := TStat([]float64{1, 2, 3})
	if !defined {
		t.Fatal("expected defined t-stat")
	}
	// mean 2, std 1, n 3
	if want := 2 * math.Sqrt(3); math.Abs(got-want) > 1e-12 {
		t.Errorf("TStat() = %f, want %f", got, want)
	}

	got, defined = TStat([]float64{-1, -2, -3})
	if !defined || got >= 0 {
		t.Errorf("TStat(negative) = %f, defined=%t; want negative defined", got, defined)
	}
}

func TestTStat_Degenerate(t *testing.T) {
	for name, values := range map[string][]float64{
		"empty":         nil,
		"single":        {1},
		"zero variance": {5, 5, 5},
		"inexact 0.1":   {0.1, 0.1, 0.1},
		"inexact 1.1":   constant(1.1, 50),
		"inexact 2.7":   constant(2.7, 10),
	} {
		t.Run(name, func(t *testing.T) {
			got, defined := TStat(values)
			if defined {
				t.Errorf("expected undefined t-stat, got %f", got)
			}
			if !math.IsNaN(got) {
				t.Errorf("expected NaN sentinel, got %f", got)
			}
		})
	}
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
