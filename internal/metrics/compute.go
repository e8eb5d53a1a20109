package metrics

import "math"

// computeMean returns the arithmetic mean. Returns 0 for an empty slice.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev returns the sample standard deviation (n-1 denominator).
// Returns 0 when fewer than two values are given.
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// TStat returns mean / (std / sqrt(n)) of the sample against a zero-mean null.
// defined is false when n < 2 or the sample has zero dispersion; value is
// then NaN. Dispersion is decided on the raw values since a rounded mean
// leaves a tiny nonzero std for constant samples such as {0.1, 0.1, 0.1}.
func TStat(values []float64) (value float64, defined bool) {
	n := len(values)
	if n < 2 || isConstant(values) {
		return math.NaN(), false
	}
	mean := computeMean(values)
	std := computeStddev(values, mean)
	if std == 0 || math.IsNaN(std) {
		return math.NaN(), false
	}
	return mean / (std / math.Sqrt(float64(n))), true
}

// isConstant reports whether every value equals the first.
func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
