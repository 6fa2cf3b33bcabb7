package dataprocessing

import "math"

// Round1 rounds to one decimal place, halves to even. NaN stays NaN.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.RoundToEven(v*10) / 10
}

// Ratio divides, returning NaN for a zero or NaN denominator.
func Ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) {
		return math.NaN()
	}
	return num / den
}

// Percent returns 100 × part / whole, NaN when whole is zero.
func Percent(part, whole float64) float64 {
	return 100 * Ratio(part, whole)
}
