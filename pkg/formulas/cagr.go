package formulas

import "math"

// CalculateCAGR calculates the compound annual growth rate
//
//	CAGR = (end / start)^(periodsPerYear / n) - 1
//
// where n is the number of periods between start and end.
func CalculateCAGR(start, end float64, n int, periodsPerYear float64) (float64, error) {
	if n < 1 || periodsPerYear <= 0 {
		return 0, ErrInsufficientData
	}
	if start <= 0 {
		return 0, ErrDegenerateBase
	}

	ratio := end / start
	if ratio < 0 {
		// Fractional powers of a negative ratio are undefined.
		return 0, ErrDegenerateBase
	}

	cagr := math.Pow(ratio, periodsPerYear/float64(n)) - 1
	if math.IsNaN(cagr) || math.IsInf(cagr, 0) {
		return 0, ErrDegenerateBase
	}
	return cagr, nil
}
