package formulas

import (
	"math"
	"time"
)

// DaysPerYear is the calendar year length used when annualizing irregular cadences.
const DaysPerYear = 365.25

// PeriodReturn computes (cur - prev) / prev.
// A zero base yields NaN and ErrDegenerateBase.
func PeriodReturn(prev, cur float64) (float64, error) {
	if prev == 0 {
		return math.NaN(), ErrDegenerateBase
	}
	return (cur - prev) / prev, nil
}

// Returns converts a value series into simple returns between consecutive entries.
// The result has len(values)-1 entries; periods with a zero base are NaN so callers
// can keep positional alignment with the input dates.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1], _ = PeriodReturn(values[i-1], values[i])
	}
	return returns
}

// Finite drops NaN and infinite entries.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// CumulativeReturn chain-links periodic returns: (1+r1)*(1+r2)*...*(1+rN) - 1.
func CumulativeReturn(returns []float64) (float64, error) {
	if len(returns) == 0 {
		return 0, ErrInsufficientData
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}
	return cumulative - 1, nil
}

// InferPeriodsPerYear estimates how many observation periods fit in a year from
// the observed span: periods / (days / 365.25).
func InferPeriodsPerYear(first, last time.Time, periods int) (float64, error) {
	if periods < 1 {
		return 0, ErrInsufficientData
	}
	days := last.Sub(first).Hours() / 24
	if days <= 0 {
		return 0, ErrInsufficientData
	}
	return float64(periods) / (days / DaysPerYear), nil
}
