package formulas

import (
	"math"
	"slices"
)

// Percentile returns the p-th percentile (0..100) using linear interpolation
// between the closest order statistics.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 || p < 0 || p > 100 || math.IsNaN(p) {
		return 0, ErrInsufficientData
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)

	return sorted[lo] + frac*(sorted[hi]-sorted[lo]), nil
}

// CalculateVaR returns the historical Value at Risk at the given confidence level
// (0.95 for VaR95) as a return, i.e. the (1-confidence) percentile of the empirical
// distribution. Fewer than minObservations returns is ErrInsufficientData.
func CalculateVaR(returns []float64, confidence float64, minObservations int) (float64, error) {
	if len(returns) < minObservations || len(returns) == 0 {
		return 0, ErrInsufficientData
	}
	return Percentile(returns, (1-confidence)*100)
}

// CalculateCVaR returns the mean of all returns at or below the VaR threshold.
func CalculateCVaR(returns []float64, confidence float64, minObservations int) (float64, error) {
	threshold, err := CalculateVaR(returns, confidence, minObservations)
	if err != nil {
		return 0, err
	}

	tail := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r <= threshold {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return 0, ErrInsufficientData
	}
	return Mean(tail), nil
}
