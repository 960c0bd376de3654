package formulas

import "math"

// CalculateSharpeRatio calculates
//
//	Sharpe = (annualReturn - riskFreeRate) / volatility
//
// A zero volatility is reported as ErrZeroVariance rather than ±Inf.
func CalculateSharpeRatio(annualReturn, riskFreeRate, volatility float64) (float64, error) {
	if volatility == 0 {
		return 0, ErrZeroVariance
	}
	return (annualReturn - riskFreeRate) / volatility, nil
}

// CalculateSortinoRatio uses the annualized sample standard deviation of the negative
// returns only as the denominator. A series without losses has no downside and is
// reported as ErrNoDownside instead of infinite upside.
func CalculateSortinoRatio(annualReturn, riskFreeRate float64, returns []float64, periodsPerYear float64) (float64, error) {
	negative := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}

	if len(negative) == 0 {
		return 0, ErrNoDownside
	}

	downside, err := AnnualizedVolatility(negative, periodsPerYear)
	if err != nil {
		return 0, err
	}
	if downside == 0 || math.IsNaN(downside) {
		return 0, ErrZeroVariance
	}
	return (annualReturn - riskFreeRate) / downside, nil
}
