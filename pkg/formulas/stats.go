package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator)
func StdDev(data []float64) (float64, error) {
	if len(data) < 2 {
		return 0, ErrInsufficientData
	}
	return stat.StdDev(data, nil), nil
}

// AnnualizedVolatility scales the sample standard deviation of periodic returns
// by sqrt(periodsPerYear). At least two returns are required.
func AnnualizedVolatility(returns []float64, periodsPerYear float64) (float64, error) {
	sd, err := StdDev(returns)
	if err != nil {
		return 0, err
	}
	if periodsPerYear <= 0 {
		return 0, ErrInsufficientData
	}
	return sd * math.Sqrt(periodsPerYear), nil
}

// Correlation calculates the Pearson correlation coefficient between two aligned datasets.
// The result is clamped to [-1, 1] to absorb floating point overshoot.
func Correlation(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, ErrInsufficientData
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0, ErrZeroVariance
	}

	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) {
		return 0, ErrZeroVariance
	}
	return math.Max(-1, math.Min(1, c)), nil
}

// Beta calculates cov(portfolio, benchmark) / var(benchmark) over aligned returns
func Beta(portfolio, benchmark []float64) (float64, error) {
	if len(portfolio) != len(benchmark) || len(portfolio) < 2 {
		return 0, ErrInsufficientData
	}

	variance := stat.Variance(benchmark, nil)
	if variance == 0 {
		return 0, ErrZeroVariance
	}
	return stat.Covariance(portfolio, benchmark, nil) / variance, nil
}

// Alpha is Jensen's alpha:
//
//	alpha = portfolioReturn - (riskFree + beta * (benchmarkReturn - riskFree))
func Alpha(portfolioReturn, benchmarkReturn, beta, riskFree float64) float64 {
	return portfolioReturn - (riskFree + beta*(benchmarkReturn-riskFree))
}

// TrackingError is the annualized standard deviation of active returns
func TrackingError(portfolio, benchmark []float64, periodsPerYear float64) (float64, error) {
	if len(portfolio) != len(benchmark) || len(portfolio) < 2 {
		return 0, ErrInsufficientData
	}

	active := make([]float64, len(portfolio))
	floats.SubTo(active, portfolio, benchmark)
	return AnnualizedVolatility(active, periodsPerYear)
}

// InformationRatio is (portfolioReturn - benchmarkReturn) / trackingError
func InformationRatio(portfolioReturn, benchmarkReturn, trackingError float64) (float64, error) {
	if trackingError == 0 {
		return 0, ErrZeroVariance
	}
	return (portfolioReturn - benchmarkReturn) / trackingError, nil
}
