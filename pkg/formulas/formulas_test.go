package formulas

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodReturn(t *testing.T) {
	r, err := PeriodReturn(100, 110)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, r, 1e-12)

	r, err = PeriodReturn(0, 10)
	assert.ErrorIs(t, err, ErrDegenerateBase)
	assert.True(t, math.IsNaN(r))
}

func TestReturns_KeepsAlignment(t *testing.T) {
	returns := Returns([]float64{100, 0, 50, 55})
	require.Len(t, returns, 3)

	assert.InDelta(t, -1.0, returns[0], 1e-12)
	assert.True(t, math.IsNaN(returns[1]))
	assert.InDelta(t, 0.1, returns[2], 1e-12)

	assert.Len(t, Finite(returns), 2)
	assert.Empty(t, Returns([]float64{1}))
}

func TestCumulativeReturn(t *testing.T) {
	c, err := CumulativeReturn([]float64{0.1, -0.1})
	require.NoError(t, err)
	assert.InDelta(t, -0.01, c, 1e-12)

	_, err = CumulativeReturn(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestInferPeriodsPerYear(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ppy, err := InferPeriodsPerYear(first, first.AddDate(0, 0, 365), 12)
	require.NoError(t, err)
	assert.InDelta(t, 12*365.25/365, ppy, 1e-9)

	_, err = InferPeriodsPerYear(first, first, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = InferPeriodsPerYear(first, first.AddDate(0, 0, 10), 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateCAGR(t *testing.T) {
	testCases := []struct {
		name     string
		start    float64
		end      float64
		n        int
		ppy      float64
		expected float64
		err      error
	}{
		{"doubling over one year of monthly periods", 100, 200, 12, 12, 1.0, nil},
		{"doubling over two years", 100, 200, 2, 1, math.Sqrt2 - 1, nil},
		{"flat", 100, 100, 5, 12, 0, nil},
		{"zero start", 0, 100, 3, 12, 0, ErrDegenerateBase},
		{"negative start", -10, 100, 3, 12, 0, ErrDegenerateBase},
		{"sign flip", 100, -10, 3, 12, 0, ErrDegenerateBase},
		{"no periods", 100, 110, 0, 12, 0, ErrInsufficientData},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateCAGR(tc.start, tc.end, tc.n, tc.ppy)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	vol, err := AnnualizedVolatility([]float64{0.01, -0.01, 0.01, -0.01}, 252)
	require.NoError(t, err)
	// sample std dev of ±0.01 over four points is sqrt(4*0.0001/3)
	assert.InDelta(t, math.Sqrt(0.0004/3)*math.Sqrt(252), vol, 1e-12)

	vol, err = AnnualizedVolatility([]float64{0, 0, 0}, 12)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vol)

	_, err = AnnualizedVolatility([]float64{0.05}, 12)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateSharpeRatio(t *testing.T) {
	s, err := CalculateSharpeRatio(0.12, 0.02, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s, 1e-12)

	_, err = CalculateSharpeRatio(0.12, 0.02, 0)
	assert.ErrorIs(t, err, ErrZeroVariance)
}

func TestCalculateSortinoRatio(t *testing.T) {
	_, err := CalculateSortinoRatio(0.1, 0.02, []float64{0.01, 0.02, 0.03}, 12)
	assert.ErrorIs(t, err, ErrNoDownside)

	_, err = CalculateSortinoRatio(0.1, 0.02, []float64{0.01, -0.02, 0.03}, 12)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = CalculateSortinoRatio(0.1, 0.02, []float64{-0.02, 0.01, -0.02}, 12)
	assert.ErrorIs(t, err, ErrZeroVariance)

	s, err := CalculateSortinoRatio(0.1, 0.02, []float64{-0.01, 0.04, -0.03}, 4)
	require.NoError(t, err)
	downside := math.Sqrt(0.0002) * 2 // sample sd of {-0.01,-0.03} annualized with sqrt(4)
	assert.InDelta(t, 0.08/downside, s, 1e-9)
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}

	p, err := Percentile(values, 50)
	require.NoError(t, err)
	assert.Equal(t, 3.0, p)

	p, err = Percentile(values, 5)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, p, 1e-12)

	p, err = Percentile(values, 100)
	require.NoError(t, err)
	assert.Equal(t, 5.0, p)

	// input must not be reordered
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, values)

	_, err = Percentile(nil, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateVaRAndCVaR(t *testing.T) {
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = float64(i-10) / 100 // -0.10 .. 0.09
	}

	v, err := CalculateVaR(returns, 0.95, 20)
	require.NoError(t, err)
	// position 0.05*19 = 0.95 between -0.10 and -0.09
	assert.InDelta(t, -0.0905, v, 1e-12)

	cv, err := CalculateCVaR(returns, 0.95, 20)
	require.NoError(t, err)
	assert.InDelta(t, -0.10, cv, 1e-12)
	assert.LessOrEqual(t, cv, v)

	_, err = CalculateVaR(returns[:19], 0.95, 20)
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = CalculateCVaR(returns[:19], 0.95, 20)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCorrelation(t *testing.T) {
	c, err := Correlation([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c, 1e-12)
	assert.LessOrEqual(t, c, 1.0)

	c, err = Correlation([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, c, 1e-12)

	_, err = Correlation([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrZeroVariance)

	_, err = Correlation([]float64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBetaAlphaTracking(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.03, 0.00}
	port := []float64{0.02, -0.04, 0.06, 0.00}

	beta, err := Beta(port, bench)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, beta, 1e-12)

	alpha := Alpha(0.15, 0.08, beta, 0.02)
	assert.InDelta(t, 0.15-(0.02+2*(0.08-0.02)), alpha, 1e-12)

	_, err = Beta(port, []float64{0.01, 0.01, 0.01, 0.01})
	assert.ErrorIs(t, err, ErrZeroVariance)

	te, err := TrackingError(port, bench, 12)
	require.NoError(t, err)
	assert.Greater(t, te, 0.0)

	ir, err := InformationRatio(0.15, 0.08, te)
	require.NoError(t, err)
	assert.InDelta(t, 0.07/te, ir, 1e-12)

	_, err = InformationRatio(0.1, 0.1, 0)
	assert.ErrorIs(t, err, ErrZeroVariance)
}
