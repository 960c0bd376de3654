package risk

import (
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/series"
	testingpkg "github.com/aristath/networth/internal/testing"
)

func newCalculator(ppy float64) *Calculator {
	return NewCalculator(Config{RiskFreeRate: 0.02, PeriodsPerYear: ppy}, zerolog.Nop())
}

func build(values ...float64) *series.Result {
	obs := make([]domain.Observation, len(values))
	for i, v := range values {
		obs[i] = testingpkg.Observation("acct", i+1, fmt.Sprintf("%g", v))
	}
	return series.Build(obs, nil)
}

func benchmarkFrom(days []int, values []float64) []domain.BenchmarkPoint {
	out := make([]domain.BenchmarkPoint, len(days))
	for i := range days {
		out[i] = domain.BenchmarkPoint{Date: testingpkg.Day(days[i]), Value: decimal.NewFromFloat(values[i])}
	}
	return out
}

func TestCompute_ZeroVarianceSharpeIsNotAvailable(t *testing.T) {
	r := newCalculator(12).Compute(build(100, 100, 100, 100), "", nil)

	require.True(t, r.Volatility.IsAvailable())
	assert.Equal(t, 0.0, r.Volatility.Float())
	assert.False(t, r.Sharpe.IsAvailable())
	assert.Equal(t, domain.ReasonZeroVariance, r.Sharpe.Reason)
	assert.Equal(t, domain.ReasonNoDownside, r.Sortino.Reason)
	assert.Equal(t, CategoryUnavailable, r.RiskCategory)
	assert.InDelta(t, 0, r.CAGR.Float(), 1e-12)
}

func TestCompute_Drawdown(t *testing.T) {
	r := newCalculator(12).Compute(build(100, 120, 90, 95, 130), "", nil)

	require.True(t, r.Drawdown.Max.IsAvailable())
	assert.InDelta(t, 0.25, r.Drawdown.Max.Float(), 1e-12)
	assert.Equal(t, "2024-01-02", r.Drawdown.PeakDate)
	assert.Equal(t, "2024-01-03", r.Drawdown.TroughDate)
	assert.Equal(t, "2024-01-05", r.Drawdown.RecoveryDate)
	assert.True(t, r.Drawdown.Recovered)
}

func TestCompute_DrawdownNotRecovered(t *testing.T) {
	r := newCalculator(12).Compute(build(100, 80, 90), "", nil)

	assert.InDelta(t, 0.2, r.Drawdown.Max.Float(), 1e-12)
	assert.Empty(t, r.Drawdown.RecoveryDate)
	assert.False(t, r.Drawdown.Recovered)
}

func TestCompute_SinglePointIsInsufficientEverywhere(t *testing.T) {
	r := newCalculator(0).Compute(build(100), "^GSPC", nil)

	for name, m := range map[string]domain.Metric{
		"cagr":       r.CAGR,
		"volatility": r.Volatility,
		"sharpe":     r.Sharpe,
		"sortino":    r.Sortino,
		"drawdown":   r.Drawdown.Max,
		"var95":      r.VaR95,
		"cvar95":     r.CVaR95,
		"cumulative": r.CumulativeReturn,
	} {
		assert.False(t, m.IsAvailable(), name)
		assert.Equal(t, domain.ReasonInsufficientData, m.Reason, name)
	}
	assert.Equal(t, domain.ReasonNoBenchmark, r.Beta.Reason)
	assert.Equal(t, []string{"acct"}, r.InsufficientAccounts)
	assert.Empty(t, r.Accounts)
}

func TestCompute_DegenerateBaseIsIsolated(t *testing.T) {
	r := newCalculator(12).Compute(build(0, 100, 110, 99), "", nil)

	assert.Equal(t, domain.ReasonDegenerateBase, r.CAGR.Reason)
	assert.Equal(t, 2, r.Returns)
	assert.True(t, r.Volatility.IsAvailable(), "returns after the zero base still count")
	assert.Equal(t, domain.ReasonDegenerateBase, r.Sharpe.Reason)
	assert.True(t, r.Drawdown.Max.IsAvailable())
}

func TestCompute_VaRRequiresTwentyReturns(t *testing.T) {
	values := make([]float64, 0, 25)
	v := 100.0
	for i := 0; i < 25; i++ {
		if i%3 == 0 {
			v *= 0.97
		} else {
			v *= 1.02
		}
		values = append(values, v)
	}

	short := newCalculator(12).Compute(build(values[:10]...), "", nil)
	assert.Equal(t, domain.ReasonInsufficientData, short.VaR95.Reason)

	full := newCalculator(12).Compute(build(values...), "", nil)
	require.True(t, full.VaR95.IsAvailable())
	require.True(t, full.CVaR95.IsAvailable())
	assert.LessOrEqual(t, full.CVaR95.Float(), full.VaR95.Float())
	assert.InDelta(t, -0.03, full.VaR95.Float(), 1e-9)
}

func TestCompute_InferredPeriodsPerYear(t *testing.T) {
	obs := []domain.Observation{
		testingpkg.Observation("a", 1, "100"),
		testingpkg.Observation("a", 32, "101"),
		testingpkg.Observation("a", 61, "103"),
	}
	r := newCalculator(0).Compute(series.Build(obs, nil), "", nil)

	require.True(t, r.PeriodsPerYear.IsAvailable())
	assert.InDelta(t, 2/(60/365.25), r.PeriodsPerYear.Float(), 1e-9)
	require.True(t, r.CAGR.IsAvailable())
	assert.InDelta(t, math.Pow(1.03, 365.25/60)-1, r.CAGR.Float(), 1e-9)
}

func TestCompute_Benchmark(t *testing.T) {
	values := []float64{100, 104, 101, 108, 112, 109}
	calc := newCalculator(12)
	res := build(values...)

	t.Run("missing benchmark", func(t *testing.T) {
		r := calc.Compute(res, "^GSPC", nil)
		for _, m := range []domain.Metric{r.Beta, r.Alpha, r.TrackingError, r.InformationRatio} {
			assert.Equal(t, domain.ReasonNoBenchmark, m.Reason)
		}
		assert.True(t, r.Sharpe.IsAvailable(), "siblings still computed")
	})

	t.Run("no overlap", func(t *testing.T) {
		r := calc.Compute(res, "^GSPC", benchmarkFrom([]int{40, 41, 42}, []float64{1, 2, 3}))
		assert.Equal(t, 0, r.BenchmarkObservations)
		assert.Equal(t, domain.ReasonNoOverlap, r.Beta.Reason)
		assert.Equal(t, domain.ReasonNoOverlap, r.Alpha.Reason)
	})

	t.Run("scaled copy", func(t *testing.T) {
		days := []int{1, 2, 3, 4, 5, 6}
		doubled := make([]float64, len(values))
		for i, v := range values {
			doubled[i] = 2 * v
		}
		r := calc.Compute(res, "^GSPC", benchmarkFrom(days, doubled))

		assert.Equal(t, 6, r.BenchmarkObservations)
		assert.InDelta(t, 1, r.Beta.Float(), 1e-9)
		assert.InDelta(t, 0, r.Alpha.Float(), 1e-9)
		assert.InDelta(t, 0, r.TrackingError.Float(), 1e-9)
		assert.Equal(t, domain.ReasonZeroVariance, r.InformationRatio.Reason)
	})

	t.Run("partial overlap uses the inner join", func(t *testing.T) {
		r := calc.Compute(res, "^GSPC", benchmarkFrom([]int{2, 4, 6, 9}, []float64{50, 51, 53, 60}))
		assert.Equal(t, 3, r.BenchmarkObservations)
		assert.True(t, r.Beta.IsAvailable())
		assert.True(t, r.Alpha.IsAvailable())
	})
}

func TestCompute_PerAccount(t *testing.T) {
	obs := []domain.Observation{
		testingpkg.Observation("a", 1, "100"),
		testingpkg.Observation("a", 2, "120"),
		testingpkg.Observation("a", 3, "90"),
		testingpkg.Observation("b", 2, "50"),
	}
	r := newCalculator(12).Compute(series.Build(obs, nil), "", nil)

	require.Len(t, r.Accounts, 1)
	assert.Equal(t, "a", r.Accounts[0].AccountID)
	assert.InDelta(t, 0.25, r.Accounts[0].Drawdown.Max.Float(), 1e-12)
	assert.True(t, r.Accounts[0].Volatility.IsAvailable())
	assert.Equal(t, []string{"b"}, r.InsufficientAccounts)
}

func TestCategory(t *testing.T) {
	tests := []struct {
		sharpe float64
		want   string
	}{
		{-0.1, CategoryPoor},
		{0, CategoryBelowAverage},
		{0.7, CategoryGood},
		{1.5, CategoryVeryGood},
		{2, CategoryExcellent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Category(domain.Available(tt.sharpe)), "sharpe %v", tt.sharpe)
	}
	assert.Equal(t, CategoryUnavailable, Category(domain.Unavailable(domain.ReasonZeroVariance)))
}
