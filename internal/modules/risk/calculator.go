// Package risk computes performance and risk statistics of a portfolio value series.
//
// Every metric is computed independently. A metric that cannot be computed is
// reported as not available with a reason code and never blocks its siblings.
package risk

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/series"
	"github.com/aristath/networth/pkg/formulas"
)

// Risk categories derived from the Sharpe ratio.
const (
	CategoryPoor         = "Poor"
	CategoryBelowAverage = "Below Average"
	CategoryGood         = "Good"
	CategoryVeryGood     = "Very Good"
	CategoryExcellent    = "Excellent"
	CategoryUnavailable  = "N/A"
)

// Config holds the process-wide calculation settings.
type Config struct {
	RiskFreeRate float64
	// PeriodsPerYear annualizes per-period statistics. Zero infers it from the
	// observed cadence.
	PeriodsPerYear     float64
	VaRConfidence      float64
	MinVaRObservations int
}

// Drawdown is the maximum drawdown with its dates. Dates are empty when absent;
// RecoveryDate is empty while the series has not regained the peak.
type Drawdown struct {
	Max          domain.Metric `json:"max"`
	PeakDate     string        `json:"peak_date,omitempty"`
	TroughDate   string        `json:"trough_date,omitempty"`
	RecoveryDate string        `json:"recovery_date,omitempty"`
	Recovered    bool          `json:"recovered"`
}

// AccountRisk holds the per-account statistics over actual observations.
type AccountRisk struct {
	AccountID    string        `json:"account_id"`
	Observations int           `json:"observations"`
	Volatility   domain.Metric `json:"volatility"`
	Drawdown     Drawdown      `json:"drawdown"`
}

// Result is the complete risk bundle. It is built fresh on every computation.
type Result struct {
	StartDate      string        `json:"start_date,omitempty"`
	EndDate        string        `json:"end_date,omitempty"`
	Observations   int           `json:"observations"`
	Returns        int           `json:"returns"`
	PeriodsPerYear domain.Metric `json:"periods_per_year"`

	CAGR             domain.Metric `json:"cagr"`
	AnnualizedReturn domain.Metric `json:"annualized_return"`
	CumulativeReturn domain.Metric `json:"cumulative_return"`
	Volatility       domain.Metric `json:"volatility"`
	Sharpe           domain.Metric `json:"sharpe"`
	Sortino          domain.Metric `json:"sortino"`
	Drawdown         Drawdown      `json:"max_drawdown"`
	VaR95            domain.Metric `json:"var95"`
	CVaR95           domain.Metric `json:"cvar95"`
	RiskCategory     string        `json:"risk_category"`

	BenchmarkID           string        `json:"benchmark_id,omitempty"`
	BenchmarkObservations int           `json:"benchmark_observations"`
	BenchmarkReturn       domain.Metric `json:"benchmark_return"`
	Beta                  domain.Metric `json:"beta"`
	Alpha                 domain.Metric `json:"alpha"`
	TrackingError         domain.Metric `json:"tracking_error"`
	InformationRatio      domain.Metric `json:"information_ratio"`

	Accounts []AccountRisk `json:"accounts"`
	// InsufficientAccounts have fewer than two observations and are left out of Accounts.
	InsufficientAccounts []string `json:"insufficient_accounts"`
}

// Calculator computes risk bundles
type Calculator struct {
	cfg Config
	log zerolog.Logger
}

// NewCalculator creates a calculator. Zero VaR settings default to 95% over at
// least 20 observations.
func NewCalculator(cfg Config, log zerolog.Logger) *Calculator {
	if cfg.VaRConfidence <= 0 || cfg.VaRConfidence >= 1 {
		cfg.VaRConfidence = 0.95
	}
	if cfg.MinVaRObservations <= 0 {
		cfg.MinVaRObservations = 20
	}
	return &Calculator{
		cfg: cfg,
		log: log.With().Str("service", "risk").Logger(),
	}
}

// Compute builds the risk bundle for a series. benchmark may be empty, in which
// case the benchmark-relative metrics are not available.
func (c *Calculator) Compute(res *series.Result, benchmarkID string, benchmark []domain.BenchmarkPoint) *Result {
	dates, values := res.TotalSeries()

	r := &Result{
		Observations:         len(values),
		BenchmarkID:          benchmarkID,
		Accounts:             []AccountRisk{},
		InsufficientAccounts: []string{},
	}
	if len(dates) > 0 {
		r.StartDate = domain.FormatDate(dates[0])
		r.EndDate = domain.FormatDate(dates[len(dates)-1])
	}

	returns := formulas.Finite(formulas.Returns(values))
	r.Returns = len(returns)

	ppy, ppyErr := c.periodsPerYear(dates)
	r.PeriodsPerYear = domain.MetricFrom(ppy, ppyErr)

	r.CAGR = c.cagr(values, ppy, ppyErr)
	r.AnnualizedReturn = r.CAGR
	r.CumulativeReturn = domain.MetricFrom(formulas.CumulativeReturn(returns))

	if ppyErr != nil {
		r.Volatility = domain.Unavailable(domain.ReasonFor(ppyErr))
	} else {
		r.Volatility = domain.MetricFrom(formulas.AnnualizedVolatility(returns, ppy))
	}

	r.Sharpe = c.sharpe(r.AnnualizedReturn, r.Volatility)
	r.Sortino = c.sortino(r.AnnualizedReturn, returns, ppy, ppyErr)
	r.Drawdown = drawdown(dates, values)
	r.VaR95 = domain.MetricFrom(formulas.CalculateVaR(returns, c.cfg.VaRConfidence, c.cfg.MinVaRObservations))
	r.CVaR95 = domain.MetricFrom(formulas.CalculateCVaR(returns, c.cfg.VaRConfidence, c.cfg.MinVaRObservations))
	r.RiskCategory = Category(r.Sharpe)

	c.benchmarkMetrics(r, dates, values, benchmark)

	for _, h := range res.Accounts {
		if len(h.Observations) < 2 {
			r.InsufficientAccounts = append(r.InsufficientAccounts, h.AccountID)
			continue
		}
		r.Accounts = append(r.Accounts, c.accountRisk(h))
	}

	c.log.Debug().
		Int("observations", r.Observations).
		Int("returns", r.Returns).
		Str("benchmark", benchmarkID).
		Msg("Risk metrics computed")
	return r
}

func (c *Calculator) periodsPerYear(dates []time.Time) (float64, error) {
	if c.cfg.PeriodsPerYear > 0 {
		return c.cfg.PeriodsPerYear, nil
	}
	if len(dates) < 2 {
		return 0, formulas.ErrInsufficientData
	}
	return formulas.InferPeriodsPerYear(dates[0], dates[len(dates)-1], len(dates)-1)
}

func (c *Calculator) cagr(values []float64, ppy float64, ppyErr error) domain.Metric {
	if len(values) < 2 {
		return domain.Unavailable(domain.ReasonInsufficientData)
	}
	if ppyErr != nil {
		return domain.Unavailable(domain.ReasonFor(ppyErr))
	}
	return domain.MetricFrom(formulas.CalculateCAGR(values[0], values[len(values)-1], len(values)-1, ppy))
}

func (c *Calculator) sharpe(annual, volatility domain.Metric) domain.Metric {
	if !annual.IsAvailable() {
		return domain.Unavailable(annual.Reason)
	}
	if !volatility.IsAvailable() {
		return domain.Unavailable(volatility.Reason)
	}
	return domain.MetricFrom(formulas.CalculateSharpeRatio(annual.Float(), c.cfg.RiskFreeRate, volatility.Float()))
}

func (c *Calculator) sortino(annual domain.Metric, returns []float64, ppy float64, ppyErr error) domain.Metric {
	if !annual.IsAvailable() {
		return domain.Unavailable(annual.Reason)
	}
	if ppyErr != nil {
		return domain.Unavailable(domain.ReasonFor(ppyErr))
	}
	return domain.MetricFrom(formulas.CalculateSortinoRatio(annual.Float(), c.cfg.RiskFreeRate, returns, ppy))
}

// benchmarkMetrics joins the portfolio and benchmark series on common dates
// and derives beta, alpha, tracking error and information ratio from the join.
func (c *Calculator) benchmarkMetrics(r *Result, dates []time.Time, values []float64, benchmark []domain.BenchmarkPoint) {
	if r.BenchmarkID == "" || len(benchmark) == 0 {
		na := domain.Unavailable(domain.ReasonNoBenchmark)
		r.BenchmarkReturn, r.Beta, r.Alpha, r.TrackingError, r.InformationRatio = na, na, na, na, na
		return
	}

	byDate := make(map[string]float64, len(benchmark))
	for _, p := range benchmark {
		byDate[domain.FormatDate(p.Date)] = p.Value.InexactFloat64()
	}

	var joinedDates []time.Time
	var pv, bv []float64
	for i, d := range dates {
		if b, ok := byDate[domain.FormatDate(d)]; ok {
			joinedDates = append(joinedDates, d)
			pv = append(pv, values[i])
			bv = append(bv, b)
		}
	}
	r.BenchmarkObservations = len(joinedDates)

	if len(joinedDates) < 2 {
		na := domain.Unavailable(domain.ReasonNoOverlap)
		r.BenchmarkReturn, r.Beta, r.Alpha, r.TrackingError, r.InformationRatio = na, na, na, na, na
		return
	}

	pr, br := alignedReturns(pv, bv)

	ppy, ppyErr := c.periodsPerYear(joinedDates)
	portfolioAnnual := c.cagr(pv, ppy, ppyErr)
	r.BenchmarkReturn = c.cagr(bv, ppy, ppyErr)
	r.Beta = domain.MetricFrom(formulas.Beta(pr, br))

	switch {
	case !r.Beta.IsAvailable():
		r.Alpha = domain.Unavailable(r.Beta.Reason)
	case !portfolioAnnual.IsAvailable():
		r.Alpha = domain.Unavailable(portfolioAnnual.Reason)
	case !r.BenchmarkReturn.IsAvailable():
		r.Alpha = domain.Unavailable(r.BenchmarkReturn.Reason)
	default:
		r.Alpha = domain.Available(formulas.Alpha(portfolioAnnual.Float(), r.BenchmarkReturn.Float(), r.Beta.Float(), c.cfg.RiskFreeRate))
	}

	if ppyErr != nil {
		r.TrackingError = domain.Unavailable(domain.ReasonFor(ppyErr))
	} else {
		r.TrackingError = domain.MetricFrom(formulas.TrackingError(pr, br, ppy))
	}

	switch {
	case !r.TrackingError.IsAvailable():
		r.InformationRatio = domain.Unavailable(r.TrackingError.Reason)
	case !portfolioAnnual.IsAvailable():
		r.InformationRatio = domain.Unavailable(portfolioAnnual.Reason)
	case !r.BenchmarkReturn.IsAvailable():
		r.InformationRatio = domain.Unavailable(r.BenchmarkReturn.Reason)
	default:
		r.InformationRatio = domain.MetricFrom(formulas.InformationRatio(
			portfolioAnnual.Float(), r.BenchmarkReturn.Float(), r.TrackingError.Float()))
	}
}

// alignedReturns computes the returns of two joined series and drops periods
// where either side is degenerate.
func alignedReturns(a, b []float64) ([]float64, []float64) {
	ra, rb := formulas.Returns(a), formulas.Returns(b)
	outA := make([]float64, 0, len(ra))
	outB := make([]float64, 0, len(rb))
	for i := range ra {
		if len(formulas.Finite([]float64{ra[i], rb[i]})) == 2 {
			outA = append(outA, ra[i])
			outB = append(outB, rb[i])
		}
	}
	return outA, outB
}

func (c *Calculator) accountRisk(h series.AccountHistory) AccountRisk {
	dates := h.Dates()
	values := make([]float64, len(h.Observations))
	for i, o := range h.Observations {
		values[i] = o.BaseValue.InexactFloat64()
	}

	ar := AccountRisk{
		AccountID:    h.AccountID,
		Observations: len(values),
		Drawdown:     drawdown(dates, values),
	}

	ppy, err := c.periodsPerYear(dates)
	if err != nil {
		ar.Volatility = domain.Unavailable(domain.ReasonFor(err))
	} else {
		ar.Volatility = domain.MetricFrom(formulas.AnnualizedVolatility(formulas.Finite(formulas.Returns(values)), ppy))
	}
	return ar
}

func drawdown(dates []time.Time, values []float64) Drawdown {
	dd, err := formulas.CalculateMaxDrawdown(values)
	if err != nil {
		return Drawdown{Max: domain.Unavailable(domain.ReasonFor(err))}
	}

	out := Drawdown{Max: domain.Available(dd.Max), Recovered: dd.Recovered()}
	if dd.PeakIndex >= 0 {
		out.PeakDate = domain.FormatDate(dates[dd.PeakIndex])
	}
	if dd.TroughIndex >= 0 {
		out.TroughDate = domain.FormatDate(dates[dd.TroughIndex])
	}
	if dd.RecoveryIndex >= 0 {
		out.RecoveryDate = domain.FormatDate(dates[dd.RecoveryIndex])
	}
	return out
}

// Category labels a Sharpe ratio.
func Category(sharpe domain.Metric) string {
	if !sharpe.IsAvailable() {
		return CategoryUnavailable
	}
	switch s := sharpe.Float(); {
	case s < 0:
		return CategoryPoor
	case s < 0.5:
		return CategoryBelowAverage
	case s < 1:
		return CategoryGood
	case s < 2:
		return CategoryVeryGood
	default:
		return CategoryExcellent
	}
}
