// Package correlation computes pairwise return correlations between accounts and
// a diversification score derived from them.
package correlation

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/series"
	"github.com/aristath/networth/pkg/formulas"
)

const (
	// DefaultMinOverlap is the minimum number of common observed dates per pair.
	DefaultMinOverlap = 10

	// CorrelatedThreshold and UncorrelatedThreshold bound the listed pairs by |ρ|.
	CorrelatedThreshold   = 0.7
	UncorrelatedThreshold = 0.3
)

// Pair is one off-diagonal entry of the matrix.
type Pair struct {
	AccountA    string  `json:"account_a"`
	AccountB    string  `json:"account_b"`
	Correlation float64 `json:"correlation"`
	Overlap     int     `json:"overlap"`
}

// Matrix is a symmetric correlation matrix indexed by account id. The diagonal
// is exactly 1. Entries without enough overlap are not available.
type Matrix struct {
	AccountIDs []string
	MinOverlap int

	values  *mat.SymDense
	reasons map[[2]int]domain.ReasonCode
	overlap [][]int
	index   map[string]int

	// DiversificationScore is 100 * (1 - mean |ρ|) over the available
	// off-diagonal entries, clamped to [0, 100].
	DiversificationScore domain.Metric
	MeanAbsCorrelation   domain.Metric
	CorrelatedPairs      []Pair
	UncorrelatedPairs    []Pair
	UnavailablePairs     int
}

// Size returns the number of accounts.
func (m *Matrix) Size() int {
	return len(m.AccountIDs)
}

// Cell returns the entry at row i and column j.
func (m *Matrix) Cell(i, j int) domain.Metric {
	if i == j {
		return domain.Available(1)
	}
	if reason, ok := m.reasons[key(i, j)]; ok {
		return domain.Unavailable(reason)
	}
	return domain.Available(m.values.At(i, j))
}

// At returns the entry for two account ids. Unknown ids are insufficient data.
func (m *Matrix) At(a, b string) domain.Metric {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return domain.Unavailable(domain.ReasonInsufficientData)
	}
	return m.Cell(i, j)
}

// Overlap returns the number of common observed dates of two accounts.
func (m *Matrix) Overlap(a, b string) int {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return 0
	}
	return m.overlap[i][j]
}

// Symmetric exposes the raw values. Unavailable entries are NaN.
func (m *Matrix) Symmetric() mat.Symmetric {
	return m.values
}

// MarshalJSON renders the matrix as nested rows of metrics.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	n := m.Size()
	rows := make([][]domain.Metric, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]domain.Metric, n)
		for j := 0; j < n; j++ {
			rows[i][j] = m.Cell(i, j)
		}
	}
	return json.Marshal(struct {
		AccountIDs           []string          `json:"account_ids"`
		Matrix               [][]domain.Metric `json:"matrix"`
		Overlap              [][]int           `json:"overlap"`
		MinOverlap           int               `json:"min_overlap"`
		DiversificationScore domain.Metric     `json:"diversification_score"`
		MeanAbsCorrelation   domain.Metric     `json:"mean_abs_correlation"`
		CorrelatedPairs      []Pair            `json:"correlated_pairs"`
		UncorrelatedPairs    []Pair            `json:"uncorrelated_pairs"`
		UnavailablePairs     int               `json:"unavailable_pairs"`
	}{
		AccountIDs:           m.AccountIDs,
		Matrix:               rows,
		Overlap:              m.overlap,
		MinOverlap:           m.MinOverlap,
		DiversificationScore: m.DiversificationScore,
		MeanAbsCorrelation:   m.MeanAbsCorrelation,
		CorrelatedPairs:      m.CorrelatedPairs,
		UncorrelatedPairs:    m.UncorrelatedPairs,
		UnavailablePairs:     m.UnavailablePairs,
	})
}

// Analyzer builds correlation matrices
type Analyzer struct {
	minOverlap int
	log        zerolog.Logger
}

// NewAnalyzer creates an analyzer. A non-positive minOverlap selects DefaultMinOverlap.
func NewAnalyzer(minOverlap int, log zerolog.Logger) *Analyzer {
	if minOverlap <= 0 {
		minOverlap = DefaultMinOverlap
	}
	return &Analyzer{
		minOverlap: minOverlap,
		log:        log.With().Str("service", "correlation").Logger(),
	}
}

// Analyze correlates every pair of accounts in the series result.
//
// Each pair uses the intersection of the two accounts' actual observation
// dates, never forward-filled values. Returns are taken between consecutive
// common dates and periods with a degenerate base on either side are dropped.
func (a *Analyzer) Analyze(res *series.Result) *Matrix {
	n := len(res.Accounts)
	m := &Matrix{
		AccountIDs:        make([]string, n),
		MinOverlap:        a.minOverlap,
		values:            mat.NewSymDense(max(n, 1), nil),
		reasons:           make(map[[2]int]domain.ReasonCode),
		overlap:           make([][]int, n),
		index:             make(map[string]int, n),
		CorrelatedPairs:   []Pair{},
		UncorrelatedPairs: []Pair{},
	}

	observed := make([]map[string]float64, n)
	for i, h := range res.Accounts {
		m.AccountIDs[i] = h.AccountID
		m.index[h.AccountID] = i
		m.overlap[i] = make([]int, n)
		m.overlap[i][i] = len(h.Observations)
		m.values.SetSym(i, i, 1)

		observed[i] = make(map[string]float64, len(h.Observations))
		for _, o := range h.Observations {
			observed[i][domain.FormatDate(o.Date)] = o.BaseValue.InexactFloat64()
		}
	}

	var sumAbs float64
	var available int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			x, y := intersect(res.Accounts[i], observed[j])
			m.overlap[i][j], m.overlap[j][i] = len(x), len(x)

			rho, reason := a.pair(x, y)
			if reason != domain.ReasonNone {
				m.reasons[key(i, j)] = reason
				m.values.SetSym(i, j, math.NaN())
				m.UnavailablePairs++
				continue
			}

			m.values.SetSym(i, j, rho)
			sumAbs += math.Abs(rho)
			available++

			p := Pair{AccountA: m.AccountIDs[i], AccountB: m.AccountIDs[j], Correlation: rho, Overlap: len(x)}
			if math.Abs(rho) >= CorrelatedThreshold {
				m.CorrelatedPairs = append(m.CorrelatedPairs, p)
			}
			if math.Abs(rho) <= UncorrelatedThreshold {
				m.UncorrelatedPairs = append(m.UncorrelatedPairs, p)
			}
		}
	}

	if available == 0 {
		m.MeanAbsCorrelation = domain.Unavailable(domain.ReasonInsufficientData)
		m.DiversificationScore = domain.Unavailable(domain.ReasonInsufficientData)
	} else {
		mean := sumAbs / float64(available)
		m.MeanAbsCorrelation = domain.Available(mean)
		m.DiversificationScore = domain.Available(Score(mean))
	}

	sort.SliceStable(m.CorrelatedPairs, func(i, j int) bool {
		return math.Abs(m.CorrelatedPairs[i].Correlation) > math.Abs(m.CorrelatedPairs[j].Correlation)
	})
	sort.SliceStable(m.UncorrelatedPairs, func(i, j int) bool {
		return math.Abs(m.UncorrelatedPairs[i].Correlation) < math.Abs(m.UncorrelatedPairs[j].Correlation)
	})

	a.log.Debug().
		Int("accounts", n).
		Int("available_pairs", available).
		Int("unavailable_pairs", m.UnavailablePairs).
		Msg("Correlation matrix computed")
	return m
}

func (a *Analyzer) pair(x, y []float64) (float64, domain.ReasonCode) {
	if len(x) < a.minOverlap {
		return 0, domain.ReasonInsufficientData
	}

	rx, ry := formulas.Returns(x), formulas.Returns(y)
	fx := make([]float64, 0, len(rx))
	fy := make([]float64, 0, len(ry))
	for k := range rx {
		if len(formulas.Finite([]float64{rx[k], ry[k]})) == 2 {
			fx = append(fx, rx[k])
			fy = append(fy, ry[k])
		}
	}

	rho, err := formulas.Correlation(fx, fy)
	if err != nil {
		return 0, domain.ReasonFor(err)
	}
	return rho, domain.ReasonNone
}

// intersect returns the values of two accounts on their common observed dates,
// in date order.
func intersect(h series.AccountHistory, other map[string]float64) ([]float64, []float64) {
	var x, y []float64
	for _, o := range h.Observations {
		if v, ok := other[domain.FormatDate(o.Date)]; ok {
			x = append(x, o.BaseValue.InexactFloat64())
			y = append(y, v)
		}
	}
	return x, y
}

// Score maps a mean absolute correlation to a diversification score in [0, 100].
func Score(meanAbs float64) float64 {
	return math.Max(0, math.Min(100, 100*(1-meanAbs)))
}

func key(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}
