package correlation

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/series"
	testingpkg "github.com/aristath/networth/internal/testing"
)

// walk returns n values starting at start whose returns alternate between up and down.
func walk(start float64, n int, up, down float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		out[i] = v
		if i%2 == 0 {
			v *= 1 + up
		} else {
			v *= 1 + down
		}
	}
	return out
}

// wave returns n values oscillating around level with an irregular period.
func wave(level float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level + 10*math.Sin(float64(i)) + float64(i)
	}
	return out
}

func observations(account string, days []int, values []float64) []domain.Observation {
	out := make([]domain.Observation, len(days))
	for i, d := range days {
		out[i] = testingpkg.Observation(account, d, strconv.FormatFloat(values[i], 'f', 6, 64))
	}
	return out
}

func daysRange(from, to, step int) []int {
	var out []int
	for d := from; d <= to; d += step {
		out = append(out, d)
	}
	return out
}

func analyze(t *testing.T, minOverlap int, obs ...[]domain.Observation) *Matrix {
	t.Helper()
	var all []domain.Observation
	for _, o := range obs {
		all = append(all, o...)
	}
	return NewAnalyzer(minOverlap, zerolog.Nop()).Analyze(series.Build(all, nil))
}

func TestAnalyze_MatrixShape(t *testing.T) {
	days := daysRange(1, 12, 1)
	base := walk(100, 12, 0.02, -0.01)
	doubled := make([]float64, len(base))
	for i, v := range base {
		doubled[i] = 2 * v
	}

	m := analyze(t, 10,
		observations("a", days, base),
		observations("b", days, doubled),
		observations("c", days, walk(100, 12, -0.01, 0.02)),
		observations("d", daysRange(1, 5, 1), walk(50, 5, 0.01, -0.02)),
		observations("e", days, walk(10, 12, 0, 0)),
	)

	require.Equal(t, []string{"a", "b", "c", "d", "e"}, m.AccountIDs)
	for i := 0; i < m.Size(); i++ {
		assert.Equal(t, 1.0, m.Cell(i, i).Float(), "diagonal")
		for j := 0; j < m.Size(); j++ {
			assert.Equal(t, m.Cell(i, j), m.Cell(j, i), "symmetry %d,%d", i, j)
			if c := m.Cell(i, j); c.IsAvailable() {
				assert.GreaterOrEqual(t, c.Float(), -1.0)
				assert.LessOrEqual(t, c.Float(), 1.0)
			}
		}
	}

	assert.InDelta(t, 1, m.At("a", "b").Float(), 1e-9)
	assert.InDelta(t, -1, m.At("a", "c").Float(), 1e-9)
	assert.Equal(t, domain.ReasonInsufficientData, m.At("a", "d").Reason)
	assert.Equal(t, 5, m.Overlap("a", "d"))
	assert.Equal(t, domain.ReasonZeroVariance, m.At("a", "e").Reason)

	assert.True(t, math.IsNaN(m.Symmetric().At(0, 3)))
	assert.Len(t, m.CorrelatedPairs, 3)
	assert.Empty(t, m.UncorrelatedPairs)
	assert.Equal(t, 7, m.UnavailablePairs)

	require.True(t, m.DiversificationScore.IsAvailable())
	assert.InDelta(t, 0, m.DiversificationScore.Float(), 1e-6)
}

func TestAnalyze_UsesObservedDatesOnly(t *testing.T) {
	// y is observed every other day; forward-filling would fabricate overlap.
	x := observations("x", daysRange(1, 20, 1), wave(100, 20))
	y := observations("y", daysRange(2, 20, 2), walk(100, 10, 0.01, -0.01))

	m := analyze(t, 10, x, y)

	assert.Equal(t, 10, m.Overlap("x", "y"))
	assert.True(t, m.At("x", "y").IsAvailable())

	strict := analyze(t, 11, x, y)
	assert.Equal(t, domain.ReasonInsufficientData, strict.At("x", "y").Reason)
	assert.False(t, strict.DiversificationScore.IsAvailable())
}

func TestAnalyze_SingleAccountAndEmpty(t *testing.T) {
	single := analyze(t, 10, observations("only", daysRange(1, 12, 1), walk(100, 12, 0.01, -0.01)))
	assert.Equal(t, 1, single.Size())
	assert.Equal(t, 1.0, single.At("only", "only").Float())
	assert.Equal(t, domain.ReasonInsufficientData, single.DiversificationScore.Reason)

	empty := analyze(t, 10)
	assert.Equal(t, 0, empty.Size())
	assert.False(t, empty.DiversificationScore.IsAvailable())

	out, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"account_ids":[]`)
}

func TestAnalyze_JSON(t *testing.T) {
	days := daysRange(1, 12, 1)
	m := analyze(t, 10,
		observations("a", days, walk(100, 12, 0.02, -0.01)),
		observations("b", daysRange(1, 3, 1), walk(100, 3, 0.02, -0.01)),
	)

	out, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded struct {
		AccountIDs []string          `json:"account_ids"`
		Matrix     [][]domain.Metric `json:"matrix"`
		Overlap    [][]int           `json:"overlap"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, []string{"a", "b"}, decoded.AccountIDs)
	assert.Equal(t, 1.0, decoded.Matrix[0][0].Float())
	assert.Equal(t, domain.ReasonInsufficientData, decoded.Matrix[0][1].Reason)
	assert.Equal(t, [][]int{{12, 3}, {3, 3}}, decoded.Overlap)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100.0, Score(0))
	assert.Equal(t, 0.0, Score(1))
	assert.InDelta(t, 50, Score(0.5), 1e-12)
	assert.Equal(t, 0.0, Score(1.2))
	assert.Greater(t, Score(0.2), Score(0.4))
}
