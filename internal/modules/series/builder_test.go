package series

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/domain"
	testingpkg "github.com/aristath/networth/internal/testing"
)

func obs(account string, day int, value string) domain.Observation {
	return testingpkg.Observation(account, day, value)
}

func assertTotalIdentity(t *testing.T, r *Result) {
	t.Helper()
	for _, p := range r.Points {
		sum := decimal.Zero
		for _, v := range p.PerAccountValues {
			sum = sum.Add(v)
		}
		assert.True(t, p.TotalValue.Equal(sum), "total mismatch on %s", domain.FormatDate(p.Date))

		all := sum
		for _, v := range p.UntrackedValues {
			all = all.Add(v)
		}
		assert.True(t, p.AllAccountsTotal.Equal(all))
	}
}

func TestBuild_ForwardFillsSparseAccount(t *testing.T) {
	var input []domain.Observation
	input = append(input, obs("sparse", 1, "500"), obs("sparse", 10, "800"))
	for day := 1; day <= 10; day++ {
		input = append(input, obs("daily", day, decimal.NewFromInt(int64(100+day)).String()))
	}

	r := Build(input, nil)
	require.Len(t, r.Points, 10)

	for day := 1; day <= 9; day++ {
		p := r.Points[day-1]
		assert.Equal(t, testingpkg.Day(day), p.Date)
		assert.True(t, p.PerAccountValues["sparse"].Equal(testingpkg.Dec("500")), "day %d", day)
	}
	assert.True(t, r.Points[9].PerAccountValues["sparse"].Equal(testingpkg.Dec("800")))

	var sparseDeltas []AccountDelta
	for _, d := range r.Deltas {
		if d.AccountID == "sparse" {
			sparseDeltas = append(sparseDeltas, d)
		}
	}
	require.Len(t, sparseDeltas, 1)
	assert.Equal(t, testingpkg.Day(1), sparseDeltas[0].FromDate)
	assert.Equal(t, testingpkg.Day(10), sparseDeltas[0].ToDate)
	assert.True(t, sparseDeltas[0].Delta.Equal(testingpkg.Dec("300")))

	assertTotalIdentity(t, r)
}

func TestBuild_LateAccountIsAbsentBeforeFirstSnapshot(t *testing.T) {
	r := Build([]domain.Observation{
		obs("a", 1, "100"),
		obs("b", 3, "50"),
		obs("a", 5, "110"),
	}, nil)

	require.Len(t, r.Points, 3)
	_, present := r.Points[0].PerAccountValues["b"]
	assert.False(t, present)
	assert.True(t, r.Points[0].TotalValue.Equal(testingpkg.Dec("100")))
	assert.True(t, r.Points[1].TotalValue.Equal(testingpkg.Dec("150")))
	assert.True(t, r.Points[2].TotalValue.Equal(testingpkg.Dec("160")))

	assert.Equal(t, []string{"b"}, r.Insufficient)
	require.Len(t, r.Deltas, 1)
	assert.Equal(t, "a", r.Deltas[0].AccountID)
	assertTotalIdentity(t, r)
}

func TestBuild_UntrackedAccountsOnlyInAllAccountsTotal(t *testing.T) {
	r := Build([]domain.Observation{
		obs("broker", 1, "1000"),
		obs("house", 1, "250000"),
		obs("broker", 2, "1010"),
	}, map[string]bool{"broker": true})

	require.Len(t, r.Points, 2)
	p := r.Points[1]
	assert.True(t, p.TotalValue.Equal(testingpkg.Dec("1010")))
	assert.True(t, p.AllAccountsTotal.Equal(testingpkg.Dec("251010")))
	assert.Contains(t, p.UntrackedValues, "house")
	assert.NotContains(t, p.PerAccountValues, "house")

	h := r.History("house")
	require.NotNil(t, h)
	assert.False(t, h.Tracked)
	assert.Nil(t, r.History("missing"))
	assertTotalIdentity(t, r)
}

func TestBuild_DeltasSumToNetChange(t *testing.T) {
	r := Build([]domain.Observation{
		obs("a", 1, "100.10"),
		obs("a", 4, "99.95"),
		obs("a", 9, "120.33"),
		obs("a", 12, "118.01"),
	}, nil)

	sum := decimal.Zero
	for _, d := range r.Deltas {
		sum = sum.Add(d.Delta)
	}
	assert.True(t, sum.Equal(testingpkg.Dec("118.01").Sub(testingpkg.Dec("100.10"))))
}

func TestBuild_UnorderedInputAndEmpty(t *testing.T) {
	r := Build([]domain.Observation{obs("a", 3, "3"), obs("a", 1, "1"), obs("a", 2, "2")}, nil)
	dates, values := r.TotalSeries()
	assert.Equal(t, []float64{1, 2, 3}, values)
	assert.Equal(t, testingpkg.Day(1), dates[0])

	empty := Build(nil, nil)
	assert.Empty(t, empty.Points)
	assert.Empty(t, empty.Deltas)
}

func TestPoint_MarshalJSON(t *testing.T) {
	r := Build([]domain.Observation{obs("a", 1, "1.50")}, nil)
	out, err := json.Marshal(r.Points[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-01","total_value":"1.5","per_account_values":{"a":"1.5"},"all_accounts_total":"1.5"}`, string(out))
}
