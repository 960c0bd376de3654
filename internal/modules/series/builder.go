// Package series builds the aligned daily portfolio series from base-currency observations.
package series

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/domain"
)

// Point is one DailyPortfolioPoint. There is one per distinct observed date.
//
// TotalValue always equals the sum of PerAccountValues, which holds the tracked
// accounts only. Untracked accounts appear in UntrackedValues and count towards
// AllAccountsTotal. Accounts without any observation yet are absent from both maps.
type Point struct {
	Date             time.Time
	TotalValue       decimal.Decimal
	PerAccountValues map[string]decimal.Decimal
	UntrackedValues  map[string]decimal.Decimal
	AllAccountsTotal decimal.Decimal
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date             string                     `json:"date"`
		TotalValue       decimal.Decimal            `json:"total_value"`
		PerAccountValues map[string]decimal.Decimal `json:"per_account_values"`
		UntrackedValues  map[string]decimal.Decimal `json:"untracked_values,omitempty"`
		AllAccountsTotal decimal.Decimal            `json:"all_accounts_total"`
	}{
		Date:             domain.FormatDate(p.Date),
		TotalValue:       p.TotalValue,
		PerAccountValues: p.PerAccountValues,
		UntrackedValues:  p.UntrackedValues,
		AllAccountsTotal: p.AllAccountsTotal,
	})
}

// AccountDelta is the change of one account between two consecutive actual observations.
type AccountDelta struct {
	AccountID string
	FromDate  time.Time
	ToDate    time.Time
	FromValue decimal.Decimal
	ToValue   decimal.Decimal
	Delta     decimal.Decimal
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (d AccountDelta) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AccountID string          `json:"account_id"`
		FromDate  string          `json:"from_date"`
		ToDate    string          `json:"to_date"`
		FromValue decimal.Decimal `json:"from_value"`
		ToValue   decimal.Decimal `json:"to_value"`
		Delta     decimal.Decimal `json:"delta"`
	}{d.AccountID, domain.FormatDate(d.FromDate), domain.FormatDate(d.ToDate), d.FromValue, d.ToValue, d.Delta})
}

// AccountHistory holds the actual (not forward-filled) observations of one account.
type AccountHistory struct {
	AccountID    string
	Tracked      bool
	Observations []domain.Observation
}

// Dates returns the observed dates.
func (h AccountHistory) Dates() []time.Time {
	out := make([]time.Time, len(h.Observations))
	for i, o := range h.Observations {
		out[i] = o.Date
	}
	return out
}

// Result is the output of Build.
type Result struct {
	Points []Point
	// Deltas are ordered by ToDate then account id.
	Deltas []AccountDelta
	// Accounts are ordered by id.
	Accounts []AccountHistory
	// Insufficient lists accounts with fewer than two observed dates. They yield
	// no deltas and are excluded from per-account drawdown and volatility.
	Insufficient []string
}

// TotalSeries returns the dates and tracked totals as float64 for the statistics layer.
func (r *Result) TotalSeries() ([]time.Time, []float64) {
	dates := make([]time.Time, len(r.Points))
	values := make([]float64, len(r.Points))
	for i, p := range r.Points {
		dates[i] = p.Date
		values[i] = p.TotalValue.InexactFloat64()
	}
	return dates, values
}

// History returns the history of one account, or nil.
func (r *Result) History(accountID string) *AccountHistory {
	i := sort.Search(len(r.Accounts), func(i int) bool { return r.Accounts[i].AccountID >= accountID })
	if i < len(r.Accounts) && r.Accounts[i].AccountID == accountID {
		return &r.Accounts[i]
	}
	return nil
}

// Build aligns observations onto the sorted union of their dates.
//
// At each date an account's value is its latest observation at or before that
// date (forward-fill, never backward-fill). tracked selects the accounts that
// count towards TotalValue; nil means every account is tracked. Observations
// must be unique per (account, date).
func Build(observations []domain.Observation, tracked map[string]bool) *Result {
	sorted := make([]domain.Observation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].AccountID < sorted[j].AccountID
	})

	isTracked := func(id string) bool {
		if tracked == nil {
			return true
		}
		return tracked[id]
	}

	histories := make(map[string]*AccountHistory)
	result := &Result{}
	current := make(map[string]decimal.Decimal)

	for i := 0; i < len(sorted); {
		date := sorted[i].Date

		for ; i < len(sorted) && sorted[i].Date.Equal(date); i++ {
			obs := sorted[i]
			h, ok := histories[obs.AccountID]
			if !ok {
				h = &AccountHistory{AccountID: obs.AccountID, Tracked: isTracked(obs.AccountID)}
				histories[obs.AccountID] = h
			}

			if n := len(h.Observations); n > 0 {
				prev := h.Observations[n-1]
				result.Deltas = append(result.Deltas, AccountDelta{
					AccountID: obs.AccountID,
					FromDate:  prev.Date,
					ToDate:    obs.Date,
					FromValue: prev.BaseValue,
					ToValue:   obs.BaseValue,
					Delta:     obs.BaseValue.Sub(prev.BaseValue),
				})
			}
			h.Observations = append(h.Observations, obs)
			current[obs.AccountID] = obs.BaseValue
		}

		result.Points = append(result.Points, newPoint(date, current, isTracked))
	}

	ids := make([]string, 0, len(histories))
	for id := range histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		h := histories[id]
		result.Accounts = append(result.Accounts, *h)
		if len(h.Observations) < 2 {
			result.Insufficient = append(result.Insufficient, id)
		}
	}

	return result
}

func newPoint(date time.Time, current map[string]decimal.Decimal, isTracked func(string) bool) Point {
	p := Point{
		Date:             date,
		TotalValue:       decimal.Zero,
		PerAccountValues: make(map[string]decimal.Decimal, len(current)),
		AllAccountsTotal: decimal.Zero,
	}

	for id, v := range current {
		if isTracked(id) {
			p.PerAccountValues[id] = v
			p.TotalValue = p.TotalValue.Add(v)
		} else {
			if p.UntrackedValues == nil {
				p.UntrackedValues = make(map[string]decimal.Decimal)
			}
			p.UntrackedValues[id] = v
		}
		p.AllAccountsTotal = p.AllAccountsTotal.Add(v)
	}

	return p
}
