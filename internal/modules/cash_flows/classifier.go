package cash_flows

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/series"
)

// Classification labels a cash-flow event.
type Classification string

const (
	ClassContribution       Classification = "contribution"
	ClassWithdrawal         Classification = "withdrawal"
	ClassUnclassifiedGrowth Classification = "unclassified_growth"
)

// Event is the classified change of one account between two actual observations.
//
// Contribution + Withdrawal + UnclassifiedGrowth == Delta always holds. Withdrawal
// is zero or negative. UnclassifiedGrowth is the residual and may be negative.
type Event struct {
	Date               time.Time
	FromDate           time.Time
	AccountID          string
	Delta              decimal.Decimal
	Classification     Classification
	Contribution       decimal.Decimal
	Withdrawal         decimal.Decimal
	UnclassifiedGrowth decimal.Decimal
	AnnotationIDs      []string
}

// NetFlow is the annotated part of the delta.
func (e Event) NetFlow() decimal.Decimal {
	return e.Contribution.Add(e.Withdrawal)
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date               string          `json:"date"`
		FromDate           string          `json:"from_date"`
		AccountID          string          `json:"account_id"`
		Delta              decimal.Decimal `json:"delta"`
		Classification     Classification  `json:"classification"`
		Contribution       decimal.Decimal `json:"contribution"`
		Withdrawal         decimal.Decimal `json:"withdrawal"`
		UnclassifiedGrowth decimal.Decimal `json:"unclassified_growth"`
		AnnotationIDs      []string        `json:"annotation_ids,omitempty"`
	}{
		Date:               domain.FormatDate(e.Date),
		FromDate:           domain.FormatDate(e.FromDate),
		AccountID:          e.AccountID,
		Delta:              e.Delta,
		Classification:     e.Classification,
		Contribution:       e.Contribution,
		Withdrawal:         e.Withdrawal,
		UnclassifiedGrowth: e.UnclassifiedGrowth,
		AnnotationIDs:      e.AnnotationIDs,
	})
}

// Classify turns per-account deltas into classified events.
//
// An annotation belongs to the delta of its account whose interval contains it,
// FromDate < annotation date <= ToDate. Annotations outside every interval of
// their account are returned as unmatched and never touch the totals. Deltas of
// zero produce an event only when annotated.
func Classify(deltas []series.AccountDelta, annotations []domain.FlowAnnotation) ([]Event, []domain.FlowAnnotation) {
	byAccount := make(map[string][]int)
	for i, d := range deltas {
		byAccount[d.AccountID] = append(byAccount[d.AccountID], i)
	}

	matched := make(map[int][]domain.FlowAnnotation)
	var unmatched []domain.FlowAnnotation

	for _, a := range annotations {
		idx := -1
		for _, i := range byAccount[a.AccountID] {
			d := deltas[i]
			if a.Date.After(d.FromDate) && !a.Date.After(d.ToDate) {
				idx = i
				break
			}
		}
		if idx < 0 {
			unmatched = append(unmatched, a)
			continue
		}
		matched[idx] = append(matched[idx], a)
	}

	var result []Event
	for i, d := range deltas {
		anns := matched[i]
		if d.Delta.IsZero() && len(anns) == 0 {
			continue
		}
		result = append(result, classifyDelta(d, anns))
	}
	return result, unmatched
}

func classifyDelta(d series.AccountDelta, anns []domain.FlowAnnotation) Event {
	e := Event{
		Date:         d.ToDate,
		FromDate:     d.FromDate,
		AccountID:    d.AccountID,
		Delta:        d.Delta,
		Contribution: decimal.Zero,
		Withdrawal:   decimal.Zero,
	}

	for _, a := range anns {
		switch a.Kind {
		case domain.FlowContribution:
			e.Contribution = e.Contribution.Add(a.Amount)
		case domain.FlowWithdrawal:
			e.Withdrawal = e.Withdrawal.Sub(a.Amount)
		}
		e.AnnotationIDs = append(e.AnnotationIDs, a.ID)
	}

	e.UnclassifiedGrowth = d.Delta.Sub(e.NetFlow())

	switch e.NetFlow().Sign() {
	case 1:
		e.Classification = ClassContribution
	case -1:
		e.Classification = ClassWithdrawal
	default:
		e.Classification = ClassUnclassifiedGrowth
	}
	return e
}

// AccountBreakdown is the decomposition of one account's change over the range.
type AccountBreakdown struct {
	AccountID          string          `json:"account_id"`
	Tracked            bool            `json:"tracked"`
	FirstDate          string          `json:"first_date"`
	LastDate           string          `json:"last_date"`
	FirstValue         decimal.Decimal `json:"first_value"`
	LastValue          decimal.Decimal `json:"last_value"`
	Change             decimal.Decimal `json:"change"`
	Contributions      decimal.Decimal `json:"contributions"`
	Withdrawals        decimal.Decimal `json:"withdrawals"`
	UnclassifiedGrowth decimal.Decimal `json:"unclassified_growth"`
	InsufficientData   bool            `json:"insufficient_data,omitempty"`
}

// Breakdown separates net cash flow from net worth change over all accounts.
//
// NetCashFlow + UnclassifiedGrowth == NetWorthChange, and
// EndingTotal - StartingTotal == NetWorthChange + AccountOpenings, where
// AccountOpenings is the first observed value of accounts that appear after
// the first date of the range.
type Breakdown struct {
	StartDate          string                  `json:"start_date,omitempty"`
	EndDate            string                  `json:"end_date,omitempty"`
	StartingTotal      decimal.Decimal         `json:"starting_total"`
	EndingTotal        decimal.Decimal         `json:"ending_total"`
	NetWorthChange     decimal.Decimal         `json:"net_worth_change"`
	TotalContributions decimal.Decimal         `json:"total_contributions"`
	TotalWithdrawals   decimal.Decimal         `json:"total_withdrawals"`
	NetCashFlow        decimal.Decimal         `json:"net_cash_flow"`
	UnclassifiedGrowth decimal.Decimal         `json:"unclassified_growth"`
	AccountOpenings    decimal.Decimal         `json:"account_openings"`
	Accounts           []AccountBreakdown      `json:"accounts"`
	Events             []Event                 `json:"events"`
	UnmatchedFlows     []domain.FlowAnnotation `json:"unmatched_flows"`
}

// BuildBreakdown classifies the deltas of a built series and aggregates them.
func BuildBreakdown(res *series.Result, annotations []domain.FlowAnnotation) *Breakdown {
	b := &Breakdown{
		StartingTotal:      decimal.Zero,
		EndingTotal:        decimal.Zero,
		NetWorthChange:     decimal.Zero,
		TotalContributions: decimal.Zero,
		TotalWithdrawals:   decimal.Zero,
		NetCashFlow:        decimal.Zero,
		UnclassifiedGrowth: decimal.Zero,
		AccountOpenings:    decimal.Zero,
		Accounts:           []AccountBreakdown{},
		Events:             []Event{},
		UnmatchedFlows:     []domain.FlowAnnotation{},
	}

	events, unmatched := Classify(res.Deltas, annotations)
	if events != nil {
		b.Events = events
	}
	if unmatched != nil {
		b.UnmatchedFlows = unmatched
	}

	if len(res.Points) == 0 {
		return b
	}
	first, last := res.Points[0], res.Points[len(res.Points)-1]
	b.StartDate = domain.FormatDate(first.Date)
	b.EndDate = domain.FormatDate(last.Date)
	b.StartingTotal = first.AllAccountsTotal
	b.EndingTotal = last.AllAccountsTotal

	b.Accounts = make([]AccountBreakdown, 0, len(res.Accounts))
	perAccount := make(map[string]*AccountBreakdown, len(res.Accounts))
	for _, h := range res.Accounts {
		if len(h.Observations) == 0 {
			continue
		}
		o0, on := h.Observations[0], h.Observations[len(h.Observations)-1]
		ab := AccountBreakdown{
			AccountID:          h.AccountID,
			Tracked:            h.Tracked,
			FirstDate:          domain.FormatDate(o0.Date),
			LastDate:           domain.FormatDate(on.Date),
			FirstValue:         o0.BaseValue,
			LastValue:          on.BaseValue,
			Change:             on.BaseValue.Sub(o0.BaseValue),
			Contributions:      decimal.Zero,
			Withdrawals:        decimal.Zero,
			UnclassifiedGrowth: decimal.Zero,
			InsufficientData:   len(h.Observations) < 2,
		}
		b.Accounts = append(b.Accounts, ab)
		perAccount[h.AccountID] = &b.Accounts[len(b.Accounts)-1]

		if o0.Date.After(first.Date) {
			b.AccountOpenings = b.AccountOpenings.Add(o0.BaseValue)
		}
	}

	for _, d := range res.Deltas {
		b.NetWorthChange = b.NetWorthChange.Add(d.Delta)
	}
	for _, e := range b.Events {
		b.TotalContributions = b.TotalContributions.Add(e.Contribution)
		b.TotalWithdrawals = b.TotalWithdrawals.Add(e.Withdrawal)
		b.UnclassifiedGrowth = b.UnclassifiedGrowth.Add(e.UnclassifiedGrowth)

		if ab, ok := perAccount[e.AccountID]; ok {
			ab.Contributions = ab.Contributions.Add(e.Contribution)
			ab.Withdrawals = ab.Withdrawals.Add(e.Withdrawal)
			ab.UnclassifiedGrowth = ab.UnclassifiedGrowth.Add(e.UnclassifiedGrowth)
		}
	}
	b.NetCashFlow = b.TotalContributions.Add(b.TotalWithdrawals)

	sort.SliceStable(b.Events, func(i, j int) bool {
		if !b.Events[i].Date.Equal(b.Events[j].Date) {
			return b.Events[i].Date.Before(b.Events[j].Date)
		}
		return b.Events[i].AccountID < b.Events[j].AccountID
	})
	return b
}
