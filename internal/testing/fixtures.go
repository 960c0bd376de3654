package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/domain"
)

// BaseDate is day 1 of the fixture calendar.
var BaseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Day returns the n-th day of the fixture calendar (Day(1) == BaseDate).
func Day(n int) time.Time {
	return BaseDate.AddDate(0, 0, n-1)
}

// Dec parses a decimal literal, panicking on malformed fixtures.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Snapshot builds a snapshot fixture.
func Snapshot(accountID string, day int, currency, value string) domain.Snapshot {
	return domain.Snapshot{
		Date:      Day(day),
		AccountID: accountID,
		Currency:  currency,
		RawValue:  Dec(value),
	}
}

// Observation builds a base-currency observation fixture.
func Observation(accountID string, day int, value string) domain.Observation {
	return domain.Observation{
		Date:      Day(day),
		AccountID: accountID,
		BaseValue: Dec(value),
	}
}

// Flow builds a flow annotation fixture.
func Flow(accountID string, day int, kind domain.FlowKind, amount string) domain.FlowAnnotation {
	return domain.FlowAnnotation{
		Date:      Day(day),
		AccountID: accountID,
		Amount:    Dec(amount),
		Kind:      kind,
	}
}
