// Package domain holds the types shared by every analytics module together with
// the error taxonomy used across package boundaries.
package domain

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks an ISO-4217 style three letter code.
func ValidateCurrency(code string) error {
	if !currencyCode.MatchString(code) {
		return NewValidationError("currency", "must be a three letter ISO-4217 code")
	}
	return nil
}

// DecimalFromFloat converts a float to a decimal, rejecting NaN and ±Inf.
func DecimalFromFloat(field string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, NewValidationError(field, "must be a finite number")
	}
	return decimal.NewFromFloat(v), nil
}

func missing(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Snapshot is a point-in-time recorded balance of one account.
// At most one snapshot exists per (AccountID, Date).
type Snapshot struct {
	Date      time.Time
	AccountID string
	Currency  string
	RawValue  decimal.Decimal
}

// Key identifies the snapshot row.
func (s Snapshot) Key() string {
	return s.AccountID + "|" + FormatDate(s.Date)
}

// Normalized trims identifiers, upper-cases the currency and drops the clock part of the date.
func (s Snapshot) Normalized() Snapshot {
	s.AccountID = strings.TrimSpace(s.AccountID)
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if !s.Date.IsZero() {
		s.Date = TruncateDate(s.Date)
	}
	return s
}

// Validate checks the snapshot invariants.
func (s Snapshot) Validate() error {
	if s.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if s.AccountID == "" {
		return NewValidationError("account_id", "is required")
	}
	return ValidateCurrency(s.Currency)
}

type snapshotJSON struct {
	Date      string          `json:"date"`
	AccountID string          `json:"account_id"`
	Currency  string          `json:"currency"`
	Value     decimal.Decimal `json:"value"`
}

// MarshalJSON renders the flat export shape.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Date:      FormatDate(s.Date),
		AccountID: s.AccountID,
		Currency:  s.Currency,
		Value:     s.RawValue,
	})
}

// UnmarshalJSON accepts the flat export shape. Malformed dates or values are ValidationErrors.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var aux struct {
		Date      string          `json:"date"`
		AccountID string          `json:"account_id"`
		Currency  string          `json:"currency"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	date, err := ParseDate(aux.Date)
	if err != nil {
		return NewValidationError("date", "must be an ISO-8601 date")
	}

	var value decimal.Decimal
	if missing(aux.Value) || value.UnmarshalJSON(aux.Value) != nil {
		return NewValidationError("value", "must be a finite decimal")
	}

	*s = Snapshot{Date: date, AccountID: aux.AccountID, Currency: aux.Currency, RawValue: value}
	return nil
}

// Observation is a snapshot converted into the base currency.
// It is derived and never persisted: BaseValue = RawValue * rate(Currency, Date).
type Observation struct {
	Date      time.Time
	AccountID string
	BaseValue decimal.Decimal
}

// Account is an entry of the account registry.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Category string `json:"category"`
	// Tracked accounts form the default performance universe.
	Tracked bool `json:"tracked"`
}

// Validate checks the registry invariants.
func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return NewValidationError("id", "is required")
	}
	return ValidateCurrency(a.Currency)
}

// FlowKind labels an externally recorded cash movement.
type FlowKind string

const (
	FlowContribution FlowKind = "contribution"
	FlowWithdrawal   FlowKind = "withdrawal"
)

// FlowAnnotation is an explicit deposit or withdrawal recorded independently of
// the value snapshots. Amount is a positive magnitude; Kind decides the sign.
type FlowAnnotation struct {
	ID        string
	Date      time.Time
	AccountID string
	Amount    decimal.Decimal
	Kind      FlowKind
	Note      string
}

// Signed returns the amount with the sign implied by the kind.
func (f FlowAnnotation) Signed() decimal.Decimal {
	if f.Kind == FlowWithdrawal {
		return f.Amount.Neg()
	}
	return f.Amount
}

// Validate checks the annotation invariants.
func (f FlowAnnotation) Validate() error {
	if f.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if strings.TrimSpace(f.AccountID) == "" {
		return NewValidationError("account_id", "is required")
	}
	if f.Kind != FlowContribution && f.Kind != FlowWithdrawal {
		return NewValidationError("kind", "must be contribution or withdrawal")
	}
	if !f.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	return nil
}

type flowJSON struct {
	ID        string          `json:"id,omitempty"`
	Date      string          `json:"date"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      FlowKind        `json:"kind"`
	Note      string          `json:"note,omitempty"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (f FlowAnnotation) MarshalJSON() ([]byte, error) {
	return json.Marshal(flowJSON{
		ID:        f.ID,
		Date:      FormatDate(f.Date),
		AccountID: f.AccountID,
		Amount:    f.Amount,
		Kind:      f.Kind,
		Note:      f.Note,
	})
}

// UnmarshalJSON parses the flat annotation shape.
func (f *FlowAnnotation) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID        string          `json:"id"`
		Date      string          `json:"date"`
		AccountID string          `json:"account_id"`
		Amount    json.RawMessage `json:"amount"`
		Kind      FlowKind        `json:"kind"`
		Note      string          `json:"note"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	date, err := ParseDate(aux.Date)
	if err != nil {
		return NewValidationError("date", "must be an ISO-8601 date")
	}

	var amount decimal.Decimal
	if missing(aux.Amount) || amount.UnmarshalJSON(aux.Amount) != nil {
		return NewValidationError("amount", "must be a finite decimal")
	}

	*f = FlowAnnotation{
		ID:        aux.ID,
		Date:      date,
		AccountID: aux.AccountID,
		Amount:    amount,
		Kind:      aux.Kind,
		Note:      aux.Note,
	}
	return nil
}

// BenchmarkPoint is one value of an external benchmark series.
type BenchmarkPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (p BenchmarkPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string          `json:"date"`
		Value decimal.Decimal `json:"value"`
	}{FormatDate(p.Date), p.Value})
}

// UnmarshalJSON parses {"date": "YYYY-MM-DD", "value": decimal}.
func (p *BenchmarkPoint) UnmarshalJSON(data []byte) error {
	var aux struct {
		Date  string          `json:"date"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	date, err := ParseDate(aux.Date)
	if err != nil {
		return NewValidationError("date", "must be an ISO-8601 date")
	}
	var value decimal.Decimal
	if missing(aux.Value) || value.UnmarshalJSON(aux.Value) != nil {
		return NewValidationError("value", "must be a finite decimal")
	}

	*p = BenchmarkPoint{Date: date, Value: value}
	return nil
}

// Params is the explicit parameter set every analytics accessor takes.
type Params struct {
	// AccountIDs filters accounts. Empty means the default universe of the accessor.
	AccountIDs []string  `json:"account_ids" msgpack:"account_ids"`
	Range      DateRange `json:"range" msgpack:"range"`
	// BaseCurrency must equal the configured base currency; empty selects it.
	BaseCurrency string `json:"base_currency" msgpack:"base_currency"`
	BenchmarkID  string `json:"benchmark_id,omitempty" msgpack:"benchmark_id"`
}
