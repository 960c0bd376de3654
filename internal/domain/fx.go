package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RateTable is a set of FX quotes for one date, as supplied by a rate source.
// Rates are expressed as base-currency units per one unit of the keyed currency.
type RateTable struct {
	Base   string
	Date   time.Time
	Source string
	Rates  map[string]decimal.Decimal
}

// FXRate is one stored rate.
type FXRate struct {
	Currency string
	Date     time.Time
	Rate     decimal.Decimal
	Source   string
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (r FXRate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Currency string          `json:"currency"`
		Date     string          `json:"date"`
		Rate     decimal.Decimal `json:"rate"`
		Source   string          `json:"source"`
	}{r.Currency, FormatDate(r.Date), r.Rate, r.Source})
}

// UnmarshalJSON parses {"currency", "date", "rate"}.
func (r *FXRate) UnmarshalJSON(data []byte) error {
	var aux struct {
		Currency string          `json:"currency"`
		Date     string          `json:"date"`
		Rate     json.RawMessage `json:"rate"`
		Source   string          `json:"source"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	date, err := ParseDate(aux.Date)
	if err != nil {
		return NewValidationError("date", "must be an ISO-8601 date")
	}
	var rate decimal.Decimal
	if missing(aux.Rate) || rate.UnmarshalJSON(aux.Rate) != nil {
		return NewValidationError("rate", "must be a finite decimal")
	}

	*r = FXRate{Currency: aux.Currency, Date: date, Rate: rate, Source: aux.Source}
	return nil
}
