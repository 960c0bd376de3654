package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/pkg/formulas"
)

func TestSnapshot_Validate(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		snap  Snapshot
		field string
	}{
		{"valid", Snapshot{Date: date, AccountID: "broker", Currency: "EUR", RawValue: decimal.NewFromInt(10)}, ""},
		{"missing date", Snapshot{AccountID: "broker", Currency: "EUR"}, "date"},
		{"missing account", Snapshot{Date: date, Currency: "EUR"}, "account_id"},
		{"bad currency", Snapshot{Date: date, AccountID: "broker", Currency: "EURO"}, "currency"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.snap.Normalized().Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestSnapshot_Normalized(t *testing.T) {
	s := Snapshot{
		Date:      time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
		AccountID: "  broker ",
		Currency:  "eur",
	}.Normalized()

	assert.Equal(t, "broker", s.AccountID)
	assert.Equal(t, "EUR", s.Currency)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.Date)
	assert.Equal(t, "broker|2024-03-01", s.Key())
}

func TestSnapshot_JSONKeepsDecimalPrecision(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-31","account_id":"a","currency":"USD","value":"191485.90"}`), &s))
	assert.Equal(t, "191485.9", s.RawValue.String())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-31","account_id":"a","currency":"USD","value":"191485.9"}`, string(out))
}

func TestSnapshot_JSONRejectsNonFiniteValues(t *testing.T) {
	for _, body := range []string{
		`{"date":"2024-01-31","account_id":"a","currency":"USD","value":"NaN"}`,
		`{"date":"2024-01-31","account_id":"a","currency":"USD","value":"Inf"}`,
		`{"date":"2024-01-31","account_id":"a","currency":"USD","value":null}`,
		`{"date":"2024-01-31","account_id":"a","currency":"USD"}`,
		`{"date":"31/01/2024","account_id":"a","currency":"USD","value":1}`,
	} {
		var s Snapshot
		err := json.Unmarshal([]byte(body), &s)
		assert.True(t, IsValidationError(err), body)
	}
}

func TestDecimalFromFloat(t *testing.T) {
	_, err := DecimalFromFloat("value", math.NaN())
	assert.True(t, IsValidationError(err))
	_, err = DecimalFromFloat("value", math.Inf(1))
	assert.True(t, IsValidationError(err))

	d, err := DecimalFromFloat("value", 12.5)
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())
}

func TestFlowAnnotation(t *testing.T) {
	f := FlowAnnotation{
		Date:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		AccountID: "savings",
		Amount:    decimal.RequireFromString("250"),
		Kind:      FlowWithdrawal,
	}
	require.NoError(t, f.Validate())
	assert.Equal(t, "-250", f.Signed().String())

	f.Kind = "gift"
	assert.True(t, IsValidationError(f.Validate()))

	f.Kind = FlowContribution
	f.Amount = decimal.Zero
	assert.True(t, IsValidationError(f.Validate()))
}

func TestDateRange(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }

	r := DateRange{From: d(5), To: d(10)}
	assert.True(t, r.Contains(d(5)))
	assert.True(t, r.Contains(d(10)))
	assert.False(t, r.Contains(d(4)))
	assert.False(t, r.Contains(d(11)))
	assert.True(t, DateRange{}.Contains(d(1)))

	assert.NoError(t, r.Validate())
	assert.True(t, IsValidationError(DateRange{From: d(10), To: d(5)}.Validate()))
}

func TestMetric(t *testing.T) {
	m := MetricFrom(0, formulas.ErrZeroVariance)
	assert.False(t, m.IsAvailable())
	assert.Equal(t, ReasonZeroVariance, m.Reason)
	assert.True(t, math.IsNaN(m.Float()))

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":null,"reason":"zero_variance"}`, string(out))

	m = MetricFrom(0.25, nil)
	require.True(t, m.IsAvailable())
	assert.Equal(t, 0.25, m.Float())

	out, err = json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":0.25}`, string(out))

	assert.False(t, Available(math.Inf(1)).IsAvailable())
	assert.Equal(t, ReasonNoDownside, ReasonFor(formulas.ErrNoDownside))
	assert.Equal(t, ReasonDegenerateBase, ReasonFor(ErrDegenerateBase))
	assert.Equal(t, ReasonInsufficientData, ReasonFor(formulas.ErrInsufficientData))
}
