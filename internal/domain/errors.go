package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientData marks a metric that cannot be computed from the available observations.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateBase marks a ratio whose denominator is zero or negative.
	ErrDegenerateBase = errors.New("degenerate base")
	// ErrNotFound is returned by repositories for missing records.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed input. Nothing is persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RateUnavailableError means no FX rate could be resolved for a currency on a date.
// Callers degrade by skipping the affected observation, never by failing the request.
type RateUnavailableError struct {
	Currency string
	Date     time.Time
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("no exchange rate for %s on %s", e.Currency, FormatDate(e.Date))
}

// IsRateUnavailable reports whether err wraps a RateUnavailableError.
func IsRateUnavailable(err error) bool {
	var re *RateUnavailableError
	return errors.As(err, &re)
}
