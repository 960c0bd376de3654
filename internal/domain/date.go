package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on every boundary.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO-8601 calendar date into a UTC midnight timestamp.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TruncateDate drops the clock part of t, keeping its calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive calendar range. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty" msgpack:"from"`
	To   time.Time `json:"to,omitempty" msgpack:"to"`
}

// Contains reports whether d lies inside the range.
func (r DateRange) Contains(d time.Time) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// Validate rejects inverted ranges.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return NewValidationError("date_range", "from must not be after to")
	}
	return nil
}
