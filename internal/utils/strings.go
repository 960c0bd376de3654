// Package utils holds small helpers shared by handlers and services.
package utils

import (
	"net/url"
	"strings"

	"github.com/aristath/networth/internal/domain"
)

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// ParseDateRange reads the optional "from" and "to" query parameters.
func ParseDateRange(q url.Values) (domain.DateRange, error) {
	var rng domain.DateRange

	if v := q.Get("from"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return rng, domain.NewValidationError("from", "must be YYYY-MM-DD")
		}
		rng.From = d
	}
	if v := q.Get("to"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return rng, domain.NewValidationError("to", "must be YYYY-MM-DD")
		}
		rng.To = d
	}

	return rng, rng.Validate()
}

// ParseParams reads the analytics parameter set from query parameters:
// accounts (comma-separated), from, to, base_currency and benchmark.
func ParseParams(q url.Values) (domain.Params, error) {
	rng, err := ParseDateRange(q)
	if err != nil {
		return domain.Params{}, err
	}

	return domain.Params{
		AccountIDs:   ParseCSV(q.Get("accounts")),
		Range:        rng,
		BaseCurrency: strings.ToUpper(strings.TrimSpace(q.Get("base_currency"))),
		BenchmarkID:  strings.TrimSpace(q.Get("benchmark")),
	}, nil
}
