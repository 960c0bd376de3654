package domain

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/aristath/networth/pkg/formulas"
)

// ReasonCode explains why a metric is not available.
type ReasonCode string

const (
	ReasonNone             ReasonCode = ""
	ReasonInsufficientData ReasonCode = "insufficient_data"
	ReasonDegenerateBase   ReasonCode = "degenerate_base"
	ReasonZeroVariance     ReasonCode = "zero_variance"
	ReasonNoDownside       ReasonCode = "no_downside"
	ReasonNoBenchmark      ReasonCode = "no_benchmark"
	ReasonNoOverlap        ReasonCode = "no_overlap"
)

// Metric is a single computed figure or an explicit "not available" marker.
type Metric struct {
	Value  *float64
	Reason ReasonCode
}

// Available wraps a computed value.
func Available(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unavailable(ReasonDegenerateBase)
	}
	return Metric{Value: &v}
}

// Unavailable marks a metric as N/A.
func Unavailable(reason ReasonCode) Metric {
	return Metric{Reason: reason}
}

// MetricFrom converts a formula result into a Metric, mapping formula errors to reason codes.
func MetricFrom(v float64, err error) Metric {
	if err != nil {
		return Unavailable(ReasonFor(err))
	}
	return Available(v)
}

// ReasonFor maps computation errors to reason codes.
func ReasonFor(err error) ReasonCode {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, formulas.ErrZeroVariance):
		return ReasonZeroVariance
	case errors.Is(err, formulas.ErrNoDownside):
		return ReasonNoDownside
	case errors.Is(err, formulas.ErrDegenerateBase), errors.Is(err, ErrDegenerateBase):
		return ReasonDegenerateBase
	default:
		return ReasonInsufficientData
	}
}

// IsAvailable reports whether the metric carries a value.
func (m Metric) IsAvailable() bool {
	return m.Value != nil
}

// Float returns the value, or NaN when not available.
func (m Metric) Float() float64 {
	if m.Value == nil {
		return math.NaN()
	}
	return *m.Value
}

type metricJSON struct {
	Value  *float64   `json:"value"`
	Reason ReasonCode `json:"reason,omitempty"`
}

// MarshalJSON renders {"value": x} or {"value": null, "reason": "..."}.
func (m Metric) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricJSON{Value: m.Value, Reason: m.Reason})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *Metric) UnmarshalJSON(data []byte) error {
	var aux metricJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Value = aux.Value
	m.Reason = aux.Reason
	return nil
}
