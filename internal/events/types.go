// Package events provides the in-process event bus used to signal store mutations.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Store mutations. Each one changes the analytics fingerprint.
	SnapshotsChanged  EventType = "SNAPSHOTS_CHANGED"
	FlowsChanged      EventType = "FLOWS_CHANGED"
	AccountsChanged   EventType = "ACCOUNTS_CHANGED"
	BenchmarksChanged EventType = "BENCHMARKS_CHANGED"

	// FX table refreshed by the rate collaborator or a manual entry.
	RatesRefreshed EventType = "RATES_REFRESHED"

	AnalyticsCacheInvalidated EventType = "ANALYTICS_CACHE_INVALIDATED"
	ErrorOccurred             EventType = "ERROR_OCCURRED"
)

// MutationTypes lists every event that invalidates derived analytics.
var MutationTypes = []EventType{
	SnapshotsChanged,
	FlowsChanged,
	AccountsChanged,
	BenchmarksChanged,
	RatesRefreshed,
}

// AllTypes lists every known event type, in a stable order.
var AllTypes = append(append([]EventType{}, MutationTypes...), AnalyticsCacheInvalidated, ErrorOccurred)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
