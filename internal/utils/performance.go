package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowThreshold is the duration above which a timed operation is logged at warn level.
const SlowThreshold = 2 * time.Second

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer starts a timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop logs the elapsed duration and returns it
func (t *Timer) Stop() time.Duration {
	return t.StopWithContext(nil)
}

// StopWithContext logs the elapsed duration with additional fields
func (t *Timer) StopWithContext(fields map[string]interface{}) time.Duration {
	duration := time.Since(t.start)

	event := t.log.Debug()
	if duration > SlowThreshold {
		event = t.log.Warn()
	}

	event = event.
		Str("operation", t.name).
		Dur("duration_ms", duration)
	if len(fields) > 0 {
		event = event.Fields(fields)
	}

	if duration > SlowThreshold {
		event.Msg("Slow operation detected")
	} else {
		event.Msg("Performance measurement")
	}

	return duration
}
