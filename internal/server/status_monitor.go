package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/events"
)

// StatusMonitor periodically health-checks the databases and emits
// ERROR_OCCURRED when one becomes unhealthy
type StatusMonitor struct {
	eventManager *events.Manager
	databases    map[string]*database.DB
	log          zerolog.Logger

	mu      sync.Mutex
	healthy map[string]bool
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, databases map[string]*database.DB, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager: eventManager,
		databases:    databases,
		log:          log.With().Str("component", "status_monitor").Logger(),
		healthy:      make(map[string]bool),
	}
}

// Start runs the check every interval until ctx is done
func (m *StatusMonitor) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.checkDatabases(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkDatabases(ctx)
			}
		}
	}()
}

// checkDatabases reports transitions only: a database that stays unhealthy
// is not reported again.
func (m *StatusMonitor) checkDatabases(ctx context.Context) {
	names := make([]string, 0, len(m.databases))
	for name := range m.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := m.databases[name].HealthCheck(checkCtx)
		cancel()

		m.mu.Lock()
		wasHealthy, known := m.healthy[name]
		m.healthy[name] = err == nil
		m.mu.Unlock()

		switch {
		case err != nil && (!known || wasHealthy):
			m.log.Error().Err(err).Str("database", name).Msg("Database health check failed")
			if m.eventManager != nil {
				m.eventManager.EmitError("status_monitor", err, map[string]interface{}{"database": name})
			}
		case err == nil && known && !wasHealthy:
			m.log.Info().Str("database", name).Msg("Database healthy again")
		}
	}
}
