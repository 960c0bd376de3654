package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Emitter is the narrow interface repositories use to announce mutations
type Emitter interface {
	Emit(eventType EventType, module string, data map[string]interface{})
}

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Emit publishes to the bus and logs the event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.bus.Emit(eventType, module, data)

	eventJSON, err := json.Marshal(data)
	if err != nil {
		eventJSON = []byte("null")
	}
	m.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("data", eventJSON).
		Msg("Event emitted")
}

// EmitError emits an ErrorOccurred event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{"error": err.Error()}
	for k, v := range context {
		data[k] = v
	}
	m.Emit(ErrorOccurred, module, data)
}

// Bus returns the underlying bus
func (m *Manager) Bus() *Bus {
	return m.bus
}
