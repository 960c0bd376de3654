package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/events"
)

// eventBuffer is the per-client backlog; events beyond it are dropped
const eventBuffer = 100

// EventsStreamHandler streams bus events to clients over SSE or WebSocket.
// Clients use it to learn when analytics results went stale.
type EventsStreamHandler struct {
	eventBus  *events.Bus
	log       zerolog.Logger
	heartbeat time.Duration
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		log:       log.With().Str("component", "events_stream").Logger(),
		heartbeat: 30 * time.Second,
	}
}

// ServeHTTP handles GET /api/events/stream?types=A,B (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	types := parseEventTypes(r.URL.Query().Get("types"))
	eventChan, unsubscribe := h.subscribe(types)
	defer unsubscribe()

	h.log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	fmt.Fprintf(w, "data: %s\n\n", h.encode(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}))
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			fmt.Fprintf(w, "data: %s\n\n", h.encode(eventPayload(event)))
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encode(map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

// subscribe registers a buffered channel for types. The returned func must
// be called to unsubscribe.
func (h *EventsStreamHandler) subscribe(types []events.EventType) (<-chan *events.Event, func()) {
	eventChan := make(chan *events.Event, eventBuffer)

	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	unsubscribers := make([]func(), 0, len(types))
	for _, t := range types {
		unsubscribers = append(unsubscribers, h.eventBus.Subscribe(t, handler))
	}

	return eventChan, func() {
		for _, u := range unsubscribers {
			u()
		}
	}
}

// parseEventTypes reads a comma-separated filter. Empty means every type.
func parseEventTypes(filter string) []events.EventType {
	if strings.TrimSpace(filter) == "" {
		return events.AllTypes
	}

	seen := make(map[events.EventType]bool)
	var types []events.EventType
	for _, t := range strings.Split(filter, ",") {
		et := events.EventType(strings.ToUpper(strings.TrimSpace(t)))
		if et == "" || seen[et] {
			continue
		}
		seen[et] = true
		types = append(types, et)
	}
	return types
}

func eventPayload(event *events.Event) map[string]interface{} {
	return map[string]interface{}{
		"type":      string(event.Type),
		"module":    event.Module,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      event.Data,
	}
}

func (h *EventsStreamHandler) encode(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
