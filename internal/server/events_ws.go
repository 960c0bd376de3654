package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// wsWriteTimeout bounds a single frame write to a slow client
const wsWriteTimeout = 5 * time.Second

// ServeWebSocket handles GET /api/events/ws?types=A,B. Each bus event is sent
// as one JSON text message. Client messages are ignored.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Same policy as the CORS middleware
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	types := parseEventTypes(r.URL.Query().Get("types"))
	eventChan, unsubscribe := h.subscribe(types)
	defer unsubscribe()

	// CloseRead discards client frames and cancels ctx once the peer goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Int("types", len(types)).Msg("Client connected to event websocket")

	if err := h.writeWS(ctx, conn, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event websocket")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := h.writeWS(ctx, conn, eventPayload(event)); err != nil {
				return
			}

		case <-heartbeat.C:
			ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) writeWS(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, conn, v); err != nil {
		closeStatus := websocket.CloseStatus(err)
		if closeStatus != websocket.StatusNormalClosure && closeStatus != websocket.StatusGoingAway {
			h.log.Debug().Err(err).Msg("WebSocket write failed")
		}
		return err
	}
	return nil
}
