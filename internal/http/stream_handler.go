package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/calendar-bridge/internal/events"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes domain events to websocket subscribers. Each client
// gets its own bus subscription, so a slow client only loses its own events.
type StreamHandler struct {
	bus    *events.Bus
	logger *slog.Logger
}

// NewStreamHandler constructs a handler over the domain-event bus.
func NewStreamHandler(bus *events.Bus, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{bus: bus, logger: logger}
}

type streamEvent struct {
	Type         string    `json:"type"`
	ConnectionID string    `json:"connection_id,omitempty"`
	EventID      string    `json:"event_id,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	ProviderID   string    `json:"provider_id,omitempty"`
	Message      string    `json:"message,omitempty"`
	At           time.Time `json:"at"`
}

// ServeHTTP handles GET /events/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	feed, cancel := h.bus.Subscribe()
	defer cancel()

	// Drain client frames so close messages and pongs are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			payload := streamEvent{
				Type:         string(event.Type),
				ConnectionID: event.ConnectionID,
				EventID:      event.EventID,
				JobID:        event.JobID,
				ProviderID:   event.ProviderID,
				Message:      event.Message,
				At:           event.At,
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
