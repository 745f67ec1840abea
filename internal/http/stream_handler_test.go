package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/calendar-bridge/internal/events"
)

func dialStream(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/events/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamHandler(t *testing.T) {
	t.Run("delivers published events as JSON frames", func(t *testing.T) {
		bus := events.NewBus()
		t.Cleanup(bus.Close)

		router := NewRouter(RouterConfig{Stream: NewStreamHandler(bus, discardLogger())})
		server := httptest.NewServer(router)
		t.Cleanup(server.Close)

		conn := dialStream(t, server)

		at := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
		bus.Publish(events.Event{
			Type:         events.SyncCompleted,
			ConnectionID: "conn-1",
			JobID:        "job-1",
			At:           at,
		})

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame streamEvent
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Type != string(events.SyncCompleted) {
			t.Fatalf("expected syncCompleted frame, got %q", frame.Type)
		}
		if frame.ConnectionID != "conn-1" || frame.JobID != "job-1" {
			t.Fatalf("unexpected frame: %+v", frame)
		}
		if !frame.At.Equal(at) {
			t.Fatalf("expected timestamp %v, got %v", at, frame.At)
		}
	})

	t.Run("each client receives its own copy", func(t *testing.T) {
		bus := events.NewBus()
		t.Cleanup(bus.Close)

		router := NewRouter(RouterConfig{Stream: NewStreamHandler(bus, discardLogger())})
		server := httptest.NewServer(router)
		t.Cleanup(server.Close)

		first := dialStream(t, server)
		second := dialStream(t, server)

		bus.Publish(events.Event{Type: events.ConnectionCreated, ConnectionID: "conn-2"})

		for _, conn := range []*websocket.Conn{first, second} {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var frame streamEvent
			if err := conn.ReadJSON(&frame); err != nil {
				t.Fatalf("read frame: %v", err)
			}
			if frame.ConnectionID != "conn-2" {
				t.Fatalf("expected conn-2 frame, got %+v", frame)
			}
		}
	})

	t.Run("rejects plain HTTP requests", func(t *testing.T) {
		bus := events.NewBus()
		t.Cleanup(bus.Close)

		router := NewRouter(RouterConfig{Stream: NewStreamHandler(bus, discardLogger())})
		rec := doRequest(t, router, "GET", "/events/stream", nil)
		if rec.Code != 400 {
			t.Fatalf("expected status 400 for non-upgrade request, got %d", rec.Code)
		}
	})
}
