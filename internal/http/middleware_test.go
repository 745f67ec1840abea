package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"
)

func TestRequestLogger(t *testing.T) {
	t.Run("records method, path, and status", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		handler := RequestLogger(logger)(next)

		req := httptest.NewRequest(http.MethodGet, "/connections", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("decode log entry: %v", err)
		}
		if entry["method"] != "GET" || entry["path"] != "/connections" {
			t.Fatalf("unexpected log entry: %v", entry)
		}
		if entry["status"] != float64(http.StatusTeapot) {
			t.Fatalf("expected status %d in log, got %v", http.StatusTeapot, entry["status"])
		}
	})

	t.Run("attaches a request logger to the context", func(t *testing.T) {
		logger := discardLogger()

		var seen *slog.Logger
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = LoggerFromContext(r.Context())
		})
		handler := RequestLogger(logger)(next)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen == nil {
			t.Fatal("expected logger in request context")
		}
	})

	t.Run("assigns increasing request ids", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		for i := 0; i < 2; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		}

		decoder := json.NewDecoder(&buf)
		var first, second map[string]any
		if err := decoder.Decode(&first); err != nil {
			t.Fatalf("decode first entry: %v", err)
		}
		if err := decoder.Decode(&second); err != nil {
			t.Fatalf("decode second entry: %v", err)
		}
		if first["request_id"] == second["request_id"] {
			t.Fatalf("expected distinct request ids, got %v twice", first["request_id"])
		}
	})
}
