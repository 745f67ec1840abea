package http

import (
	"net/http"
	"strings"
)

// RouterConfig lists the handlers the router dispatches to. Nil entries leave
// their routes unregistered.
type RouterConfig struct {
	Connections  *ConnectionHandler
	Events       *EventHandler
	Availability *AvailabilityHandler
	Sync         *SyncHandler
	Health       *HealthHandler
	Stream       *StreamHandler
	Middleware   []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP route table.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Connections != nil {
		mux.HandleFunc("/connections", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Connections.List(w, r)
			case http.MethodPost:
				cfg.Connections.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/connections/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/connections/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithConnectionID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Connections.Get(w, r)
			case http.MethodPatch:
				cfg.Connections.Update(w, r)
			case http.MethodDelete:
				cfg.Connections.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/events/")
			if rest == "" || strings.Contains(rest, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEventID(r.Context(), rest))
			switch r.Method {
			case http.MethodGet:
				cfg.Events.Get(w, r)
			case http.MethodPatch:
				cfg.Events.Update(w, r)
			case http.MethodDelete:
				cfg.Events.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Stream != nil {
		mux.Handle("/events/stream", cfg.Stream)
	}

	if cfg.Availability != nil {
		mux.HandleFunc("/availability", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.GetAvailability(w, r)
		})
		mux.HandleFunc("/availability/slots", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.FindSlots(w, r)
		})
	}

	if cfg.Sync != nil {
		mux.HandleFunc("/sync/jobs", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sync.List(w, r)
			case http.MethodPost:
				cfg.Sync.Schedule(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/sync/jobs/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/sync/jobs/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithJobID(r.Context(), id))
			switch {
			case action == "" && r.Method == http.MethodGet:
				cfg.Sync.Get(w, r)
			case action == "cancel" && r.Method == http.MethodPost:
				cfg.Sync.Cancel(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Health != nil {
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Check(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}
