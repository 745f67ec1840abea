package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/calendar-bridge/internal/application"
	"github.com/example/calendar-bridge/internal/persistence"
)

type connectionService interface {
	CreateConnection(ctx context.Context, input application.ConnectionInput) (persistence.Connection, error)
	GetConnection(ctx context.Context, id string) (persistence.Connection, error)
	ListConnections(ctx context.Context, filter persistence.ConnectionFilter) ([]persistence.Connection, error)
	UpdateConnection(ctx context.Context, id string, update application.ConnectionUpdate) (persistence.Connection, error)
	DeleteConnection(ctx context.Context, id string) error
}

// ConnectionHandler serves connection CRUD requests.
type ConnectionHandler struct {
	service   connectionService
	responder responder
}

// NewConnectionHandler constructs a handler backed by the given service.
func NewConnectionHandler(service connectionService, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{service: service, responder: newResponder(logger)}
}

type createConnectionRequest struct {
	TenantID     string         `json:"tenant_id"`
	UserID       string         `json:"user_id"`
	ProviderID   string         `json:"provider_id"`
	AccountEmail string         `json:"account_email"`
	Permissions  permissionsDTO `json:"permissions"`
	SyncEnabled  bool           `json:"sync_enabled"`
	SyncInterval string         `json:"sync_interval,omitempty"`
}

// Create handles POST /connections.
func (h *ConnectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var interval time.Duration
	if req.SyncInterval != "" {
		parsed, err := time.ParseDuration(req.SyncInterval)
		if err != nil || parsed <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		interval = parsed
	}

	conn, err := h.service.CreateConnection(r.Context(), application.ConnectionInput{
		TenantID:     req.TenantID,
		UserID:       req.UserID,
		ProviderID:   req.ProviderID,
		AccountEmail: req.AccountEmail,
		Permissions: persistence.Permissions{
			Read:   req.Permissions.Read,
			Write:  req.Permissions.Write,
			Delete: req.Permissions.Delete,
			Manage: req.Permissions.Manage,
		},
		SyncSettings: persistence.SyncSettings{
			Enabled:  req.SyncEnabled,
			Interval: interval,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toConnectionDTO(conn))
}

// Get handles GET /connections/{id}.
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ConnectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidConnectionID)
		return
	}

	conn, err := h.service.GetConnection(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConnectionDTO(conn))
}

// List handles GET /connections.
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := persistence.ConnectionFilter{
		TenantID:   query.Get("tenant_id"),
		UserID:     query.Get("user_id"),
		ProviderID: query.Get("provider_id"),
	}
	if status := query.Get("status"); status != "" {
		filter.Status = persistence.ConnectionStatus(status)
	}

	conns, err := h.service.ListConnections(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"connections": toConnectionDTOs(conns),
	})
}

type updateConnectionRequest struct {
	AccountEmail *string         `json:"account_email,omitempty"`
	Permissions  *permissionsDTO `json:"permissions,omitempty"`
	SyncEnabled  *bool           `json:"sync_enabled,omitempty"`
	SyncInterval *string         `json:"sync_interval,omitempty"`
	Status       *string         `json:"status,omitempty"`
}

// Update handles PATCH /connections/{id}.
func (h *ConnectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ConnectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidConnectionID)
		return
	}

	var req updateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	update := application.ConnectionUpdate{
		AccountEmail: req.AccountEmail,
		SyncEnabled:  req.SyncEnabled,
	}
	if req.Permissions != nil {
		update.Permissions = &persistence.Permissions{
			Read:   req.Permissions.Read,
			Write:  req.Permissions.Write,
			Delete: req.Permissions.Delete,
			Manage: req.Permissions.Manage,
		}
	}
	if req.SyncInterval != nil {
		parsed, err := time.ParseDuration(*req.SyncInterval)
		if err != nil || parsed <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		update.SyncInterval = &parsed
	}
	if req.Status != nil {
		status := persistence.ConnectionStatus(*req.Status)
		update.Status = &status
	}

	conn, err := h.service.UpdateConnection(r.Context(), id, update)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConnectionDTO(conn))
}

// Delete handles DELETE /connections/{id}.
func (h *ConnectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ConnectionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidConnectionID)
		return
	}

	if err := h.service.DeleteConnection(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
