package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/calendar-bridge/internal/persistence"
)

type syncOrchestrator interface {
	Schedule(ctx context.Context, connectionID string, syncType persistence.SyncType) (string, error)
	GetJob(ctx context.Context, jobID string) (persistence.SyncJob, error)
	ListJobs(ctx context.Context, filter persistence.SyncJobFilter) ([]persistence.SyncJob, error)
	Cancel(ctx context.Context, jobID string) error
}

// SyncHandler serves sync job scheduling and status requests.
type SyncHandler struct {
	service   syncOrchestrator
	responder responder
}

// NewSyncHandler constructs a handler backed by the orchestrator.
func NewSyncHandler(service syncOrchestrator, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{service: service, responder: newResponder(logger)}
}

type scheduleSyncRequest struct {
	ConnectionID string `json:"connection_id"`
	Type         string `json:"type"`
}

// Schedule handles POST /sync/jobs.
func (h *SyncHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	syncType := persistence.SyncType(req.Type)
	if syncType != persistence.SyncTypeFull && syncType != persistence.SyncTypeIncremental {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("type must be full or incremental"))
		return
	}

	jobID, err := h.service.Schedule(r.Context(), req.ConnectionID, syncType)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{
				ErrorCode: "NOT_FOUND",
				Message:   "the requested resource does not exist",
			})
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// Get handles GET /sync/jobs/{id}.
func (h *SyncHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := JobIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidJobID)
		return
	}

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{
				ErrorCode: "NOT_FOUND",
				Message:   "the requested resource does not exist",
			})
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSyncJobDTO(job))
}

// List handles GET /sync/jobs.
func (h *SyncHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := persistence.SyncJobFilter{ConnectionID: query.Get("connection_id")}
	if values, ok := query["status"]; ok {
		for _, v := range values {
			filter.Statuses = append(filter.Statuses, persistence.SyncJobStatus(v))
		}
	}

	jobs, err := h.service.ListJobs(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]syncJobDTO, 0, len(jobs))
	for _, job := range jobs {
		dtos = append(dtos, toSyncJobDTO(job))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"jobs": dtos})
}

// Cancel handles POST /sync/jobs/{id}/cancel.
func (h *SyncHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := JobIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidJobID)
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{
				ErrorCode: "NOT_FOUND",
				Message:   "the requested resource does not exist",
			})
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, map[string]string{"job_id": id})
}
