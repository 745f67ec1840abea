package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/calendar-bridge/internal/application"
)

type healthService interface {
	Check(ctx context.Context) (application.HealthReport, error)
}

// HealthHandler serves system health queries.
type HealthHandler struct {
	service   healthService
	responder responder
}

// NewHealthHandler constructs a handler backed by the health service.
func NewHealthHandler(service healthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{service: service, responder: newResponder(logger)}
}

type healthResponse struct {
	Status      string            `json:"status"`
	Providers   map[string]string `json:"providers"`
	Connections struct {
		Total  int `json:"total"`
		Active int `json:"active"`
		Error  int `json:"error"`
	} `json:"connections"`
	SyncJobs struct {
		Pending int `json:"pending"`
		Running int `json:"running"`
		Failed  int `json:"failed"`
	} `json:"sync_jobs"`
	CheckedAt time.Time `json:"checked_at"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Check(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := healthResponse{
		Status:    string(report.Status),
		Providers: make(map[string]string, len(report.Providers)),
		CheckedAt: report.CheckedAt,
	}
	for id, status := range report.Providers {
		resp.Providers[id] = string(status)
	}
	resp.Connections.Total = report.Connections.Total
	resp.Connections.Active = report.Connections.Active
	resp.Connections.Error = report.Connections.Error
	resp.SyncJobs.Pending = report.SyncJobs.Pending
	resp.SyncJobs.Running = report.SyncJobs.Running
	resp.SyncJobs.Failed = report.SyncJobs.Failed

	status := http.StatusOK
	if report.Status == application.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.responder.writeJSON(r.Context(), w, status, resp)
}
