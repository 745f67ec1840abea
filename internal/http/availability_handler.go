package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/calendar-bridge/internal/availability"
)

type availabilityService interface {
	GetAvailability(ctx context.Context, userID string, startDate, endDate time.Time, timeZone string) ([]availability.DayAvailability, error)
	FindAvailableSlots(ctx context.Context, userIDs []string, durationMinutes int, startDate, endDate time.Time, workingHoursOnly bool) ([]availability.OpenWindow, error)
}

// AvailabilityHandler serves free/busy and slot-search queries.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
}

// NewAvailabilityHandler constructs a handler backed by the given service.
func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, responder: newResponder(logger)}
}

const dateLayout = "2006-01-02"

// GetAvailability handles GET /availability?user_id=...&start=...&end=...&tz=...
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	userID := query.Get("user_id")
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	start, end, err := parseDateRange(query.Get("start"), query.Get("end"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	days, err := h.service.GetAvailability(r.Context(), userID, start, end, query.Get("tz"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]dayAvailabilityDTO, 0, len(days))
	for _, day := range days {
		dtos = append(dtos, toDayAvailabilityDTO(day))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{"days": dtos})
}

// FindSlots handles GET /availability/slots?user_id=...&duration=...&start=...&end=...
func (h *AvailabilityHandler) FindSlots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	userIDs := query["user_id"]
	if len(userIDs) == 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("at least one user_id is required"))
		return
	}
	duration, err := strconv.Atoi(query.Get("duration"))
	if err != nil || duration <= 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("duration must be a positive number of minutes"))
		return
	}
	start, end, err := parseDateRange(query.Get("start"), query.Get("end"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	workingHoursOnly := strings.EqualFold(query.Get("working_hours_only"), "true")

	windows, err := h.service.FindAvailableSlots(r.Context(), userIDs, duration, start, end, workingHoursOnly)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"windows": toOpenWindowDTOs(windows),
	})
}

func parseDateRange(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startValue)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start must be a date in YYYY-MM-DD form")
	}
	end, err := time.Parse(dateLayout, endValue)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end must be a date in YYYY-MM-DD form")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end must not be before start")
	}
	return start, end, nil
}
