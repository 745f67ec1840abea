package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/calendar-bridge/internal/application"
	"github.com/example/calendar-bridge/internal/persistence"
)

type eventService interface {
	CreateEvent(ctx context.Context, input application.EventInput) (persistence.Event, error)
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
	UpdateEvent(ctx context.Context, id string, update application.EventUpdate) (persistence.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, connectionID string, filter application.EventListFilter) ([]persistence.Event, error)
}

// EventHandler serves calendar event CRUD requests.
type EventHandler struct {
	service   eventService
	responder responder
}

// NewEventHandler constructs a handler backed by the given service.
func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

type eventRequest struct {
	ConnectionID string        `json:"connection_id"`
	Title        string        `json:"title"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Categories   []string      `json:"categories,omitempty"`
	Attendees    []attendeeDTO `json:"attendees,omitempty"`
	Availability string        `json:"availability,omitempty"`
}

// Create handles POST /events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	attendees := make([]persistence.Attendee, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		attendees = append(attendees, persistence.Attendee{Email: a.Email, Response: a.Response})
	}

	event, err := h.service.CreateEvent(r.Context(), application.EventInput{
		ConnectionID: req.ConnectionID,
		Title:        req.Title,
		Start:        req.Start,
		End:          req.End,
		Categories:   req.Categories,
		Attendees:    attendees,
		Availability: persistence.EventAvailability(req.Availability),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(event))
}

// Get handles GET /events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

type updateEventRequest struct {
	Title        *string        `json:"title,omitempty"`
	Start        *time.Time     `json:"start,omitempty"`
	End          *time.Time     `json:"end,omitempty"`
	Categories   *[]string      `json:"categories,omitempty"`
	Attendees    *[]attendeeDTO `json:"attendees,omitempty"`
	Availability *string        `json:"availability,omitempty"`
	Status       *string        `json:"status,omitempty"`
}

// Update handles PATCH /events/{id}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	update := application.EventUpdate{
		Title:      req.Title,
		Start:      req.Start,
		End:        req.End,
		Categories: req.Categories,
	}
	if req.Attendees != nil {
		attendees := make([]persistence.Attendee, 0, len(*req.Attendees))
		for _, a := range *req.Attendees {
			attendees = append(attendees, persistence.Attendee{Email: a.Email, Response: a.Response})
		}
		update.Attendees = &attendees
	}
	if req.Availability != nil {
		availability := persistence.EventAvailability(*req.Availability)
		update.Availability = &availability
	}
	if req.Status != nil {
		status := persistence.EventStatus(*req.Status)
		update.Status = &status
	}

	event, err := h.service.UpdateEvent(r.Context(), id, update)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

// Delete handles DELETE /events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List handles GET /events?connection_id=...
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	connectionID := query.Get("connection_id")
	if connectionID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidConnectionID)
		return
	}

	filter, err := buildEventFilter(query)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	events, err := h.service.ListEvents(r.Context(), connectionID, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"events": toEventDTOs(events),
	})
}

func buildEventFilter(query url.Values) (application.EventListFilter, error) {
	var filter application.EventListFilter

	if value := query.Get("start"); value != "" {
		start, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return filter, errBadRequestBody
		}
		filter.Start = &start
	}
	if value := query.Get("end"); value != "" {
		end, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return filter, errBadRequestBody
		}
		filter.End = &end
	}
	if values, ok := query["category"]; ok {
		filter.Categories = values
	}
	filter.AttendeeEmail = query.Get("attendee")
	if values, ok := query["status"]; ok {
		for _, v := range values {
			filter.Statuses = append(filter.Statuses, persistence.EventStatus(v))
		}
	}

	return filter, nil
}
