package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/calendar-bridge/internal/events"
	"github.com/example/calendar-bridge/internal/persistence"
	"github.com/example/calendar-bridge/internal/sync"
)

// EventService manages calendar events, gated by the owning connection's
// permission flags. Local writes are authoritative; pushes to the provider are
// best effort.
type EventService struct {
	eventStore  persistence.EventRepository
	connections persistence.ConnectionRepository
	adapter     sync.ProviderAdapter
	bus         *events.Bus
	maxDuration time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// EventServiceConfig wires dependencies for the event service.
type EventServiceConfig struct {
	Events      persistence.EventRepository
	Connections persistence.ConnectionRepository
	Adapter     sync.ProviderAdapter
	Bus         *events.Bus
	MaxDuration time.Duration
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(cfg EventServiceConfig) *EventService {
	idGenerator := cfg.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxDuration := cfg.MaxDuration
	if maxDuration <= 0 {
		maxDuration = 24 * time.Hour
	}
	return &EventService{
		eventStore:  cfg.Events,
		connections: cfg.Connections,
		adapter:     cfg.Adapter,
		bus:         cfg.Bus,
		maxDuration: maxDuration,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(cfg.Logger),
	}
}

// CreateEvent validates and stores a new event, then attempts a provider push.
func (s *EventService) CreateEvent(ctx context.Context, input EventInput) (persistence.Event, error) {
	logger := serviceLogger(ctx, s.logger, "event", "create", "connection_id", input.ConnectionID)

	conn, err := s.connections.GetConnection(ctx, input.ConnectionID)
	if err != nil {
		return persistence.Event{}, mapRepoError(err)
	}
	if !conn.Permissions.Write {
		return persistence.Event{}, ErrPermissionDenied
	}
	if err := s.validateWindow(input.Start, input.End); err != nil {
		return persistence.Event{}, err
	}

	now := s.now()
	event := persistence.Event{
		ID:           s.idGenerator(),
		ConnectionID: conn.ID,
		TenantID:     conn.TenantID,
		Title:        input.Title,
		Start:        input.Start,
		End:          input.End,
		Categories:   input.Categories,
		Attendees:    input.Attendees,
		Availability: input.Availability,
		Status:       persistence.EventStatusConfirmed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if event.Availability == "" {
		event.Availability = persistence.AvailabilityBusy
	}

	if err := s.eventStore.CreateEvent(ctx, event); err != nil {
		return persistence.Event{}, mapRepoError(err)
	}

	s.bus.Publish(events.Event{Type: events.EventCreated, EventID: event.ID, ConnectionID: conn.ID, At: now})
	logger.Info("event created", "event_id", event.ID)

	return s.pushBestEffort(ctx, event, conn, logger), nil
}

// UpdateEvent applies a partial update, then attempts a provider push.
func (s *EventService) UpdateEvent(ctx context.Context, id string, update EventUpdate) (persistence.Event, error) {
	logger := serviceLogger(ctx, s.logger, "event", "update", "event_id", id)

	event, err := s.eventStore.GetEvent(ctx, id)
	if err != nil {
		return persistence.Event{}, mapRepoError(err)
	}
	conn, err := s.connections.GetConnection(ctx, event.ConnectionID)
	if err != nil {
		return persistence.Event{}, mapRepoError(err)
	}
	if !conn.Permissions.Write {
		return persistence.Event{}, ErrPermissionDenied
	}

	if update.Title != nil {
		event.Title = *update.Title
	}
	if update.Start != nil {
		event.Start = *update.Start
	}
	if update.End != nil {
		event.End = *update.End
	}
	if update.Categories != nil {
		event.Categories = *update.Categories
	}
	if update.Attendees != nil {
		event.Attendees = *update.Attendees
	}
	if update.Availability != nil {
		event.Availability = *update.Availability
	}
	if update.Status != nil {
		event.Status = *update.Status
	}

	if err := s.validateWindow(event.Start, event.End); err != nil {
		return persistence.Event{}, err
	}

	event.UpdatedAt = s.now()
	if err := s.eventStore.UpdateEvent(ctx, event); err != nil {
		return persistence.Event{}, mapRepoError(err)
	}

	s.bus.Publish(events.Event{Type: events.EventUpdated, EventID: event.ID, ConnectionID: conn.ID, At: event.UpdatedAt})
	logger.Info("event updated", "event_id", event.ID)

	return s.pushBestEffort(ctx, event, conn, logger), nil
}

// DeleteEvent removes an event locally, then attempts the remote delete.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	logger := serviceLogger(ctx, s.logger, "event", "delete", "event_id", id)

	event, err := s.eventStore.GetEvent(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	conn, err := s.connections.GetConnection(ctx, event.ConnectionID)
	if err != nil {
		return mapRepoError(err)
	}
	if !conn.Permissions.Delete {
		return ErrPermissionDenied
	}

	if err := s.eventStore.DeleteEvent(ctx, id); err != nil {
		return mapRepoError(err)
	}

	now := s.now()
	s.bus.Publish(events.Event{Type: events.EventDeleted, EventID: id, ConnectionID: conn.ID, At: now})
	logger.Info("event deleted", "event_id", id)

	if s.adapter != nil && conn.Status == persistence.ConnectionStatusConnected && event.ExternalID != "" {
		if err := s.adapter.DeleteRemoteEvent(ctx, event, conn); err != nil {
			s.recordSyncError(event.ID, conn.ID, &AdapterError{Op: "deleteRemoteEvent", Err: err}, logger)
		}
	}
	return nil
}

// GetEvent returns an event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	event, err := s.eventStore.GetEvent(ctx, id)
	if err != nil {
		return persistence.Event{}, mapRepoError(err)
	}
	return event, nil
}

// ListEvents enumerates a connection's events matching the filter, ordered by
// start time ascending.
func (s *EventService) ListEvents(ctx context.Context, connectionID string, filter EventListFilter) ([]persistence.Event, error) {
	if _, err := s.connections.GetConnection(ctx, connectionID); err != nil {
		return nil, mapRepoError(err)
	}
	return s.eventStore.ListEvents(ctx, persistence.EventFilter{
		ConnectionID:  connectionID,
		Start:         filter.Start,
		End:           filter.End,
		Categories:    filter.Categories,
		AttendeeEmail: filter.AttendeeEmail,
		Statuses:      filter.Statuses,
	})
}

func (s *EventService) validateWindow(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidWindow
	}
	if end.Sub(start) > s.maxDuration {
		return ErrInvalidDuration
	}
	return nil
}

// pushBestEffort syncs the event to the provider when the connection is live.
// Failures are swallowed: the local write already succeeded and stays the
// source of truth.
func (s *EventService) pushBestEffort(ctx context.Context, event persistence.Event, conn persistence.Connection, logger *slog.Logger) persistence.Event {
	if s.adapter == nil || conn.Status != persistence.ConnectionStatusConnected {
		return event
	}

	result, err := s.adapter.PushEvent(ctx, event, conn)
	if err != nil {
		s.recordSyncError(event.ID, conn.ID, &AdapterError{Op: "pushEvent", Err: err}, logger)
		return event
	}

	event.ExternalID = result.ExternalID
	syncedAt := result.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = s.now()
	}
	event.SyncedAt = &syncedAt
	if err := s.eventStore.UpdateEvent(ctx, event); err != nil {
		logger.Warn("failed to record provider sync state", "event_id", event.ID, "error", err)
	}
	return event
}

func (s *EventService) recordSyncError(eventID, connectionID string, cause error, logger *slog.Logger) {
	s.bus.Publish(events.Event{
		Type:         events.SyncError,
		EventID:      eventID,
		ConnectionID: connectionID,
		Message:      cause.Error(),
		At:           s.now(),
	})
	logger.Warn("provider sync failed", "event_id", eventID, "error", cause)
}
