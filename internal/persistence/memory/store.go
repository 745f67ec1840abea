// Package memory provides map-backed repositories guarded by a single RWMutex.
// Reads return deep copies so callers never observe a partially applied write.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/calendar-bridge/internal/persistence"
)

// Store implements every repository interface in the persistence package.
type Store struct {
	mu          sync.RWMutex
	connections map[string]persistence.Connection
	events      map[string]persistence.Event
	jobs        map[string]persistence.SyncJob
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		connections: make(map[string]persistence.Connection),
		events:      make(map[string]persistence.Event),
		jobs:        make(map[string]persistence.SyncJob),
	}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// --- ConnectionRepository implementation ---

// CreateConnection stores a new connection.
func (s *Store) CreateConnection(ctx context.Context, conn persistence.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connections[conn.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.connections[conn.ID] = cloneConnection(conn)
	return nil
}

// GetConnection retrieves a connection by ID.
func (s *Store) GetConnection(ctx context.Context, id string) (persistence.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.connections[id]
	if !ok {
		return persistence.Connection{}, persistence.ErrNotFound
	}
	return cloneConnection(conn), nil
}

// UpdateConnection replaces an existing connection.
func (s *Store) UpdateConnection(ctx context.Context, conn persistence.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connections[conn.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.connections[conn.ID] = cloneConnection(conn)
	return nil
}

// DeleteConnection removes a connection by ID.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connections[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.connections, id)
	return nil
}

// ListConnections enumerates connections matching the filter, ordered by creation time.
func (s *Store) ListConnections(ctx context.Context, filter persistence.ConnectionFilter) ([]persistence.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Connection, 0, len(s.connections))
	for _, conn := range s.connections {
		if !matchConnection(conn, filter) {
			continue
		}
		out = append(out, cloneConnection(conn))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matchConnection(conn persistence.Connection, filter persistence.ConnectionFilter) bool {
	if filter.TenantID != "" && conn.TenantID != filter.TenantID {
		return false
	}
	if filter.UserID != "" && conn.UserID != filter.UserID {
		return false
	}
	if filter.ProviderID != "" && conn.ProviderID != filter.ProviderID {
		return false
	}
	if filter.Status != "" && conn.Status != filter.Status {
		return false
	}
	if filter.SyncDueBefore != nil {
		if !conn.SyncSettings.Enabled {
			return false
		}
		if conn.SyncSettings.NextSync != nil && conn.SyncSettings.NextSync.After(*filter.SyncDueBefore) {
			return false
		}
	}
	return true
}

// --- EventRepository implementation ---

// CreateEvent stores a new event.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return cloneEvent(event), nil
}

// GetEventByExternalID retrieves the event a provider knows under externalID.
func (s *Store) GetEventByExternalID(ctx context.Context, connectionID, externalID string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, event := range s.events {
		if event.ConnectionID == connectionID && event.ExternalID != "" && event.ExternalID == externalID {
			return cloneEvent(event), nil
		}
	}
	return persistence.Event{}, persistence.ErrNotFound
}

// UpdateEvent replaces an existing event.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// DeleteEvent removes an event by ID.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// DeleteEventsForConnection removes every event owned by the connection.
func (s *Store) DeleteEventsForConnection(ctx context.Context, connectionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, event := range s.events {
		if event.ConnectionID == connectionID {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

// ListEvents enumerates events matching the filter, ordered by start time ascending.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Event, 0)
	for _, event := range s.events {
		if !matchEvent(event, filter) {
			continue
		}
		out = append(out, cloneEvent(event))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func matchEvent(event persistence.Event, filter persistence.EventFilter) bool {
	if filter.ConnectionID != "" && event.ConnectionID != filter.ConnectionID {
		return false
	}
	if filter.TenantID != "" && event.TenantID != filter.TenantID {
		return false
	}
	if filter.End != nil && !event.Start.Before(*filter.End) {
		return false
	}
	if filter.Start != nil && !event.End.After(*filter.Start) {
		return false
	}
	if len(filter.Categories) > 0 && !anyCategory(event.Categories, filter.Categories) {
		return false
	}
	if filter.AttendeeEmail != "" && !hasAttendee(event.Attendees, filter.AttendeeEmail) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, event.Status) {
		return false
	}
	return true
}

func anyCategory(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func hasAttendee(attendees []persistence.Attendee, email string) bool {
	for _, a := range attendees {
		if strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

func containsStatus(statuses []persistence.EventStatus, status persistence.EventStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// --- SyncJobRepository implementation ---

// CreateSyncJob stores a new sync job.
func (s *Store) CreateSyncJob(ctx context.Context, job persistence.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.jobs[job.ID] = cloneSyncJob(job)
	return nil
}

// GetSyncJob retrieves a sync job by ID.
func (s *Store) GetSyncJob(ctx context.Context, id string) (persistence.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return persistence.SyncJob{}, persistence.ErrNotFound
	}
	return cloneSyncJob(job), nil
}

// UpdateSyncJob replaces an existing sync job.
func (s *Store) UpdateSyncJob(ctx context.Context, job persistence.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.jobs[job.ID] = cloneSyncJob(job)
	return nil
}

// ListSyncJobs enumerates sync jobs matching the filter, ordered by creation time.
func (s *Store) ListSyncJobs(ctx context.Context, filter persistence.SyncJobFilter) ([]persistence.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.SyncJob, 0)
	for _, job := range s.jobs {
		if filter.ConnectionID != "" && job.ConnectionID != filter.ConnectionID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsJobStatus(filter.Statuses, job.Status) {
			continue
		}
		out = append(out, cloneSyncJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func containsJobStatus(statuses []persistence.SyncJobStatus, status persistence.SyncJobStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
