package persistence

import (
	"context"
	"time"
)

// ConnectionFilter narrows connection queries.
type ConnectionFilter struct {
	TenantID   string
	UserID     string
	ProviderID string
	Status     ConnectionStatus
	// SyncDueBefore selects connections with sync enabled whose NextSync is at
	// or before the given instant. Connections without a NextSync are included.
	SyncDueBefore *time.Time
}

// ConnectionRepository stores external calendar account links.
type ConnectionRepository interface {
	CreateConnection(ctx context.Context, conn Connection) error
	GetConnection(ctx context.Context, id string) (Connection, error)
	UpdateConnection(ctx context.Context, conn Connection) error
	DeleteConnection(ctx context.Context, id string) error
	ListConnections(ctx context.Context, filter ConnectionFilter) ([]Connection, error)
}

// EventFilter narrows event queries. Start/End bound the event window with
// half-open semantics: an event matches when it intersects [Start, End).
type EventFilter struct {
	ConnectionID  string
	TenantID      string
	Start         *time.Time
	End           *time.Time
	Categories    []string
	AttendeeEmail string
	Statuses      []EventStatus
}

// EventRepository stores calendar events scoped to connections.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	GetEventByExternalID(ctx context.Context, connectionID, externalID string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id string) error
	// DeleteEventsForConnection removes every event owned by the connection and
	// returns the removed count.
	DeleteEventsForConnection(ctx context.Context, connectionID string) (int, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
}

// SyncJobFilter narrows sync job queries.
type SyncJobFilter struct {
	ConnectionID string
	Statuses     []SyncJobStatus
}

// SyncJobRepository stores synchronisation job records.
type SyncJobRepository interface {
	CreateSyncJob(ctx context.Context, job SyncJob) error
	GetSyncJob(ctx context.Context, id string) (SyncJob, error)
	UpdateSyncJob(ctx context.Context, job SyncJob) error
	ListSyncJobs(ctx context.Context, filter SyncJobFilter) ([]SyncJob, error)
}
