package application

import (
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
)

// ConnectionInput captures caller provided connection fields.
type ConnectionInput struct {
	TenantID     string
	UserID       string
	ProviderID   string
	AccountEmail string
	Permissions  persistence.Permissions
	SyncSettings persistence.SyncSettings
}

// ConnectionUpdate carries the optional fields of a partial connection update.
// Nil fields are left unchanged; UpdatedAt is always refreshed.
type ConnectionUpdate struct {
	AccountEmail *string
	Permissions  *persistence.Permissions
	SyncEnabled  *bool
	SyncInterval *time.Duration
	Status       *persistence.ConnectionStatus
}

// EventInput captures caller provided event fields.
type EventInput struct {
	ConnectionID string
	Title        string
	Start        time.Time
	End          time.Time
	Categories   []string
	Attendees    []persistence.Attendee
	Availability persistence.EventAvailability
}

// EventUpdate carries the optional fields of a partial event update.
type EventUpdate struct {
	Title        *string
	Start        *time.Time
	End          *time.Time
	Categories   *[]string
	Attendees    *[]persistence.Attendee
	Availability *persistence.EventAvailability
	Status       *persistence.EventStatus
}

// EventListFilter narrows event listings. Start/End select events intersecting
// [Start, End) when both are set.
type EventListFilter struct {
	Start         *time.Time
	End           *time.Time
	Categories    []string
	AttendeeEmail string
	Statuses      []persistence.EventStatus
}

// HealthStatus grades the overall condition of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates no errored connections and no failed jobs.
	HealthHealthy HealthStatus = "healthy"
	// HealthDegraded indicates at least one errored connection or failed job.
	HealthDegraded HealthStatus = "degraded"
	// HealthUnhealthy indicates errors dominate: more errored than active
	// connections, or failed jobs past the configured threshold.
	HealthUnhealthy HealthStatus = "unhealthy"
)

// ConnectionTotals aggregates connection counts for the health report.
type ConnectionTotals struct {
	Total  int
	Active int
	Error  int
}

// SyncJobTotals aggregates job counts for the health report.
type SyncJobTotals struct {
	Pending int
	Running int
	Failed  int
}

// HealthReport is the answer to a system health query.
type HealthReport struct {
	Status      HealthStatus
	Providers   map[string]persistence.ProviderStatus
	Connections ConnectionTotals
	SyncJobs    SyncJobTotals
	CheckedAt   time.Time
}
