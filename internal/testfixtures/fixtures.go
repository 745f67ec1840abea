package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
)

var (
	connectionCounter uint64
	eventCounter      uint64
	syncJobCounter    uint64
)

var referenceTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ConnectionOption configures a generated connection fixture.
type ConnectionOption func(*persistence.Connection)

// NewConnection returns a deterministic connected calendar account with
// optional overrides. Connections carry full permissions and enabled hourly
// sync unless an option says otherwise.
func NewConnection(opts ...ConnectionOption) persistence.Connection {
	idx := atomic.AddUint64(&connectionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	conn := persistence.Connection{
		ID:           fmt.Sprintf("conn-%03d", idx),
		TenantID:     "tenant-001",
		UserID:       fmt.Sprintf("user-%03d", idx),
		ProviderID:   "google-calendar",
		AccountEmail: fmt.Sprintf("account-%03d@example.com", idx),
		Permissions: persistence.Permissions{
			Read:   true,
			Write:  true,
			Delete: true,
			Manage: true,
		},
		SyncSettings: persistence.SyncSettings{
			Enabled:  true,
			Interval: time.Hour,
		},
		Status:    persistence.ConnectionStatusConnected,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&conn)
	}
	return conn
}

// WithConnectionID overrides the generated connection ID.
func WithConnectionID(id string) ConnectionOption {
	return func(c *persistence.Connection) { c.ID = id }
}

// WithConnectionUser overrides the owning user.
func WithConnectionUser(userID string) ConnectionOption {
	return func(c *persistence.Connection) { c.UserID = userID }
}

// WithConnectionProvider overrides the provider the connection links to.
func WithConnectionProvider(providerID string) ConnectionOption {
	return func(c *persistence.Connection) { c.ProviderID = providerID }
}

// WithConnectionStatus overrides the link status.
func WithConnectionStatus(status persistence.ConnectionStatus) ConnectionOption {
	return func(c *persistence.Connection) { c.Status = status }
}

// WithConnectionPermissions overrides the granted permissions.
func WithConnectionPermissions(perms persistence.Permissions) ConnectionOption {
	return func(c *persistence.Connection) { c.Permissions = perms }
}

// WithConnectionSyncSettings overrides the sync preferences.
func WithConnectionSyncSettings(settings persistence.SyncSettings) ConnectionOption {
	return func(c *persistence.Connection) { c.SyncSettings = settings }
}

// EventOption configures a generated event fixture.
type EventOption func(*persistence.Event)

// NewEvent returns a deterministic confirmed busy event with optional
// overrides. Events start on the half hour after the reference time and last
// one hour.
func NewEvent(connectionID string, opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := referenceTime.Add(time.Duration(idx) * 30 * time.Minute)
	event := persistence.Event{
		ID:           fmt.Sprintf("event-%03d", idx),
		ConnectionID: connectionID,
		TenantID:     "tenant-001",
		Title:        fmt.Sprintf("Event %03d", idx),
		Start:        start,
		End:          start.Add(time.Hour),
		Availability: persistence.AvailabilityBusy,
		Status:       persistence.EventStatusConfirmed,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(e *persistence.Event) { e.ID = id }
}

// WithEventWindow overrides the event start and end.
func WithEventWindow(start, end time.Time) EventOption {
	return func(e *persistence.Event) {
		e.Start = start
		e.End = end
	}
}

// WithEventAvailability overrides the free/busy classification.
func WithEventAvailability(availability persistence.EventAvailability) EventOption {
	return func(e *persistence.Event) { e.Availability = availability }
}

// WithEventStatus overrides the lifecycle status.
func WithEventStatus(status persistence.EventStatus) EventOption {
	return func(e *persistence.Event) { e.Status = status }
}

// WithEventExternalID overrides the provider-assigned identifier.
func WithEventExternalID(externalID string) EventOption {
	return func(e *persistence.Event) { e.ExternalID = externalID }
}

// WithEventCategories overrides the category labels.
func WithEventCategories(categories ...string) EventOption {
	return func(e *persistence.Event) { e.Categories = categories }
}

// WithEventAttendees overrides the attendee list.
func WithEventAttendees(attendees ...persistence.Attendee) EventOption {
	return func(e *persistence.Event) { e.Attendees = attendees }
}

// SyncJobOption configures a generated sync job fixture.
type SyncJobOption func(*persistence.SyncJob)

// NewSyncJob returns a deterministic pending incremental job with optional
// overrides.
func NewSyncJob(connectionID string, opts ...SyncJobOption) persistence.SyncJob {
	idx := atomic.AddUint64(&syncJobCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	job := persistence.SyncJob{
		ID:           fmt.Sprintf("job-%03d", idx),
		ConnectionID: connectionID,
		Type:         persistence.SyncTypeIncremental,
		Status:       persistence.SyncJobPending,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&job)
	}
	return job
}

// WithSyncJobID overrides the generated job ID.
func WithSyncJobID(id string) SyncJobOption {
	return func(j *persistence.SyncJob) { j.ID = id }
}

// WithSyncJobType overrides the job type.
func WithSyncJobType(syncType persistence.SyncType) SyncJobOption {
	return func(j *persistence.SyncJob) { j.Type = syncType }
}

// WithSyncJobStatus overrides the job status.
func WithSyncJobStatus(status persistence.SyncJobStatus) SyncJobOption {
	return func(j *persistence.SyncJob) { j.Status = status }
}
