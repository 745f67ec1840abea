package persistence

import "time"

// ProviderCategory identifies the family of calendar backend a provider belongs to.
type ProviderCategory string

const (
	// ProviderCategoryMicrosoft covers Microsoft 365 / Outlook calendars.
	ProviderCategoryMicrosoft ProviderCategory = "microsoft"
	// ProviderCategoryGoogle covers Google Calendar.
	ProviderCategoryGoogle ProviderCategory = "google"
	// ProviderCategoryExchange covers on-premises Exchange servers.
	ProviderCategoryExchange ProviderCategory = "exchange"
	// ProviderCategoryCalDAV covers generic CalDAV endpoints.
	ProviderCategoryCalDAV ProviderCategory = "caldav"
	// ProviderCategoryICloud covers Apple iCloud calendars.
	ProviderCategoryICloud ProviderCategory = "icloud"
)

// ProviderStatus reflects the operational state of a provider.
type ProviderStatus string

const (
	// ProviderStatusActive indicates the provider is fully operational.
	ProviderStatusActive ProviderStatus = "active"
	// ProviderStatusDegraded indicates the provider is operational with reduced reliability.
	ProviderStatusDegraded ProviderStatus = "degraded"
	// ProviderStatusDisabled indicates the provider is administratively disabled.
	ProviderStatusDisabled ProviderStatus = "disabled"
)

// ProviderCapabilities enumerates the operations a provider supports.
type ProviderCapabilities struct {
	CreateEvents      bool
	UpdateEvents      bool
	DeleteEvents      bool
	ReadEvents        bool
	ManagePermissions bool
	Recurring         bool
	Attachments       bool
	Reminders         bool
	TimeZones         bool
	Availability      bool
}

// RateLimits captures the request budget a provider grants.
type RateLimits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Provider describes a known calendar backend. All fields except Status and
// StatusDetail are immutable after registration.
type Provider struct {
	ID           string
	DisplayName  string
	Category     ProviderCategory
	Capabilities ProviderCapabilities
	RateLimits   RateLimits
	Status       ProviderStatus
	StatusDetail string
}

// ConnectionStatus reflects the link state of an external calendar account.
type ConnectionStatus string

const (
	// ConnectionStatusConnected indicates the account link is healthy.
	ConnectionStatusConnected ConnectionStatus = "connected"
	// ConnectionStatusDisconnected indicates the account link is inactive.
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	// ConnectionStatusError indicates the account link is failing.
	ConnectionStatusError ConnectionStatus = "error"
)

// Permissions holds the operation flags granted on a connection.
type Permissions struct {
	Read   bool
	Write  bool
	Delete bool
	Manage bool
}

// SyncSettings holds per-connection synchronisation preferences.
type SyncSettings struct {
	Enabled  bool
	Interval time.Duration
	LastSync *time.Time
	NextSync *time.Time
}

// Connection represents a tenant/user's linked external calendar account.
type Connection struct {
	ID           string
	TenantID     string
	UserID       string
	ProviderID   string
	AccountEmail string
	Permissions  Permissions
	SyncSettings SyncSettings
	Status       ConnectionStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EventAvailability classifies how an event affects free/busy state.
type EventAvailability string

const (
	// AvailabilityAvailable marks time the owner remains free.
	AvailabilityAvailable EventAvailability = "available"
	// AvailabilityBusy marks time the owner is occupied.
	AvailabilityBusy EventAvailability = "busy"
	// AvailabilityTentative marks time the owner is provisionally occupied.
	AvailabilityTentative EventAvailability = "tentative"
	// AvailabilityOutOfOffice marks time the owner is away.
	AvailabilityOutOfOffice EventAvailability = "out_of_office"
)

// EventStatus reflects the lifecycle state of a calendar event.
type EventStatus string

const (
	// EventStatusConfirmed indicates the event is active.
	EventStatusConfirmed EventStatus = "confirmed"
	// EventStatusCancelled indicates the event has been called off.
	EventStatusCancelled EventStatus = "cancelled"
)

// Attendee identifies a participant invited to an event.
type Attendee struct {
	Email    string
	Response string
}

// Event represents a calendar event owned by a connection.
type Event struct {
	ID           string
	ConnectionID string
	TenantID     string
	Title        string
	Start        time.Time
	End          time.Time
	Categories   []string
	Attendees    []Attendee
	Availability EventAvailability
	Status       EventStatus
	ExternalID   string
	SyncedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SyncType distinguishes a complete resync from a delta pass.
type SyncType string

const (
	// SyncTypeFull reconciles the entire remote calendar.
	SyncTypeFull SyncType = "full"
	// SyncTypeIncremental reconciles changes since the last successful sync.
	SyncTypeIncremental SyncType = "incremental"
)

// SyncJobStatus tracks a job through its state machine.
type SyncJobStatus string

const (
	// SyncJobPending indicates the job is created but not yet executing.
	SyncJobPending SyncJobStatus = "pending"
	// SyncJobRunning indicates the job is executing.
	SyncJobRunning SyncJobStatus = "running"
	// SyncJobCompleted indicates the job finished successfully.
	SyncJobCompleted SyncJobStatus = "completed"
	// SyncJobFailed indicates the job terminated with an error.
	SyncJobFailed SyncJobStatus = "failed"
	// SyncJobCancelled indicates the job was stopped by request.
	SyncJobCancelled SyncJobStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s SyncJobStatus) Terminal() bool {
	switch s {
	case SyncJobCompleted, SyncJobFailed, SyncJobCancelled:
		return true
	}
	return false
}

// SyncError records a failure observed while a job executed.
type SyncError struct {
	Message string
	At      time.Time
}

// SyncJob represents one asynchronous reconciliation run for a connection.
type SyncJob struct {
	ID           string
	ConnectionID string
	Type         SyncType
	Status       SyncJobStatus
	Progress     int
	Processed    int
	Created      int
	Updated      int
	Deleted      int
	Errors       []SyncError
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
