package http

import (
	"time"

	"github.com/example/calendar-bridge/internal/availability"
	"github.com/example/calendar-bridge/internal/persistence"
)

type permissionsDTO struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
	Manage bool `json:"manage"`
}

type syncSettingsDTO struct {
	Enabled  bool       `json:"enabled"`
	Interval string     `json:"interval"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	NextSync *time.Time `json:"next_sync,omitempty"`
}

type connectionDTO struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	UserID       string          `json:"user_id"`
	ProviderID   string          `json:"provider_id"`
	AccountEmail string          `json:"account_email"`
	Permissions  permissionsDTO  `json:"permissions"`
	SyncSettings syncSettingsDTO `json:"sync_settings"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toConnectionDTO(conn persistence.Connection) connectionDTO {
	return connectionDTO{
		ID:           conn.ID,
		TenantID:     conn.TenantID,
		UserID:       conn.UserID,
		ProviderID:   conn.ProviderID,
		AccountEmail: conn.AccountEmail,
		Permissions: permissionsDTO{
			Read:   conn.Permissions.Read,
			Write:  conn.Permissions.Write,
			Delete: conn.Permissions.Delete,
			Manage: conn.Permissions.Manage,
		},
		SyncSettings: syncSettingsDTO{
			Enabled:  conn.SyncSettings.Enabled,
			Interval: conn.SyncSettings.Interval.String(),
			LastSync: conn.SyncSettings.LastSync,
			NextSync: conn.SyncSettings.NextSync,
		},
		Status:    string(conn.Status),
		CreatedAt: conn.CreatedAt,
		UpdatedAt: conn.UpdatedAt,
	}
}

func toConnectionDTOs(conns []persistence.Connection) []connectionDTO {
	out := make([]connectionDTO, 0, len(conns))
	for _, conn := range conns {
		out = append(out, toConnectionDTO(conn))
	}
	return out
}

type attendeeDTO struct {
	Email    string `json:"email"`
	Response string `json:"response,omitempty"`
}

type eventDTO struct {
	ID           string        `json:"id"`
	ConnectionID string        `json:"connection_id"`
	TenantID     string        `json:"tenant_id"`
	Title        string        `json:"title"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Categories   []string      `json:"categories,omitempty"`
	Attendees    []attendeeDTO `json:"attendees,omitempty"`
	Availability string        `json:"availability"`
	Status       string        `json:"status"`
	ExternalID   string        `json:"external_id,omitempty"`
	SyncedAt     *time.Time    `json:"synced_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func toEventDTO(event persistence.Event) eventDTO {
	attendees := make([]attendeeDTO, 0, len(event.Attendees))
	for _, a := range event.Attendees {
		attendees = append(attendees, attendeeDTO{Email: a.Email, Response: a.Response})
	}
	return eventDTO{
		ID:           event.ID,
		ConnectionID: event.ConnectionID,
		TenantID:     event.TenantID,
		Title:        event.Title,
		Start:        event.Start,
		End:          event.End,
		Categories:   event.Categories,
		Attendees:    attendees,
		Availability: string(event.Availability),
		Status:       string(event.Status),
		ExternalID:   event.ExternalID,
		SyncedAt:     event.SyncedAt,
		CreatedAt:    event.CreatedAt,
		UpdatedAt:    event.UpdatedAt,
	}
}

func toEventDTOs(events []persistence.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

type syncJobDTO struct {
	ID           string         `json:"id"`
	ConnectionID string         `json:"connection_id"`
	Type         string         `json:"type"`
	Status       string         `json:"status"`
	Progress     int            `json:"progress"`
	Processed    int            `json:"processed"`
	Created      int            `json:"created"`
	Updated      int            `json:"updated"`
	Deleted      int            `json:"deleted"`
	Errors       []syncErrorDTO `json:"errors,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

type syncErrorDTO struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func toSyncJobDTO(job persistence.SyncJob) syncJobDTO {
	errs := make([]syncErrorDTO, 0, len(job.Errors))
	for _, e := range job.Errors {
		errs = append(errs, syncErrorDTO{Message: e.Message, At: e.At})
	}
	return syncJobDTO{
		ID:           job.ID,
		ConnectionID: job.ConnectionID,
		Type:         string(job.Type),
		Status:       string(job.Status),
		Progress:     job.Progress,
		Processed:    job.Processed,
		Created:      job.Created,
		Updated:      job.Updated,
		Deleted:      job.Deleted,
		Errors:       errs,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
}

type slotDTO struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	EventID    string    `json:"event_id,omitempty"`
	EventTitle string    `json:"event_title,omitempty"`
}

type clockTimeDTO struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type workingHoursDTO struct {
	Start clockTimeDTO `json:"start"`
	End   clockTimeDTO `json:"end"`
}

type dayAvailabilityDTO struct {
	UserID       string            `json:"user_id"`
	Date         time.Time         `json:"date"`
	TimeZone     string            `json:"time_zone"`
	Slots        []slotDTO         `json:"slots"`
	WorkingHours workingHoursDTO   `json:"working_hours"`
	Breaks       []workingHoursDTO `json:"breaks,omitempty"`
}

func toDayAvailabilityDTO(day availability.DayAvailability) dayAvailabilityDTO {
	slots := make([]slotDTO, 0, len(day.Slots))
	for _, slot := range day.Slots {
		slots = append(slots, slotDTO{
			Start:      slot.Start,
			End:        slot.End,
			Status:     string(slot.Status),
			EventID:    slot.EventID,
			EventTitle: slot.EventTitle,
		})
	}
	breaks := make([]workingHoursDTO, 0, len(day.Breaks))
	for _, b := range day.Breaks {
		breaks = append(breaks, workingHoursDTO{
			Start: clockTimeDTO{Hour: b.Start.Hour, Minute: b.Start.Minute},
			End:   clockTimeDTO{Hour: b.End.Hour, Minute: b.End.Minute},
		})
	}
	tz := ""
	if day.Location != nil {
		tz = day.Location.String()
	}
	return dayAvailabilityDTO{
		UserID:   day.UserID,
		Date:     day.Date,
		TimeZone: tz,
		Slots:    slots,
		WorkingHours: workingHoursDTO{
			Start: clockTimeDTO{Hour: day.WorkingHours.Start.Hour, Minute: day.WorkingHours.Start.Minute},
			End:   clockTimeDTO{Hour: day.WorkingHours.End.Hour, Minute: day.WorkingHours.End.Minute},
		},
		Breaks: breaks,
	}
}

type openWindowDTO struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	UserIDs []string  `json:"user_ids"`
}

func toOpenWindowDTOs(windows []availability.OpenWindow) []openWindowDTO {
	out := make([]openWindowDTO, 0, len(windows))
	for _, w := range windows {
		out = append(out, openWindowDTO{Start: w.Start, End: w.End, UserIDs: w.UserIDs})
	}
	return out
}
