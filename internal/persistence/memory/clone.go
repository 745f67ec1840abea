package memory

import (
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
)

func cloneConnection(conn persistence.Connection) persistence.Connection {
	out := conn
	out.SyncSettings.LastSync = cloneTime(conn.SyncSettings.LastSync)
	out.SyncSettings.NextSync = cloneTime(conn.SyncSettings.NextSync)
	return out
}

func cloneEvent(event persistence.Event) persistence.Event {
	out := event
	if event.Categories != nil {
		out.Categories = make([]string, len(event.Categories))
		copy(out.Categories, event.Categories)
	}
	if event.Attendees != nil {
		out.Attendees = make([]persistence.Attendee, len(event.Attendees))
		copy(out.Attendees, event.Attendees)
	}
	out.SyncedAt = cloneTime(event.SyncedAt)
	return out
}

func cloneSyncJob(job persistence.SyncJob) persistence.SyncJob {
	out := job
	if job.Errors != nil {
		out.Errors = make([]persistence.SyncError, len(job.Errors))
		copy(out.Errors, job.Errors)
	}
	out.StartedAt = cloneTime(job.StartedAt)
	out.CompletedAt = cloneTime(job.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
