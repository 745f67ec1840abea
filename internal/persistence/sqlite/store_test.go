package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
	"github.com/example/calendar-bridge/internal/testfixtures"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "bridge.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestStore_ConnectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	last := testfixtures.ReferenceTime()
	next := last.Add(time.Hour)
	conn := testfixtures.NewConnection(testfixtures.WithConnectionSyncSettings(persistence.SyncSettings{
		Enabled:  true,
		Interval: 30 * time.Minute,
		LastSync: &last,
		NextSync: &next,
	}))

	if err := store.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	got, err := store.GetConnection(ctx, conn.ID)
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if got.AccountEmail != conn.AccountEmail || got.ProviderID != conn.ProviderID {
		t.Fatalf("got %+v, want %+v", got, conn)
	}
	if got.SyncSettings.Interval != 30*time.Minute {
		t.Fatalf("interval = %v", got.SyncSettings.Interval)
	}
	if got.SyncSettings.LastSync == nil || !got.SyncSettings.LastSync.Equal(last) {
		t.Fatalf("last sync = %v, want %v", got.SyncSettings.LastSync, last)
	}
	if !got.Permissions.Manage {
		t.Fatalf("permissions lost in round trip: %+v", got.Permissions)
	}

	t.Run("duplicate id is rejected", func(t *testing.T) {
		if err := store.CreateConnection(ctx, conn); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("update then delete", func(t *testing.T) {
		got.Status = persistence.ConnectionStatusError
		if err := store.UpdateConnection(ctx, got); err != nil {
			t.Fatalf("UpdateConnection: %v", err)
		}
		fresh, err := store.GetConnection(ctx, conn.ID)
		if err != nil {
			t.Fatalf("GetConnection: %v", err)
		}
		if fresh.Status != persistence.ConnectionStatusError {
			t.Fatalf("status = %s", fresh.Status)
		}

		if err := store.DeleteConnection(ctx, conn.ID); err != nil {
			t.Fatalf("DeleteConnection: %v", err)
		}
		if err := store.DeleteConnection(ctx, conn.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_ListConnections(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := testfixtures.ReferenceTime()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := testfixtures.NewConnection(testfixtures.WithConnectionSyncSettings(persistence.SyncSettings{
		Enabled: true, Interval: time.Hour, NextSync: &past,
	}))
	fresh := testfixtures.NewConnection(testfixtures.WithConnectionSyncSettings(persistence.SyncSettings{
		Enabled: true, Interval: time.Hour, NextSync: &future,
	}))
	disabled := testfixtures.NewConnection(testfixtures.WithConnectionSyncSettings(persistence.SyncSettings{
		Enabled: false, Interval: time.Hour,
	}))
	for _, c := range []persistence.Connection{due, fresh, disabled} {
		if err := store.CreateConnection(ctx, c); err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}
	}

	got, err := store.ListConnections(ctx, persistence.ConnectionFilter{SyncDueBefore: &now})
	if err != nil {
		t.Fatalf("ListConnections: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("due set has %d entries, want exactly %s", len(got), due.ID)
	}

	all, err := store.ListConnections(ctx, persistence.ConnectionFilter{})
	if err != nil {
		t.Fatalf("ListConnections: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d connections, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Fatalf("connections out of creation order at %d", i)
		}
	}
}

func TestStore_EventRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	event := testfixtures.NewEvent("c1",
		testfixtures.WithEventExternalID("ext-1"),
		testfixtures.WithEventCategories("standup"),
		testfixtures.WithEventAttendees(persistence.Attendee{Email: "carol@example.com", Response: "accepted"}),
	)
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	got, err := store.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if !got.Start.Equal(event.Start) || !got.End.Equal(event.End) {
		t.Fatalf("window %v-%v, want %v-%v", got.Start, got.End, event.Start, event.End)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "standup" {
		t.Fatalf("categories = %v", got.Categories)
	}
	if len(got.Attendees) != 1 || got.Attendees[0].Response != "accepted" {
		t.Fatalf("attendees = %v", got.Attendees)
	}

	t.Run("lookup by external id", func(t *testing.T) {
		byExt, err := store.GetEventByExternalID(ctx, "c1", "ext-1")
		if err != nil {
			t.Fatalf("GetEventByExternalID: %v", err)
		}
		if byExt.ID != event.ID {
			t.Fatalf("got %s, want %s", byExt.ID, event.ID)
		}
		if _, err := store.GetEventByExternalID(ctx, "c1", "ext-2"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate external id on the same connection is rejected", func(t *testing.T) {
		dup := testfixtures.NewEvent("c1", testfixtures.WithEventExternalID("ext-1"))
		if err := store.CreateEvent(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("events without external ids never collide", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := store.CreateEvent(ctx, testfixtures.NewEvent("c1")); err != nil {
				t.Fatalf("CreateEvent: %v", err)
			}
		}
	})
}

func TestStore_ListEvents(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	hour := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	before := testfixtures.NewEvent("c1", testfixtures.WithEventWindow(hour(8), hour(9)))
	inside := testfixtures.NewEvent("c1", testfixtures.WithEventWindow(hour(10), hour(11)))
	cancelled := testfixtures.NewEvent("c1",
		testfixtures.WithEventWindow(hour(12), hour(13)),
		testfixtures.WithEventStatus(persistence.EventStatusCancelled),
	)
	for _, e := range []persistence.Event{before, inside, cancelled} {
		if err := store.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	start, end := hour(9), hour(15)
	got, err := store.ListEvents(ctx, persistence.EventFilter{
		ConnectionID: "c1",
		Start:        &start,
		End:          &end,
		Statuses:     []persistence.EventStatus{persistence.EventStatusConfirmed},
	})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != inside.ID {
		t.Fatalf("got %d events, want exactly %s", len(got), inside.ID)
	}
}

func TestStore_DeleteEventsForConnection(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := store.CreateEvent(ctx, testfixtures.NewEvent("c1")); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}
	keep := testfixtures.NewEvent("c2")
	if err := store.CreateEvent(ctx, keep); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	removed, err := store.DeleteEventsForConnection(ctx, "c1")
	if err != nil {
		t.Fatalf("DeleteEventsForConnection: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed %d, want 3", removed)
	}
	if _, err := store.GetEvent(ctx, keep.ID); err != nil {
		t.Fatalf("unrelated event removed: %v", err)
	}
}

func TestStore_SyncJobRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	job := testfixtures.NewSyncJob("c1")
	if err := store.CreateSyncJob(ctx, job); err != nil {
		t.Fatalf("CreateSyncJob: %v", err)
	}

	started := testfixtures.ReferenceTime()
	job.Status = persistence.SyncJobFailed
	job.StartedAt = &started
	job.Errors = append(job.Errors, persistence.SyncError{Message: "pull deltas: boom", At: started})
	if err := store.UpdateSyncJob(ctx, job); err != nil {
		t.Fatalf("UpdateSyncJob: %v", err)
	}

	got, err := store.GetSyncJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetSyncJob: %v", err)
	}
	if got.Status != persistence.SyncJobFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if len(got.Errors) != 1 || got.Errors[0].Message != "pull deltas: boom" {
		t.Fatalf("errors = %+v", got.Errors)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Fatalf("started at = %v", got.StartedAt)
	}

	t.Run("status filter", func(t *testing.T) {
		jobs, err := store.ListSyncJobs(ctx, persistence.SyncJobFilter{
			ConnectionID: "c1",
			Statuses:     []persistence.SyncJobStatus{persistence.SyncJobFailed},
		})
		if err != nil {
			t.Fatalf("ListSyncJobs: %v", err)
		}
		if len(jobs) != 1 || jobs[0].ID != job.ID {
			t.Fatalf("got %d jobs", len(jobs))
		}
	})
}
