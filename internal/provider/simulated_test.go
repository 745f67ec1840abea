package provider

import (
	"context"
	"testing"
	"time"

	"github.com/example/calendar-bridge/internal/sync"
	"github.com/example/calendar-bridge/internal/testfixtures"
)

func TestSimulatedAdapter(t *testing.T) {
	ctx := context.Background()

	t.Run("push assigns an external id and acknowledges", func(t *testing.T) {
		clock := testfixtures.NewClock(time.Time{})
		adapter := NewSimulatedAdapter(testfixtures.NewIDGenerator("ext").NextFunc(), clock.NowFunc())
		conn := testfixtures.NewConnection()

		result, err := adapter.PushEvent(ctx, testfixtures.NewEvent(conn.ID), conn)
		if err != nil {
			t.Fatalf("PushEvent: %v", err)
		}
		if result.ExternalID != "ext-1" {
			t.Fatalf("external id = %s", result.ExternalID)
		}
		if !result.SyncedAt.Equal(clock.Now()) {
			t.Fatalf("synced at = %v", result.SyncedAt)
		}
	})

	t.Run("push keeps an existing external id", func(t *testing.T) {
		adapter := NewSimulatedAdapter(testfixtures.NewIDGenerator("ext").NextFunc(), nil)
		conn := testfixtures.NewConnection()
		event := testfixtures.NewEvent(conn.ID, testfixtures.WithEventExternalID("remote-7"))

		result, err := adapter.PushEvent(ctx, event, conn)
		if err != nil {
			t.Fatalf("PushEvent: %v", err)
		}
		if result.ExternalID != "remote-7" {
			t.Fatalf("external id = %s", result.ExternalID)
		}
	})

	t.Run("full pull replays pushed events", func(t *testing.T) {
		adapter := NewSimulatedAdapter(testfixtures.NewIDGenerator("ext").NextFunc(), nil)
		conn := testfixtures.NewConnection()

		if _, err := adapter.PushEvent(ctx, testfixtures.NewEvent(conn.ID), conn); err != nil {
			t.Fatalf("PushEvent: %v", err)
		}

		deltas, err := adapter.PullDeltas(ctx, conn, nil)
		if err != nil {
			t.Fatalf("PullDeltas: %v", err)
		}
		if len(deltas) != 1 || deltas[0].Op != sync.DeltaCreate {
			t.Fatalf("deltas = %+v", deltas)
		}
	})

	t.Run("incremental pull drains only queued deltas", func(t *testing.T) {
		adapter := NewSimulatedAdapter(nil, nil)
		conn := testfixtures.NewConnection()
		since := testfixtures.ReferenceTime()

		adapter.QueueDeltas(conn.ID,
			sync.Delta{Op: sync.DeltaCreate, Remote: sync.RemoteEvent{ExternalID: "r1", Title: "One"}},
			sync.Delta{Op: sync.DeltaDelete, Remote: sync.RemoteEvent{ExternalID: "r1"}},
		)

		deltas, err := adapter.PullDeltas(ctx, conn, &since)
		if err != nil {
			t.Fatalf("PullDeltas: %v", err)
		}
		if len(deltas) != 2 || deltas[0].Op != sync.DeltaCreate || deltas[1].Op != sync.DeltaDelete {
			t.Fatalf("deltas = %+v", deltas)
		}

		again, err := adapter.PullDeltas(ctx, conn, &since)
		if err != nil {
			t.Fatalf("PullDeltas: %v", err)
		}
		if len(again) != 0 {
			t.Fatalf("queue not drained: %+v", again)
		}
	})

	t.Run("delete removes the remote copy", func(t *testing.T) {
		adapter := NewSimulatedAdapter(testfixtures.NewIDGenerator("ext").NextFunc(), nil)
		conn := testfixtures.NewConnection()
		event := testfixtures.NewEvent(conn.ID)

		result, err := adapter.PushEvent(ctx, event, conn)
		if err != nil {
			t.Fatalf("PushEvent: %v", err)
		}
		event.ExternalID = result.ExternalID

		if err := adapter.DeleteRemoteEvent(ctx, event, conn); err != nil {
			t.Fatalf("DeleteRemoteEvent: %v", err)
		}
		deltas, err := adapter.PullDeltas(ctx, conn, nil)
		if err != nil {
			t.Fatalf("PullDeltas: %v", err)
		}
		if len(deltas) != 0 {
			t.Fatalf("remote copy survived delete: %+v", deltas)
		}

		// Deleting again succeeds.
		if err := adapter.DeleteRemoteEvent(ctx, event, conn); err != nil {
			t.Fatalf("DeleteRemoteEvent on missing event: %v", err)
		}
	})

	t.Run("cancelled context aborts calls", func(t *testing.T) {
		adapter := NewSimulatedAdapter(nil, nil)
		conn := testfixtures.NewConnection()

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := adapter.PullDeltas(cancelled, conn, nil); err == nil {
			t.Fatalf("expected context error")
		}
		if _, err := adapter.PushEvent(cancelled, testfixtures.NewEvent(conn.ID), conn); err == nil {
			t.Fatalf("expected context error")
		}
	})
}
