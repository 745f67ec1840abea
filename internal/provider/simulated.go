package provider

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
	"github.com/example/calendar-bridge/internal/sync"
)

// SimulatedAdapter is an in-process stand-in for a real provider adapter. It
// keeps a per-connection remote calendar in memory: pushes land there and are
// acknowledged with generated external IDs, and pulls report the changes
// accumulated since the previous pull. Useful for local runs and deployments
// without live provider credentials.
type SimulatedAdapter struct {
	mu          gosync.Mutex
	idGenerator func() string
	now         func() time.Time
	remotes     map[string]map[string]sync.RemoteEvent
	pending     map[string][]sync.Delta
}

// NewSimulatedAdapter constructs a simulated adapter. IDGenerator and now fall
// back to safe defaults when nil.
func NewSimulatedAdapter(idGenerator func() string, now func() time.Time) *SimulatedAdapter {
	if idGenerator == nil {
		idGenerator = func() string { return fmt.Sprintf("ext-%d", time.Now().UnixNano()) }
	}
	if now == nil {
		now = time.Now
	}
	return &SimulatedAdapter{
		idGenerator: idGenerator,
		now:         now,
		remotes:     make(map[string]map[string]sync.RemoteEvent),
		pending:     make(map[string][]sync.Delta),
	}
}

// PushEvent records the event on the simulated remote calendar and returns an
// acknowledgement. An event without an external ID is assigned one.
func (a *SimulatedAdapter) PushEvent(ctx context.Context, event persistence.Event, conn persistence.Connection) (sync.PushResult, error) {
	if err := ctx.Err(); err != nil {
		return sync.PushResult{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	externalID := event.ExternalID
	if externalID == "" {
		externalID = a.idGenerator()
	}

	remote := a.remoteFor(conn.ID)
	remote[externalID] = sync.RemoteEvent{
		ExternalID:   externalID,
		Title:        event.Title,
		Start:        event.Start,
		End:          event.End,
		Categories:   append([]string(nil), event.Categories...),
		Attendees:    append([]persistence.Attendee(nil), event.Attendees...),
		Availability: event.Availability,
	}

	return sync.PushResult{ExternalID: externalID, SyncedAt: a.now()}, nil
}

// DeleteRemoteEvent removes the event from the simulated remote calendar.
// Deleting an unknown event succeeds, matching how real providers treat
// already-removed resources.
func (a *SimulatedAdapter) DeleteRemoteEvent(ctx context.Context, event persistence.Event, conn persistence.Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.remoteFor(conn.ID), event.ExternalID)
	return nil
}

// PullDeltas drains the changes queued for the connection. A nil since
// additionally replays the full remote calendar as create deltas ahead of the
// queue, mirroring a full reconciliation.
func (a *SimulatedAdapter) PullDeltas(ctx context.Context, conn persistence.Connection, since *time.Time) ([]sync.Delta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var deltas []sync.Delta
	if since == nil {
		for _, remote := range a.remoteFor(conn.ID) {
			deltas = append(deltas, sync.Delta{Op: sync.DeltaCreate, Remote: remote})
		}
	}
	deltas = append(deltas, a.pending[conn.ID]...)
	a.pending[conn.ID] = nil

	return deltas, nil
}

// QueueDeltas stages remote changes the next pull for the connection will
// report.
func (a *SimulatedAdapter) QueueDeltas(connectionID string, deltas ...sync.Delta) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending[connectionID] = append(a.pending[connectionID], deltas...)
	remote := a.remoteFor(connectionID)
	for _, delta := range deltas {
		switch delta.Op {
		case sync.DeltaCreate, sync.DeltaUpdate:
			remote[delta.Remote.ExternalID] = delta.Remote
		case sync.DeltaDelete:
			delete(remote, delta.Remote.ExternalID)
		}
	}
}

func (a *SimulatedAdapter) remoteFor(connectionID string) map[string]sync.RemoteEvent {
	remote, ok := a.remotes[connectionID]
	if !ok {
		remote = make(map[string]sync.RemoteEvent)
		a.remotes[connectionID] = remote
	}
	return remote
}
