// Package sync manages the lifecycle of asynchronous synchronisation jobs and
// owns the contract the bridge expects from provider adapters.
package sync

import (
	"context"
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
)

// DeltaOperation identifies the kind of remote change a delta describes.
type DeltaOperation string

const (
	// DeltaCreate indicates the remote calendar gained an event.
	DeltaCreate DeltaOperation = "create"
	// DeltaUpdate indicates an existing remote event changed.
	DeltaUpdate DeltaOperation = "update"
	// DeltaDelete indicates a remote event was removed.
	DeltaDelete DeltaOperation = "delete"
)

// RemoteEvent is the provider-side representation of a calendar event.
type RemoteEvent struct {
	ExternalID   string
	Title        string
	Start        time.Time
	End          time.Time
	Categories   []string
	Attendees    []persistence.Attendee
	Availability persistence.EventAvailability
}

// Delta is one remote change reported by a provider.
type Delta struct {
	Op     DeltaOperation
	Remote RemoteEvent
}

// PushResult is a provider's acknowledgement of a pushed event.
type PushResult struct {
	ExternalID string
	SyncedAt   time.Time
}

// ProviderAdapter performs the actual remote calendar API calls. Adapters are
// expected to handle their own retries and timeouts; failures must come back
// as a single error value.
type ProviderAdapter interface {
	// PushEvent creates or updates the event on the remote calendar.
	PushEvent(ctx context.Context, event persistence.Event, conn persistence.Connection) (PushResult, error)
	// DeleteRemoteEvent removes the event from the remote calendar.
	DeleteRemoteEvent(ctx context.Context, event persistence.Event, conn persistence.Connection) error
	// PullDeltas enumerates remote changes. A nil since requests the entire
	// calendar; otherwise only changes after the given instant are returned,
	// in remote order.
	PullDeltas(ctx context.Context, conn persistence.Connection, since *time.Time) ([]Delta, error)
}
