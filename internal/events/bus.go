// Package events carries domain notifications from the core services to
// audit and notification consumers. Delivery is ordered: events are handed to
// every subscriber in publish order.
package events

import (
	"sync"
	"time"
)

// Type enumerates the domain notifications the core emits.
type Type string

const (
	// ConnectionCreated fires after a connection is stored.
	ConnectionCreated Type = "connectionCreated"
	// ConnectionUpdated fires after a connection is modified.
	ConnectionUpdated Type = "connectionUpdated"
	// ConnectionDeleted fires after a connection and its events are removed.
	ConnectionDeleted Type = "connectionDeleted"
	// EventCreated fires after a calendar event is stored.
	EventCreated Type = "eventCreated"
	// EventUpdated fires after a calendar event is modified.
	EventUpdated Type = "eventUpdated"
	// EventDeleted fires after a calendar event is removed.
	EventDeleted Type = "eventDeleted"
	// SyncCompleted fires when a sync job reaches the completed state.
	SyncCompleted Type = "syncCompleted"
	// SyncCancelled fires when a cancellation request has been honoured.
	SyncCancelled Type = "syncCancelled"
	// SyncError fires when a best-effort provider push fails.
	SyncError Type = "syncError"
	// ProviderStatusChanged fires when a provider's status is updated.
	ProviderStatusChanged Type = "providerStatusChanged"
)

// Event is one domain notification. Only the identifier fields relevant to the
// type are populated.
type Event struct {
	Type         Type
	ConnectionID string
	EventID      string
	JobID        string
	ProviderID   string
	Message      string
	At           time.Time
}

// subscriberBuffer bounds how far a slow consumer may lag before events are
// dropped for it. Dropping keeps publishers non-blocking.
const subscriberBuffer = 64

// Bus fans events out to subscribers. The zero value is not usable; call NewBus.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	closed      bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]chan Event)}
}

// Publish delivers the event to every current subscriber in subscription
// order. A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a consumer. The returned cancel function removes the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close removes all subscribers and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
