package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	t.Run("delivers events in publish order", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()

		ch, cancel := bus.Subscribe()
		defer cancel()

		bus.Publish(Event{Type: ConnectionCreated, ConnectionID: "c1"})
		bus.Publish(Event{Type: EventCreated, EventID: "e1"})
		bus.Publish(Event{Type: SyncCompleted, JobID: "j1"})

		want := []Type{ConnectionCreated, EventCreated, SyncCompleted}
		for i, typ := range want {
			select {
			case got := <-ch:
				if got.Type != typ {
					t.Fatalf("event %d has type %s, want %s", i, got.Type, typ)
				}
			case <-time.After(time.Second):
				t.Fatalf("timed out waiting for event %d", i)
			}
		}
	})

	t.Run("fans out to every subscriber", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()

		first, cancelFirst := bus.Subscribe()
		defer cancelFirst()
		second, cancelSecond := bus.Subscribe()
		defer cancelSecond()

		bus.Publish(Event{Type: EventDeleted, EventID: "e1"})

		for _, ch := range []<-chan Event{first, second} {
			select {
			case got := <-ch:
				if got.EventID != "e1" {
					t.Fatalf("got %+v", got)
				}
			case <-time.After(time.Second):
				t.Fatalf("subscriber missed the event")
			}
		}
	})

	t.Run("cancel closes the channel and stops delivery", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()

		ch, cancel := bus.Subscribe()
		cancel()

		if _, open := <-ch; open {
			t.Fatalf("channel still open after cancel")
		}
		// Publishing after cancel must not panic.
		bus.Publish(Event{Type: ConnectionUpdated})
		// Cancelling twice is a no-op.
		cancel()
	})

	t.Run("slow subscriber misses events past its buffer", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()

		ch, cancel := bus.Subscribe()
		defer cancel()

		for i := 0; i < subscriberBuffer+10; i++ {
			bus.Publish(Event{Type: EventUpdated})
		}

		if got := len(ch); got != subscriberBuffer {
			t.Fatalf("buffered %d events, want %d", got, subscriberBuffer)
		}
	})

	t.Run("closed bus rejects publishes and subscriptions", func(t *testing.T) {
		bus := NewBus()
		ch, cancel := bus.Subscribe()
		defer cancel()

		bus.Close()

		if _, open := <-ch; open {
			t.Fatalf("existing channel still open after Close")
		}
		bus.Publish(Event{Type: ConnectionDeleted})

		late, lateCancel := bus.Subscribe()
		defer lateCancel()
		if _, open := <-late; open {
			t.Fatalf("subscription on a closed bus returned an open channel")
		}
	})

	t.Run("nil bus publish is safe", func(t *testing.T) {
		var bus *Bus
		bus.Publish(Event{Type: SyncError})
	})
}
