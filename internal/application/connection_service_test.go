package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/calendar-bridge/internal/events"
	"github.com/example/calendar-bridge/internal/persistence"
	"github.com/example/calendar-bridge/internal/persistence/memory"
	"github.com/example/calendar-bridge/internal/provider"
	"github.com/example/calendar-bridge/internal/testfixtures"
)

type syncCoordinatorStub struct {
	scheduled   []string
	scheduleErr error
	cancelled   []string
	cancelErr   error
}

func (s *syncCoordinatorStub) Schedule(ctx context.Context, connectionID string, syncType persistence.SyncType) (string, error) {
	if s.scheduleErr != nil {
		return "", s.scheduleErr
	}
	s.scheduled = append(s.scheduled, connectionID)
	return "job-1", nil
}

func (s *syncCoordinatorStub) CancelForConnection(ctx context.Context, connectionID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, connectionID)
	return nil
}

func newConnectionService(t *testing.T, store *memory.Store, syncs *syncCoordinatorStub, policy DomainPolicy, maxConnections int) (*ConnectionService, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	return NewConnectionService(ConnectionServiceConfig{
		Connections:    store,
		Events:         store,
		Providers:      provider.NewRegistry(provider.DefaultCatalogue(), nil, nil),
		Syncs:          syncs,
		Bus:            bus,
		Policy:         policy,
		MaxConnections: maxConnections,
		IDGenerator:    testfixtures.NewIDGenerator("conn").NextFunc(),
		Now:            testfixtures.NewClock(time.Time{}).NowFunc(),
	}), bus
}

func validInput() ConnectionInput {
	return ConnectionInput{
		TenantID:     "tenant-001",
		UserID:       "alice",
		ProviderID:   "google-calendar",
		AccountEmail: "alice@example.com",
		Permissions:  persistence.Permissions{Read: true, Write: true},
		SyncSettings: persistence.SyncSettings{Enabled: true},
	}
}

func TestConnectionService_CreateConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the connection and schedules the initial full sync", func(t *testing.T) {
		store := memory.NewStore()
		syncs := &syncCoordinatorStub{}
		svc, bus := newConnectionService(t, store, syncs, DomainPolicy{}, 5)
		ch, cancel := bus.Subscribe()
		defer cancel()

		conn, err := svc.CreateConnection(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}
		if conn.ID != "conn-1" {
			t.Fatalf("id = %s", conn.ID)
		}
		if conn.Status != persistence.ConnectionStatusConnected {
			t.Fatalf("status = %s", conn.Status)
		}
		if conn.SyncSettings.Interval != 15*time.Minute {
			t.Fatalf("interval not defaulted: %v", conn.SyncSettings.Interval)
		}

		if _, err := store.GetConnection(ctx, conn.ID); err != nil {
			t.Fatalf("connection not stored: %v", err)
		}
		if len(syncs.scheduled) != 1 || syncs.scheduled[0] != conn.ID {
			t.Fatalf("scheduled = %v", syncs.scheduled)
		}

		select {
		case got := <-ch:
			if got.Type != events.ConnectionCreated || got.ConnectionID != conn.ID {
				t.Fatalf("notification = %+v", got)
			}
		default:
			t.Fatalf("no connectionCreated notification")
		}
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newConnectionService(t, store, &syncCoordinatorStub{}, DomainPolicy{}, 5)

		input := validInput()
		input.ProviderID = "lotus-notes"
		if _, err := svc.CreateConnection(ctx, input); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("connection cap is enforced", func(t *testing.T) {
		store := memory.NewStore()
		syncs := &syncCoordinatorStub{}
		svc, _ := newConnectionService(t, store, syncs, DomainPolicy{}, 2)

		for i := 0; i < 2; i++ {
			if _, err := svc.CreateConnection(ctx, validInput()); err != nil {
				t.Fatalf("CreateConnection %d: %v", i, err)
			}
		}
		if _, err := svc.CreateConnection(ctx, validInput()); !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("expected ErrLimitExceeded, got %v", err)
		}
	})

	t.Run("cap applies per user", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newConnectionService(t, store, &syncCoordinatorStub{}, DomainPolicy{}, 1)

		if _, err := svc.CreateConnection(ctx, validInput()); err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}
		other := validInput()
		other.UserID = "bob"
		other.AccountEmail = "bob@example.com"
		if _, err := svc.CreateConnection(ctx, other); err != nil {
			t.Fatalf("another user's first connection rejected: %v", err)
		}
	})

	t.Run("failed sync scheduling does not fail the create", func(t *testing.T) {
		store := memory.NewStore()
		syncs := &syncCoordinatorStub{scheduleErr: errors.New("queue down")}
		svc, _ := newConnectionService(t, store, syncs, DomainPolicy{}, 5)

		conn, err := svc.CreateConnection(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}
		if _, err := store.GetConnection(ctx, conn.ID); err != nil {
			t.Fatalf("connection missing: %v", err)
		}
	})
}

func TestDomainPolicy(t *testing.T) {
	cases := []struct {
		name   string
		policy DomainPolicy
		email  string
		want   bool
	}{
		{name: "empty policy accepts", policy: DomainPolicy{}, email: "a@example.com", want: true},
		{name: "allow-list admits member", policy: DomainPolicy{Allowed: []string{"example.com"}}, email: "a@example.com", want: true},
		{name: "allow-list is exclusive", policy: DomainPolicy{Allowed: []string{"example.com"}}, email: "a@other.com", want: false},
		{name: "block-list denies member", policy: DomainPolicy{Blocked: []string{"spam.example"}}, email: "a@spam.example", want: false},
		{name: "block wins over allow", policy: DomainPolicy{Allowed: []string{"example.com"}, Blocked: []string{"example.com"}}, email: "a@example.com", want: false},
		{name: "comparison is case-insensitive", policy: DomainPolicy{Allowed: []string{"example.com"}}, email: "a@EXAMPLE.COM", want: true},
		{name: "malformed address is rejected", policy: DomainPolicy{}, email: "not-an-email", want: false},
		{name: "trailing at is rejected", policy: DomainPolicy{}, email: "user@", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.Accepts(tc.email); got != tc.want {
				t.Fatalf("Accepts(%q) = %v, want %v", tc.email, got, tc.want)
			}
		})
	}
}

func TestConnectionService_CreateConnection_DomainPolicy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newConnectionService(t, store, &syncCoordinatorStub{}, DomainPolicy{
		Allowed: []string{"example.com"},
	}, 5)

	input := validInput()
	input.AccountEmail = "alice@outside.org"
	if _, err := svc.CreateConnection(ctx, input); !errors.Is(err, ErrDomainRejected) {
		t.Fatalf("expected ErrDomainRejected, got %v", err)
	}
}

func TestConnectionService_UpdateConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update touches only supplied fields", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newConnectionService(t, store, &syncCoordinatorStub{}, DomainPolicy{}, 5)

		conn, err := svc.CreateConnection(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}

		disabled := false
		interval := 45 * time.Minute
		updated, err := svc.UpdateConnection(ctx, conn.ID, ConnectionUpdate{
			SyncEnabled:  &disabled,
			SyncInterval: &interval,
		})
		if err != nil {
			t.Fatalf("UpdateConnection: %v", err)
		}
		if updated.SyncSettings.Enabled || updated.SyncSettings.Interval != interval {
			t.Fatalf("sync settings = %+v", updated.SyncSettings)
		}
		if updated.AccountEmail != conn.AccountEmail {
			t.Fatalf("email changed unexpectedly: %s", updated.AccountEmail)
		}
		if !updated.UpdatedAt.After(conn.UpdatedAt) && !updated.UpdatedAt.Equal(conn.UpdatedAt) {
			t.Fatalf("UpdatedAt went backwards")
		}
	})

	t.Run("email change is checked against the policy", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newConnectionService(t, store, &syncCoordinatorStub{}, DomainPolicy{
			Blocked: []string{"spam.example"},
		}, 5)

		conn, err := svc.CreateConnection(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}

		bad := "alice@spam.example"
		if _, err := svc.UpdateConnection(ctx, conn.ID, ConnectionUpdate{AccountEmail: &bad}); !errors.Is(err, ErrDomainRejected) {
			t.Fatalf("expected ErrDomainRejected, got %v", err)
		}
	})

	t.Run("unknown connection returns ErrNotFound", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newConnectionService(t, store, &syncCoordinatorStub{}, DomainPolicy{}, 5)

		if _, err := svc.UpdateConnection(ctx, "missing", ConnectionUpdate{}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestConnectionService_DeleteConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("cascade removes events after cancelling sync work", func(t *testing.T) {
		store := memory.NewStore()
		syncs := &syncCoordinatorStub{}
		svc, bus := newConnectionService(t, store, syncs, DomainPolicy{}, 5)
		ch, cancel := bus.Subscribe()
		defer cancel()

		conn, err := svc.CreateConnection(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := store.CreateEvent(ctx, testfixtures.NewEvent(conn.ID)); err != nil {
				t.Fatalf("CreateEvent: %v", err)
			}
		}

		if err := svc.DeleteConnection(ctx, conn.ID); err != nil {
			t.Fatalf("DeleteConnection: %v", err)
		}

		if len(syncs.cancelled) != 1 || syncs.cancelled[0] != conn.ID {
			t.Fatalf("cancelled = %v", syncs.cancelled)
		}
		if _, err := store.GetConnection(ctx, conn.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("connection survived delete: %v", err)
		}
		left, err := store.ListEvents(ctx, persistence.EventFilter{ConnectionID: conn.ID})
		if err != nil {
			t.Fatalf("ListEvents: %v", err)
		}
		if len(left) != 0 {
			t.Fatalf("%d events survived delete", len(left))
		}

		var deleted bool
		for len(ch) > 0 {
			if got := <-ch; got.Type == events.ConnectionDeleted {
				deleted = true
			}
		}
		if !deleted {
			t.Fatalf("no connectionDeleted notification")
		}
	})

	t.Run("delete of unknown connection returns ErrNotFound", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newConnectionService(t, store, &syncCoordinatorStub{}, DomainPolicy{}, 5)

		if err := svc.DeleteConnection(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("teardown failure aborts the delete", func(t *testing.T) {
		store := memory.NewStore()
		syncs := &syncCoordinatorStub{cancelErr: errors.New("still running")}
		svc, _ := newConnectionService(t, store, syncs, DomainPolicy{}, 5)

		conn, err := svc.CreateConnection(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}
		if err := svc.DeleteConnection(ctx, conn.ID); err == nil {
			t.Fatalf("expected the teardown error")
		}
		if _, err := store.GetConnection(ctx, conn.ID); err != nil {
			t.Fatalf("connection removed despite failed teardown: %v", err)
		}
	})
}
