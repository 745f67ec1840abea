package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/calendar-bridge/internal/events"
	"github.com/example/calendar-bridge/internal/persistence"
)

// ProviderCatalog exposes provider lookup operations.
type ProviderCatalog interface {
	Get(ctx context.Context, id string) (persistence.Provider, error)
}

// SyncCoordinator is the slice of the orchestrator the connection service
// needs: scheduling the initial full sync and tearing down jobs on delete.
type SyncCoordinator interface {
	Schedule(ctx context.Context, connectionID string, syncType persistence.SyncType) (string, error)
	CancelForConnection(ctx context.Context, connectionID string) error
}

// DomainPolicy is the allow/block-list applied to account domains. A non-empty
// allow-list is exclusive; the block-list denies regardless.
type DomainPolicy struct {
	Allowed []string
	Blocked []string
}

// Accepts reports whether the given account email passes the policy.
func (p DomainPolicy) Accepts(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(email[at+1:])

	if len(p.Allowed) > 0 {
		allowed := false
		for _, d := range p.Allowed {
			if strings.EqualFold(d, domain) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	for _, d := range p.Blocked {
		if strings.EqualFold(d, domain) {
			return false
		}
	}
	return true
}

// ConnectionService manages external calendar account links.
type ConnectionService struct {
	connections         persistence.ConnectionRepository
	eventStore          persistence.EventRepository
	providers           ProviderCatalog
	syncs               SyncCoordinator
	bus                 *events.Bus
	policy              DomainPolicy
	maxConnections      int
	defaultSyncInterval time.Duration
	idGenerator         func() string
	now                 func() time.Time
	logger              *slog.Logger
}

// ConnectionServiceConfig wires dependencies for the connection service.
type ConnectionServiceConfig struct {
	Connections         persistence.ConnectionRepository
	Events              persistence.EventRepository
	Providers           ProviderCatalog
	Syncs               SyncCoordinator
	Bus                 *events.Bus
	Policy              DomainPolicy
	MaxConnections      int
	DefaultSyncInterval time.Duration
	IDGenerator         func() string
	Now                 func() time.Time
	Logger              *slog.Logger
}

// NewConnectionService wires dependencies for connection operations.
func NewConnectionService(cfg ConnectionServiceConfig) *ConnectionService {
	idGenerator := cfg.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxConnections := cfg.MaxConnections
	if maxConnections <= 0 {
		maxConnections = 5
	}
	defaultInterval := cfg.DefaultSyncInterval
	if defaultInterval <= 0 {
		defaultInterval = 15 * time.Minute
	}
	return &ConnectionService{
		connections:         cfg.Connections,
		eventStore:          cfg.Events,
		providers:           cfg.Providers,
		syncs:               cfg.Syncs,
		bus:                 cfg.Bus,
		policy:              cfg.Policy,
		maxConnections:      maxConnections,
		defaultSyncInterval: defaultInterval,
		idGenerator:         idGenerator,
		now:                 now,
		logger:              defaultLogger(cfg.Logger),
	}
}

// CreateConnection validates the request, stores the link, and enqueues the
// initial full sync when syncing is enabled.
func (s *ConnectionService) CreateConnection(ctx context.Context, input ConnectionInput) (persistence.Connection, error) {
	logger := serviceLogger(ctx, s.logger, "connection", "create", "tenant_id", input.TenantID, "user_id", input.UserID)

	if _, err := s.providers.Get(ctx, input.ProviderID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Connection{}, fmt.Errorf("provider %s: %w", input.ProviderID, ErrNotFound)
		}
		return persistence.Connection{}, err
	}

	if !s.policy.Accepts(input.AccountEmail) {
		return persistence.Connection{}, ErrDomainRejected
	}

	existing, err := s.connections.ListConnections(ctx, persistence.ConnectionFilter{
		TenantID: input.TenantID,
		UserID:   input.UserID,
	})
	if err != nil {
		return persistence.Connection{}, err
	}
	if len(existing) >= s.maxConnections {
		return persistence.Connection{}, ErrLimitExceeded
	}

	now := s.now()
	settings := input.SyncSettings
	if settings.Interval <= 0 {
		settings.Interval = s.defaultSyncInterval
	}
	conn := persistence.Connection{
		ID:           s.idGenerator(),
		TenantID:     input.TenantID,
		UserID:       input.UserID,
		ProviderID:   input.ProviderID,
		AccountEmail: input.AccountEmail,
		Permissions:  input.Permissions,
		SyncSettings: settings,
		Status:       persistence.ConnectionStatusConnected,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.connections.CreateConnection(ctx, conn); err != nil {
		return persistence.Connection{}, mapRepoError(err)
	}

	s.bus.Publish(events.Event{Type: events.ConnectionCreated, ConnectionID: conn.ID, At: now})
	logger.Info("connection created", "connection_id", conn.ID, "provider_id", conn.ProviderID)

	if conn.SyncSettings.Enabled && s.syncs != nil {
		if _, err := s.syncs.Schedule(ctx, conn.ID, persistence.SyncTypeFull); err != nil {
			// The connection itself is fine; the next tick retries.
			logger.Warn("failed to enqueue initial sync", "connection_id", conn.ID, "error", err)
		}
	}

	return conn, nil
}

// GetConnection returns a connection by id.
func (s *ConnectionService) GetConnection(ctx context.Context, id string) (persistence.Connection, error) {
	conn, err := s.connections.GetConnection(ctx, id)
	if err != nil {
		return persistence.Connection{}, mapRepoError(err)
	}
	return conn, nil
}

// ListConnections enumerates connections matching the filter.
func (s *ConnectionService) ListConnections(ctx context.Context, filter persistence.ConnectionFilter) ([]persistence.Connection, error) {
	return s.connections.ListConnections(ctx, filter)
}

// UpdateConnection applies a partial update. UpdatedAt is always refreshed.
func (s *ConnectionService) UpdateConnection(ctx context.Context, id string, update ConnectionUpdate) (persistence.Connection, error) {
	logger := serviceLogger(ctx, s.logger, "connection", "update", "connection_id", id)

	conn, err := s.connections.GetConnection(ctx, id)
	if err != nil {
		return persistence.Connection{}, mapRepoError(err)
	}

	if update.AccountEmail != nil {
		if !s.policy.Accepts(*update.AccountEmail) {
			return persistence.Connection{}, ErrDomainRejected
		}
		conn.AccountEmail = *update.AccountEmail
	}
	if update.Permissions != nil {
		conn.Permissions = *update.Permissions
	}
	if update.SyncEnabled != nil {
		conn.SyncSettings.Enabled = *update.SyncEnabled
	}
	if update.SyncInterval != nil && *update.SyncInterval > 0 {
		conn.SyncSettings.Interval = *update.SyncInterval
	}
	if update.Status != nil {
		conn.Status = *update.Status
	}
	conn.UpdatedAt = s.now()

	if err := s.connections.UpdateConnection(ctx, conn); err != nil {
		return persistence.Connection{}, mapRepoError(err)
	}

	s.bus.Publish(events.Event{Type: events.ConnectionUpdated, ConnectionID: conn.ID, At: conn.UpdatedAt})
	logger.Info("connection updated", "connection_id", conn.ID)
	return conn, nil
}

// DeleteConnection removes the link and everything hanging off it: running
// sync jobs are cancelled and awaited before the connection's events go, so a
// job can never write to a store entry that no longer exists.
func (s *ConnectionService) DeleteConnection(ctx context.Context, id string) error {
	logger := serviceLogger(ctx, s.logger, "connection", "delete", "connection_id", id)

	if _, err := s.connections.GetConnection(ctx, id); err != nil {
		return mapRepoError(err)
	}

	if s.syncs != nil {
		if err := s.syncs.CancelForConnection(ctx, id); err != nil {
			return err
		}
	}

	removed, err := s.eventStore.DeleteEventsForConnection(ctx, id)
	if err != nil {
		return err
	}

	if err := s.connections.DeleteConnection(ctx, id); err != nil {
		return mapRepoError(err)
	}

	s.bus.Publish(events.Event{Type: events.ConnectionDeleted, ConnectionID: id, At: s.now()})
	logger.Info("connection deleted", "connection_id", id, "events_removed", removed)
	return nil
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
