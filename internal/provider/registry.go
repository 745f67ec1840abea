// Package provider holds the static catalogue of known calendar providers.
// Entries are registered once at startup; only their status may change at
// runtime.
package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/calendar-bridge/internal/events"
	"github.com/example/calendar-bridge/internal/persistence"
)

// Registry is the catalogue of known providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]persistence.Provider
	bus       *events.Bus
	now       func() time.Time
}

// NewRegistry returns a registry seeded with the given providers. A nil bus
// disables status notifications.
func NewRegistry(seed []persistence.Provider, bus *events.Bus, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	providers := make(map[string]persistence.Provider, len(seed))
	for _, p := range seed {
		if p.Status == "" {
			p.Status = persistence.ProviderStatusActive
		}
		providers[p.ID] = p
	}
	return &Registry{providers: providers, bus: bus, now: now}
}

// Get returns the provider registered under id.
func (r *Registry) Get(ctx context.Context, id string) (persistence.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return persistence.Provider{}, persistence.ErrNotFound
	}
	return p, nil
}

// List returns every registered provider ordered by id.
func (r *Registry) List(ctx context.Context) []persistence.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]persistence.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetStatus updates the mutable status fields of a provider and emits a
// providerStatusChanged notification when the status actually changes.
func (r *Registry) SetStatus(ctx context.Context, id string, status persistence.ProviderStatus, detail string) error {
	r.mu.Lock()
	p, ok := r.providers[id]
	if !ok {
		r.mu.Unlock()
		return persistence.ErrNotFound
	}
	changed := p.Status != status || p.StatusDetail != detail
	p.Status = status
	p.StatusDetail = detail
	r.providers[id] = p
	r.mu.Unlock()

	if changed {
		r.bus.Publish(events.Event{
			Type:       events.ProviderStatusChanged,
			ProviderID: id,
			Message:    detail,
			At:         r.now(),
		})
	}
	return nil
}

// StatusByProvider returns the current status of every provider keyed by id.
func (r *Registry) StatusByProvider(ctx context.Context) map[string]persistence.ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]persistence.ProviderStatus, len(r.providers))
	for id, p := range r.providers {
		out[id] = p.Status
	}
	return out
}
