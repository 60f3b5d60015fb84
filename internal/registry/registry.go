package registry

import (
	"sync"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

// Registry is the in-memory view of configured providers. Definitions are
// replaced wholesale on reload; reads never see a partial update.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]*domain.Provider
	lastReload time.Time
}

func New() *Registry {
	return &Registry{
		providers: make(map[string]*domain.Provider),
	}
}

// Replace swaps the full provider set.
func (r *Registry) Replace(providers []*domain.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = make(map[string]*domain.Provider, len(providers))
	for _, p := range providers {
		r.providers[p.ID] = p
	}
	r.lastReload = time.Now()
}

// Get retrieves a provider by ID.
func (r *Registry) Get(id string) (*domain.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	return p, ok
}

// All returns every provider, priority order.
func (r *Registry) All() []*domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]*domain.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	domain.SortByPriority(providers)
	return providers
}

// Eligible returns enabled providers that intersect the requested service
// types, optionally restricted to an explicit ID subset, priority order.
func (r *Registry) Eligible(serviceTypes, providerIDs []string) []*domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subset := make(map[string]bool, len(providerIDs))
	for _, id := range providerIDs {
		subset[id] = true
	}

	eligible := make([]*domain.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if !p.Enabled {
			continue
		}
		if len(subset) > 0 && !subset[p.ID] {
			continue
		}
		if !p.SupportsAny(serviceTypes) {
			continue
		}
		eligible = append(eligible, p)
	}
	domain.SortByPriority(eligible)
	return eligible
}

// Lookup resolves a provider map keyed by ID for scoring.
func (r *Registry) Lookup() map[string]*domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := make(map[string]*domain.Provider, len(r.providers))
	for id, p := range r.providers {
		m[id] = p
	}
	return m
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// LastReload returns when the registry content last changed.
func (r *Registry) LastReload() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastReload
}
