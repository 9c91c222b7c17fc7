// Package registry holds the in-memory map from account ID to live provider
// instance. It carries no persistent state; bootstrap repopulates it on
// startup.
package registry

import (
	"sync"

	"dnsbridge/internal/core/ports"
	"dnsbridge/internal/infrastructure/metrics"
)

// Registry implements ports.ProviderRegistry with a reader-writer lock.
// Readers observe either the pre-registration or post-registration state,
// never an intermediate.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ports.Provider
}

func New() *Registry {
	return &Registry{providers: make(map[string]ports.Provider)}
}

// Register installs a provider for an account, replacing any existing entry.
func (r *Registry) Register(accountID string, p ports.Provider) {
	r.mu.Lock()
	r.providers[accountID] = p
	metrics.RegistryAccounts.Set(float64(len(r.providers)))
	r.mu.Unlock()
}

// Unregister removes the provider for an account, if any.
func (r *Registry) Unregister(accountID string) {
	r.mu.Lock()
	delete(r.providers, accountID)
	metrics.RegistryAccounts.Set(float64(len(r.providers)))
	r.mu.Unlock()
}

// Get returns the live provider for an account.
func (r *Registry) Get(accountID string) (ports.Provider, bool) {
	r.mu.RLock()
	p, ok := r.providers[accountID]
	r.mu.RUnlock()
	return p, ok
}

// ListAccountIDs snapshots the registered account IDs.
func (r *Registry) ListAccountIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}
