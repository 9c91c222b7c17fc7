// Package cache provides ports.DomainCache implementations. The cache is a
// latency optimization for zone listings only; entries are never
// authoritative and misses always fall through to the provider.
package cache

import (
	"context"
	"sync"
	"time"

	"dnsbridge/internal/infrastructure/metrics"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a thread-safe in-memory TTL cache.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

// NewMemoryCache starts the cache with a background expiration sweep.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{items: make(map[string]memoryEntry)}
	go c.cleanupLoop()
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found || time.Now().After(item.expiresAt) {
		metrics.DomainCacheOperations.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	metrics.DomainCacheOperations.WithLabelValues("memory", "hit").Inc()
	return item.data, true
}

func (c *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Flush removes every entry.
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	c.items = make(map[string]memoryEntry)
	c.mu.Unlock()
}

func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}
