package collect

import (
	"context"
	"sync"
	"time"
)

// Cache stores raw collection payloads keyed by request hash.
type Cache interface {
	// Get returns the cached payload, or nil when absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// CacheStore is the store subset backing the persistent cache.
type CacheStore interface {
	GetCachedCollection(ctx context.Context, key string) ([]byte, error)
	SetCachedCollection(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// StoreCache adapts the persistence layer to the Cache interface.
type StoreCache struct {
	store CacheStore
}

// NewStoreCache wraps a store-backed collection cache.
func NewStoreCache(store CacheStore) *StoreCache {
	return &StoreCache{store: store}
}

func (c *StoreCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.store.GetCachedCollection(ctx, key)
}

func (c *StoreCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.store.SetCachedCollection(ctx, key, data, ttl)
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a process-local Cache for tests and cache-less deployments.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	return e.data, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}
