package cache

import (
	"context"
	"time"
)

// MemoryCache adapts a bounded [Store] of raw bytes to the [BytesCache]
// interface, for callers (e.g. an HTTP response cache) that want the
// out-of-process-friendly byte-slice contract rather than Store's generic
// API directly.
type MemoryCache struct {
	store *Store[string, []byte]
	ttl   time.Duration
}

// NewMemoryCache creates an in-memory BytesCache bounded to maxSize
// entries, evicted per policy, with entries expiring ttl after insertion
// (ttl<=0 means entries never expire on their own).
func NewMemoryCache(maxSize int, policy EvictionPolicy, ttl time.Duration) (*MemoryCache, error) {
	store, err := NewStore[string, []byte](StoreConfig{
		Name:           "memory",
		MaxSize:        maxSize,
		TTL:            ttl,
		EvictionPolicy: policy,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryCache{store: store, ttl: ttl}, nil
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.store.Get(key)
}

// Set stores a value that expires ttl after insertion; ttl<=0 skips
// caching entirely.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.store.InsertTTL(key, value, ttl)
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// Ensure MemoryCache implements BytesCache.
var _ BytesCache = (*MemoryCache)(nil)
