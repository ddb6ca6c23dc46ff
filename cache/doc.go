// Package cache provides a bounded, generic in-memory cache and a
// resilience-layer adapter that caches successful responses of any
// resilience.Service.
//
// # Core Components
//
//   - [Store]: generic, bounded key/value cache with TTL evaluated lazily
//     on read and a pluggable [EvictionPolicy] (LRU, LFU, FIFO)
//   - [BytesCache]: byte-slice oriented cache interface (Get/Set/Delete),
//     suited to out-of-process backends
//   - [MemoryCache]: BytesCache backed by a Store[string, []byte]
//   - [Keyer]: deterministic cache key generation from a namespace and
//     arbitrary input
//   - [DefaultKeyer]: SHA-256 based keyer with canonical JSON serialization
//   - [Policy]: TTL defaults, maximums, and unsafe-tag handling
//   - [Layer]: wraps a resilience.Service with transparent response
//     caching
//
// # Quick Start
//
//	store, err := cache.NewStore[string, int](cache.StoreConfig{
//	    Name: "counters", MaxSize: 1000, TTL: 5 * time.Minute, EvictionPolicy: cache.LRU,
//	})
//	store.Insert("a", 1)
//	v, ok := store.Get("a")
//
// Wrapping a resilience.Service with caching:
//
//	cfg := cache.LayerConfig[MyRequest]{
//	    Name:      "search",
//	    Policy:    cache.DefaultPolicy(),
//	    Namespace: func(r MyRequest) string { return r.Namespace },
//	    Tags:      func(r MyRequest) []string { return r.Tags },
//	}
//	layer, err := cache.NewLayer[MyRequest, MyResponse](cfg, 10000, cache.LRU, inner)
//	res, err := layer.Call(ctx, req)
//
// # Key Generation
//
// The [DefaultKeyer] generates deterministic cache keys using:
//
//	cache:<namespace>:<hash>
//
// Where hash is the first 16 hex characters of SHA-256(canonical JSON(input)).
// Canonical JSON ensures map keys are sorted for deterministic serialization.
//
// # Eviction
//
// A Store at capacity evicts one entry per Insert of a new key, chosen by
// its [EvictionPolicy]:
//
//   - LRU: oldest LastAccessed
//   - LFU: smallest AccessCount, ties broken by oldest LastAccessed
//   - FIFO: smallest insertion order, ignoring access history
//
// # TTL Policies
//
// The [Policy] type controls a Layer's caching behavior:
//
//   - DefaultTTL: the Store's configured TTL; zero disables caching
//   - MaxTTL: upper bound for EffectiveTTL callers that pass an override
//   - AllowUnsafe: whether to cache requests carrying unsafe tags
//
// Preset policies:
//
//   - [DefaultPolicy]: 5 minute default, 1 hour max, unsafe=false
//   - [NoCachePolicy]: disabled (0 TTL)
//
// # Unsafe Tag Handling
//
// Requests carrying certain tags should not be cached because they have
// side effects:
//
//   - write, danger, unsafe, mutation, delete
//
// The [DefaultSkipRule] checks for these tags (case-insensitive) and skips
// caching. Override via [LayerConfig.SkipRule].
//
// # Events
//
// A Store emits [CacheHitEvent], [CacheMissEvent], and [CacheEvictionEvent]
// on its Events bus (a *resilience.EventBus), which a Layer exposes through
// Layer.Events for metrics or logging subscribers.
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [Store] / [MemoryCache]: a single mutex guards all operations
//   - [DefaultKeyer]: stateless, concurrent-safe
//   - [Layer]: delegates to a thread-safe Store
//   - [Policy]: immutable struct, concurrent-safe
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrNilCache]: cache is nil
//   - [ErrInvalidKey]: key is empty, whitespace-only, or contains newlines
//   - [ErrKeyTooLong]: key exceeds MaxKeyLength (512 characters)
//
// Note: BytesCache.Get never returns errors - it returns (nil, false) on
// miss. Key validation is performed via [ValidateKey].
package cache
