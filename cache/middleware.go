package cache

import (
	"context"
	"strings"
	"time"

	"github.com/jonwraymond/resiliency/resilience"
)

// SkipRule determines whether to skip caching for a given request, keyed
// by namespace and an arbitrary set of tags (e.g. "write", "mutation").
// Returns true if caching should be skipped.
type SkipRule func(namespace string, tags []string) bool

// UnsafeTags are tags that indicate a request has side effects and should
// not be cached.
var UnsafeTags = []string{"write", "danger", "unsafe", "mutation", "delete"}

// DefaultSkipRule skips caching for requests carrying unsafe tags.
// Tag matching is case-insensitive.
func DefaultSkipRule(_ string, tags []string) bool {
	for _, tag := range tags {
		tagLower := strings.ToLower(tag)
		for _, unsafe := range UnsafeTags {
			if tagLower == unsafe {
				return true
			}
		}
	}
	return false
}

// LayerConfig configures a Layer.
type LayerConfig[Req any] struct {
	Name string

	Policy Policy
	Keyer  Keyer

	// Namespace and Tags extract the caching namespace and tags from a
	// request; Tags feeds SkipRule.
	Namespace func(req Req) string
	Tags      func(req Req) []string

	// SkipRule decides whether a request should bypass caching entirely.
	// Default: DefaultSkipRule.
	SkipRule SkipRule

	// OverrideTTL extracts a per-request TTL override (e.g. from a
	// request header or annotation). Zero or nil means no override; the
	// result is passed through Policy.EffectiveTTL, so a caller-supplied
	// override can still be clamped by Policy.MaxTTL.
	OverrideTTL func(req Req) time.Duration
}

func (c *LayerConfig[Req]) applyDefaults() {
	if c.Keyer == nil {
		c.Keyer = NewDefaultKeyer()
	}
	if c.SkipRule == nil {
		c.SkipRule = DefaultSkipRule
	}
	if c.Namespace == nil {
		c.Namespace = func(Req) string { return c.Name }
	}
	if c.Tags == nil {
		c.Tags = func(Req) []string { return nil }
	}
	if c.OverrideTTL == nil {
		c.OverrideTTL = func(Req) time.Duration { return 0 }
	}
}

// Layer wraps a resilience.Service with transparent response caching over
// the generic Service[Req, Res] contract every resilience layer shares.
// Responses are cached only on success; an inner failure is never cached.
type Layer[Req, Res any] struct {
	cfg   LayerConfig[Req]
	inner resilience.Service[Req, Res]
	store *Store[string, Res]
}

// NewLayer builds a caching Layer backed by a Store bounded to maxSize
// entries and evicted per eviction; cfg.Policy.DefaultTTL sets the store TTL.
func NewLayer[Req, Res any](cfg LayerConfig[Req], maxSize int, eviction EvictionPolicy, inner resilience.Service[Req, Res]) (*Layer[Req, Res], error) {
	cfg.applyDefaults()
	store, err := NewStore[string, Res](StoreConfig{
		Name:           cfg.Name,
		MaxSize:        maxSize,
		TTL:            cfg.Policy.DefaultTTL,
		EvictionPolicy: eviction,
	})
	if err != nil {
		return nil, err
	}
	return &Layer[Req, Res]{cfg: cfg, inner: inner, store: store}, nil
}

func (l *Layer[Req, Res]) Ready(ctx context.Context) error { return l.inner.Ready(ctx) }

// Events exposes the underlying Store's hit/miss/eviction EventBus.
func (l *Layer[Req, Res]) Events() *resilience.EventBus { return l.store.Events }

// Call checks the cache before invoking the inner service, and caches a
// successful response for future calls sharing the same key.
func (l *Layer[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	namespace := l.cfg.Namespace(req)
	tags := l.cfg.Tags(req)

	if !l.cfg.Policy.AllowUnsafe && l.cfg.SkipRule(namespace, tags) {
		return l.inner.Call(ctx, req)
	}
	if !l.cfg.Policy.ShouldCache() {
		return l.inner.Call(ctx, req)
	}

	key, err := l.cfg.Keyer.Key(namespace, req)
	if err != nil {
		return l.inner.Call(ctx, req)
	}

	if cached, ok := l.store.Get(key); ok {
		return cached, nil
	}

	res, err := l.inner.Call(ctx, req)
	if err != nil {
		return res, err
	}

	ttl := l.cfg.Policy.EffectiveTTL(l.cfg.OverrideTTL(req))
	l.store.InsertTTL(key, res, ttl)
	return res, nil
}
