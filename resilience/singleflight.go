package resilience

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// KeyFunc extracts the coalescing key from a request.
type KeyFunc[Req any] func(req Req) string

// SingleflightConfig configures a Singleflight coalescer.
type SingleflightConfig[Req any] struct {
	Name string
	Key  KeyFunc[Req]
}

// Singleflight deduplicates concurrent identical calls by key: for any
// key, at most one inner execution is in flight at a time, and every
// concurrent caller for that key receives the same result, using
// golang.org/x/sync/singleflight.Group to coalesce the concurrent calls.
type Singleflight[Req, Res any] struct {
	cfg   SingleflightConfig[Req]
	inner Service[Req, Res]
	group singleflight.Group
}

// NewSingleflight builds a Singleflight layer.
func NewSingleflight[Req, Res any](cfg SingleflightConfig[Req], inner Service[Req, Res]) *Singleflight[Req, Res] {
	if cfg.Key == nil {
		panic("resilience: singleflight " + cfg.Name + ": Key is required")
	}
	return &Singleflight[Req, Res]{cfg: cfg, inner: inner}
}

func (s *Singleflight[Req, Res]) Ready(ctx context.Context) error { return s.inner.Ready(ctx) }

// Call coalesces concurrent calls that share the same key into a single
// inner execution; every caller (leader and waiters alike) receives the
// same (Res, error) pair.
func (s *Singleflight[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	key := s.cfg.Key(req)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.inner.Call(ctx, req)
	})
	if err != nil {
		var zero Res
		return zero, newLayerError(s.cfg.Name, KindInner, err)
	}
	return v.(Res), nil
}
