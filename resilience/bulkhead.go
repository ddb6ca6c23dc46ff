package resilience

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	Name string

	MaxConcurrentCalls int64
	MaxWaitDuration    time.Duration // 0 means do not wait: reject immediately if full
}

// Validate rejects a non-positive MaxConcurrentCalls.
func (c BulkheadConfig) Validate() error {
	if c.MaxConcurrentCalls <= 0 {
		return fmt.Errorf("resilience: bulkhead %q: max_concurrent_calls must be positive", c.Name)
	}
	return nil
}

// Bulkhead bounds the number of concurrent in-flight calls to the inner
// service using a weighted semaphore.
type Bulkhead[Req, Res any] struct {
	cfg    BulkheadConfig
	inner  Service[Req, Res]
	Events *EventBus
	sem    *semaphore.Weighted
}

// NewBulkhead builds a Bulkhead, validating cfg first.
func NewBulkhead[Req, Res any](cfg BulkheadConfig, inner Service[Req, Res]) (*Bulkhead[Req, Res], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bulkhead[Req, Res]{
		cfg:    cfg,
		inner:  inner,
		Events: NewEventBus(),
		sem:    semaphore.NewWeighted(cfg.MaxConcurrentCalls),
	}, nil
}

func (b *Bulkhead[Req, Res]) Ready(ctx context.Context) error { return b.inner.Ready(ctx) }

// Call acquires a permit (waiting up to cfg.MaxWaitDuration), runs the
// inner service, and releases the permit regardless of outcome.
func (b *Bulkhead[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res

	if !b.sem.TryAcquire(1) {
		if b.cfg.MaxWaitDuration <= 0 {
			return zero, newLayerError(b.cfg.Name, KindBulkheadFull, nil)
		}
		waitCtx, cancel := context.WithTimeout(ctx, b.cfg.MaxWaitDuration)
		defer cancel()
		if err := b.sem.Acquire(waitCtx, 1); err != nil {
			return zero, newLayerError(b.cfg.Name, KindBulkheadFull, nil)
		}
	}
	defer b.sem.Release(1)

	res, err := b.inner.Call(ctx, req)
	if err != nil {
		return zero, newLayerError(b.cfg.Name, KindInner, err)
	}
	return res, nil
}
