package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiterWindowType selects the permit algebra a RateLimiter uses.
type RateLimiterWindowType int

const (
	Fixed RateLimiterWindowType = iota
	SlidingLog
	SlidingCounter
)

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	Name string

	LimitForPeriod int           // permits granted per RefreshPeriod
	RefreshPeriod  time.Duration // default 1s
	TimeoutDuration time.Duration // max time a caller will wait for a permit; 0 never sleeps
	WindowType     RateLimiterWindowType
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.RefreshPeriod <= 0 {
		c.RefreshPeriod = time.Second
	}
}

// Validate rejects a non-positive LimitForPeriod.
func (c RateLimiterConfig) Validate() error {
	if c.LimitForPeriod <= 0 {
		return fmt.Errorf("resilience: rate limiter %q: limit_for_period must be positive", c.Name)
	}
	return nil
}

// RateLimiter wraps an inner Service behind an admission permit algebra.
type RateLimiter[Req, Res any] struct {
	cfg    RateLimiterConfig
	inner  Service[Req, Res]
	Events *EventBus

	mu sync.Mutex

	// Fixed
	epochStart      time.Time
	permitsRemaining int

	// SlidingLog: ascending timestamps (UnixNano) of granted permits
	// within the last RefreshPeriod, pruned from the front by a linear
	// scan on every acquire before the limit is checked.
	log []int64

	// SlidingCounter
	prevCount   int
	currCount   int
	bucketStart time.Time
}

// NewRateLimiter builds a RateLimiter, validating cfg first.
func NewRateLimiter[Req, Res any](cfg RateLimiterConfig, inner Service[Req, Res]) (*RateLimiter[Req, Res], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	now := time.Now()
	return &RateLimiter[Req, Res]{
		cfg:              cfg,
		inner:            inner,
		Events:           NewEventBus(),
		epochStart:       now,
		permitsRemaining: cfg.LimitForPeriod,
		bucketStart:      now,
	}, nil
}

func (r *RateLimiter[Req, Res]) Ready(ctx context.Context) error { return r.inner.Ready(ctx) }

// Call acquires a permit (possibly waiting up to cfg.TimeoutDuration) and
// then runs the inner service.
func (r *RateLimiter[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res
	wait, ok := r.acquire()
	if !ok {
		r.Events.Emit(RateLimiterPermitRejectedEvent{baseEvent: newBaseEvent(r.cfg.Name), TimeoutDuration: r.cfg.TimeoutDuration})
		return zero, newLayerError(r.cfg.Name, KindRateLimited, nil)
	}
	if wait > 0 {
		select {
		case <-ctx.Done():
			return zero, newLayerError(r.cfg.Name, KindInner, ctx.Err())
		case <-time.After(wait):
		}
	}
	r.Events.Emit(RateLimiterPermitAcquiredEvent{baseEvent: newBaseEvent(r.cfg.Name), WaitDuration: wait})

	res, err := r.inner.Call(ctx, req)
	if err != nil {
		return zero, newLayerError(r.cfg.Name, KindInner, err)
	}
	return res, nil
}

// acquire returns (wait duration, granted). Each WindowType computes its
// own wait/grant decision under the lock.
func (r *RateLimiter[Req, Res]) acquire() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.cfg.WindowType {
	case SlidingLog:
		return r.acquireSlidingLogLocked()
	case SlidingCounter:
		return r.acquireSlidingCounterLocked()
	default:
		return r.acquireFixedLocked()
	}
}

func (r *RateLimiter[Req, Res]) acquireFixedLocked() (time.Duration, bool) {
	now := time.Now()
	nextBoundary := r.epochStart.Add(r.cfg.RefreshPeriod)
	if !now.Before(nextBoundary) {
		r.epochStart = now
		r.permitsRemaining = r.cfg.LimitForPeriod
		nextBoundary = r.epochStart.Add(r.cfg.RefreshPeriod)
	}
	if r.permitsRemaining > 0 {
		r.permitsRemaining--
		return 0, true
	}
	wait := nextBoundary.Sub(now)
	if wait <= r.cfg.TimeoutDuration {
		r.epochStart = nextBoundary
		r.permitsRemaining = r.cfg.LimitForPeriod - 1
		return wait, true
	}
	return 0, false
}

func (r *RateLimiter[Req, Res]) acquireSlidingLogLocked() (time.Duration, bool) {
	now := time.Now()
	cutoff := now.Add(-r.cfg.RefreshPeriod).UnixNano()
	i := 0
	for i < len(r.log) && r.log[i] < cutoff {
		i++
	}
	if i > 0 {
		r.log = r.log[i:]
	}
	if len(r.log) < r.cfg.LimitForPeriod {
		r.log = append(r.log, now.UnixNano())
		return 0, true
	}
	wait := time.Unix(0, r.log[0]).Add(r.cfg.RefreshPeriod).Sub(now)
	if wait <= r.cfg.TimeoutDuration {
		r.log = r.log[1:]
		r.log = append(r.log, now.Add(wait).UnixNano())
		return wait, true
	}
	return 0, false
}

// acquireSlidingCounterLocked implements the effective-count formula for
// a sliding window approximated by two fixed counters. The pre-increment
// estimate is used to decide admission: effective is computed from
// prevCount/currCount before currCount is incremented.
func (r *RateLimiter[Req, Res]) acquireSlidingCounterLocked() (time.Duration, bool) {
	now := time.Now()
	if !now.Before(r.bucketStart.Add(r.cfg.RefreshPeriod)) {
		r.prevCount = r.currCount
		r.currCount = 0
		r.bucketStart = r.bucketStart.Add(r.cfg.RefreshPeriod)
		if now.Sub(r.bucketStart) > r.cfg.RefreshPeriod {
			r.bucketStart = now
			r.prevCount = 0
		}
	}
	elapsedFraction := now.Sub(r.bucketStart).Seconds() / r.cfg.RefreshPeriod.Seconds()
	if elapsedFraction > 1 {
		elapsedFraction = 1
	}
	effective := float64(r.prevCount)*(1-elapsedFraction) + float64(r.currCount)
	if effective < float64(r.cfg.LimitForPeriod) {
		r.currCount++
		return 0, true
	}
	// Would exceed the limit now; the wait runs to the end of the current
	// bucket. That instant is an estimate: effective may fall below the
	// limit earlier as prevCount's weight decays, or stay at or above it
	// after the rollover.
	wait := r.bucketStart.Add(r.cfg.RefreshPeriod).Sub(now)
	if wait <= r.cfg.TimeoutDuration {
		return wait, true
	}
	return 0, false
}

// Rate limiter events.

type RateLimiterPermitAcquiredEvent struct {
	baseEvent
	WaitDuration time.Duration
}

type RateLimiterPermitRejectedEvent struct {
	baseEvent
	TimeoutDuration time.Duration
}
