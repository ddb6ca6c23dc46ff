package resilience

import (
	"context"
	"time"
)

// TimeoutSource produces the deadline duration for a given request. A
// fixed timeout is TimeoutSource(func(Req) time.Duration { return d }).
type TimeoutSource[Req any] func(req Req) time.Duration

// FixedTimeout returns a TimeoutSource that ignores the request and
// always returns d.
func FixedTimeout[Req any](d time.Duration) TimeoutSource[Req] {
	return func(Req) time.Duration { return d }
}

// TimeLimiterConfig configures a TimeLimiter.
type TimeLimiterConfig[Req any] struct {
	Name string

	Timeout TimeoutSource[Req]

	// CancelRunningFuture, when true, cancels the context passed to the
	// inner call once the deadline fires; the inner call stops only if it
	// honours that context. When false, the inner call keeps the caller's
	// context and runs to completion in the background. Either way, Call
	// returns as soon as the deadline fires and the inner call's eventual
	// result is discarded.
	CancelRunningFuture bool
}

// TimeLimiter races the inner call against a deadline.
type TimeLimiter[Req, Res any] struct {
	cfg    TimeLimiterConfig[Req]
	inner  Service[Req, Res]
	Events *EventBus
}

// NewTimeLimiter builds a TimeLimiter.
func NewTimeLimiter[Req, Res any](cfg TimeLimiterConfig[Req], inner Service[Req, Res]) *TimeLimiter[Req, Res] {
	if cfg.Timeout == nil {
		cfg.Timeout = FixedTimeout[Req](30 * time.Second)
	}
	return &TimeLimiter[Req, Res]{cfg: cfg, inner: inner, Events: NewEventBus()}
}

func (t *TimeLimiter[Req, Res]) Ready(ctx context.Context) error { return t.inner.Ready(ctx) }

type timeLimiterResult[Res any] struct {
	res Res
	err error
}

// Call races the inner call against the request's deadline.
func (t *TimeLimiter[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res
	deadline := t.cfg.Timeout(req)

	innerCtx := ctx
	var cancel context.CancelFunc
	if t.cfg.CancelRunningFuture {
		innerCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	done := make(chan timeLimiterResult[Res], 1)
	start := time.Now()
	go func() {
		res, err := t.inner.Call(innerCtx, req)
		done <- timeLimiterResult[Res]{res: res, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case r := <-done:
		duration := time.Since(start)
		if r.err != nil {
			t.Events.Emit(TimeLimiterErrorEvent{baseEvent: newBaseEvent(t.cfg.Name), Duration: duration})
			return zero, newLayerError(t.cfg.Name, KindInner, r.err)
		}
		t.Events.Emit(TimeLimiterSuccessEvent{baseEvent: newBaseEvent(t.cfg.Name), Duration: duration})
		return r.res, nil
	case <-timer.C:
		t.Events.Emit(TimeLimiterTimeoutEvent{baseEvent: newBaseEvent(t.cfg.Name), TimeoutDuration: deadline})
		if t.cfg.CancelRunningFuture {
			cancel() // signal the inner call to stop; it must cooperate via ctx
		} else {
			go func() { <-done }() // let it run to completion, draining so the goroutine does not leak
		}
		return zero, newLayerError(t.cfg.Name, KindTimeout, nil)
	}
}

// Time limiter events.

type TimeLimiterSuccessEvent struct {
	baseEvent
	Duration time.Duration
}

type TimeLimiterErrorEvent struct {
	baseEvent
	Duration time.Duration
}

type TimeLimiterTimeoutEvent struct {
	baseEvent
	TimeoutDuration time.Duration
}
