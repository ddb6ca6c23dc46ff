package resilience

import (
	"context"
	"fmt"
	"time"
)

// HedgeDelay computes the delay before spawning the i'th hedged attempt
// (i starting at 1; attempt 0, the primary, is spawned immediately).
// ZeroHedgeDelay spawns every attempt immediately (parallel mode).
type HedgeDelay func(attempt int) time.Duration

// ConstantHedgeDelay returns a HedgeDelay that always waits d.
func ConstantHedgeDelay(d time.Duration) HedgeDelay {
	return func(int) time.Duration { return d }
}

// ZeroHedgeDelay is parallel mode: every attempt spawns immediately.
func ZeroHedgeDelay() HedgeDelay { return func(int) time.Duration { return 0 } }

// HedgeConfig configures a Hedge executor.
type HedgeConfig struct {
	Name string

	Delay             HedgeDelay
	MaxHedgedAttempts int // total attempts including the primary; must be >= 1
}

// Validate rejects a non-positive MaxHedgedAttempts.
func (c HedgeConfig) Validate() error {
	if c.MaxHedgedAttempts <= 0 {
		return fmt.Errorf("resilience: hedge %q: max_hedged_attempts must be positive", c.Name)
	}
	return nil
}

func (c *HedgeConfig) applyDefaults() {
	if c.Delay == nil {
		c.Delay = ZeroHedgeDelay()
	}
}

// Hedge races up to MaxHedgedAttempts-1 additional attempts against the
// primary, returning the first success. Outstanding attempts are
// abandoned (their goroutines are left to run to completion; this
// package only stops polling them, matching the spec's cooperative
// cancellation contract) once a winner is found.
type Hedge[Req, Res any] struct {
	cfg    HedgeConfig
	inner  Service[Req, Res]
	Events *EventBus
}

// NewHedge builds a Hedge, validating cfg first.
func NewHedge[Req, Res any](cfg HedgeConfig, inner Service[Req, Res]) (*Hedge[Req, Res], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Hedge[Req, Res]{cfg: cfg, inner: inner, Events: NewEventBus()}, nil
}

func (h *Hedge[Req, Res]) Ready(ctx context.Context) error { return h.inner.Ready(ctx) }

type hedgeResult[Res any] struct {
	attempt int
	res     Res
	err     error
}

// Call spawns the primary attempt immediately and, while no attempt has
// succeeded, spawns additional attempts per cfg.Delay until
// MaxHedgedAttempts are in flight or a winner emerges.
func (h *Hedge[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res

	results := make(chan hedgeResult[Res], h.cfg.MaxHedgedAttempts)
	spawn := func(attempt int) {
		go func() {
			res, err := h.inner.Call(ctx, req)
			results <- hedgeResult[Res]{attempt: attempt, res: res, err: err}
		}()
	}

	h.Events.Emit(HedgePrimaryStartedEvent{baseEvent: newBaseEvent(h.cfg.Name)})
	spawn(0)

	start := time.Now()
	nextAttempt := 1
	var timer *time.Timer
	var timerC <-chan time.Time
	armTimer := func() {
		if nextAttempt >= h.cfg.MaxHedgedAttempts {
			timerC = nil
			return
		}
		d := h.cfg.Delay(nextAttempt)
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Reset(d)
		}
		timerC = timer.C
	}
	armTimer()
	if timer != nil {
		defer timer.Stop()
	}

	reported := 0
	var lastErr error
	var primaryErr error
	for reported < h.cfg.MaxHedgedAttempts {
		select {
		case <-timerC:
			h.Events.Emit(HedgeStartedEvent{baseEvent: newBaseEvent(h.cfg.Name), Attempt: nextAttempt, Delay: h.cfg.Delay(nextAttempt)})
			spawn(nextAttempt)
			nextAttempt++
			armTimer()

		case r := <-results:
			reported++
			if r.err == nil {
				duration := time.Since(start)
				if r.attempt == 0 {
					h.Events.Emit(HedgePrimarySucceededEvent{baseEvent: newBaseEvent(h.cfg.Name), Duration: duration, HedgesCancelled: nextAttempt - 1})
				} else {
					h.Events.Emit(HedgeSucceededEvent{baseEvent: newBaseEvent(h.cfg.Name), Attempt: r.attempt, Duration: duration, PrimaryCancelled: true})
				}
				return r.res, nil
			}
			if r.attempt == 0 {
				primaryErr = r.err
			}
			lastErr = r.err
		}
	}

	preferred := lastErr
	if primaryErr != nil {
		preferred = primaryErr
	}
	h.Events.Emit(HedgeAllFailedEvent{baseEvent: newBaseEvent(h.cfg.Name), Attempts: reported})
	return zero, newLayerError(h.cfg.Name, KindAllAttemptsFailed, preferred)
}

// Hedge executor events.

type HedgePrimaryStartedEvent struct{ baseEvent }

type HedgeStartedEvent struct {
	baseEvent
	Attempt int
	Delay   time.Duration
}

type HedgePrimarySucceededEvent struct {
	baseEvent
	Duration        time.Duration
	HedgesCancelled int
}

type HedgeSucceededEvent struct {
	baseEvent
	Attempt          int
	Duration         time.Duration
	PrimaryCancelled bool
}

type HedgeAllFailedEvent struct {
	baseEvent
	Attempts int
}
