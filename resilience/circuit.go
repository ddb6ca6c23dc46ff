package resilience

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is a circuit breaker's lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// WindowType selects how a Breaker aggregates call outcomes.
type WindowType int

const (
	CountBased WindowType = iota
	TimeBased
)

// CircuitBreakerConfig configures a Breaker. Zero-value optional fields
// are defaulted by New; the fields Validate checks are hard build-time
// failures.
type CircuitBreakerConfig struct {
	Name string

	FailureRateThreshold      float64 // in [0,1]; default 0.5
	SlowCallRateThreshold     float64 // in [0,1]; default 1.0 (disabled in effect if threshold below is 0)
	SlowCallDurationThreshold time.Duration // 0 disables slow-call detection

	WindowType            WindowType
	SlidingWindowSize     int           // count-based; default 100
	SlidingWindowDuration time.Duration // time-based; required when WindowType == TimeBased

	MinimumNumberOfCalls     int // default = SlidingWindowSize for count-based, 1 otherwise
	WaitDurationInOpen       time.Duration // default 60s
	PermittedCallsInHalfOpen int           // default 10

	// IsFailure classifies an error as a failure for circuit purposes.
	// Default: any non-nil error counts as a failure.
	IsFailure func(error) bool

	OnStateChange func(from, to State)
}

func (c *CircuitBreakerConfig) applyDefaults() {
	if c.FailureRateThreshold == 0 {
		c.FailureRateThreshold = 0.5
	}
	if c.SlowCallRateThreshold == 0 {
		c.SlowCallRateThreshold = 1.0
	}
	if c.SlidingWindowSize == 0 {
		c.SlidingWindowSize = 100
	}
	if c.MinimumNumberOfCalls == 0 {
		if c.WindowType == CountBased {
			c.MinimumNumberOfCalls = c.SlidingWindowSize
		} else {
			c.MinimumNumberOfCalls = 1
		}
	}
	if c.WaitDurationInOpen == 0 {
		c.WaitDurationInOpen = 60 * time.Second
	}
	if c.PermittedCallsInHalfOpen == 0 {
		c.PermittedCallsInHalfOpen = 10
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool { return err != nil }
	}
}

// Validate rejects configurations the spec requires to fail at build
// time: a time-based window with no duration, or thresholds outside
// [0,1].
func (c CircuitBreakerConfig) Validate() error {
	if c.WindowType == TimeBased && c.SlidingWindowDuration <= 0 {
		return fmt.Errorf("resilience: circuit breaker %q: sliding_window_duration is required for a time-based window", c.Name)
	}
	if c.FailureRateThreshold < 0 || c.FailureRateThreshold > 1 {
		return fmt.Errorf("resilience: circuit breaker %q: failure_rate_threshold must be in [0,1]", c.Name)
	}
	if c.SlowCallRateThreshold < 0 || c.SlowCallRateThreshold > 1 {
		return fmt.Errorf("resilience: circuit breaker %q: slow_call_rate_threshold must be in [0,1]", c.Name)
	}
	return nil
}

// Breaker is a circuit breaker layer wrapping an inner Service.
type Breaker[Req, Res any] struct {
	cfg   CircuitBreakerConfig
	inner Service[Req, Res]
	Events *EventBus

	mu              sync.Mutex
	win             *window
	state           State
	stateEnteredAt  time.Time
	halfOpenInFlight int
	halfOpenSuccess  int

	stateAtomic atomic.Int32
}

// New builds a Breaker, validating cfg first.
func New[Req, Res any](cfg CircuitBreakerConfig, inner Service[Req, Res]) (*Breaker[Req, Res], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	var win *window
	if cfg.WindowType == TimeBased {
		win = newTimeWindow(cfg.SlidingWindowDuration)
	} else {
		win = newCountWindow()
	}

	b := &Breaker[Req, Res]{
		cfg:            cfg,
		inner:          inner,
		Events:         NewEventBus(),
		win:            win,
		state:          StateClosed,
		stateEnteredAt: time.Now(),
	}
	b.stateAtomic.Store(int32(StateClosed))
	return b, nil
}

// LegacyConfig is the original (count-based, no slow-call detection)
// circuit breaker shape, kept as a thin derivation of the richer Breaker.
type LegacyConfig struct {
	Name                string
	MaxFailures         int // default 5
	ResetTimeout        time.Duration // default 30s
	HalfOpenMaxRequests int // default 1
	IsFailure           func(error) bool
	OnStateChange       func(from, to State)
}

// NewLegacy builds a Breaker configured to behave like a classic
// count-only breaker: a count-based window sized to MaxFailures,
// minimum_number_of_calls = MaxFailures, and slow-call detection
// disabled.
func NewLegacy[Req, Res any](cfg LegacyConfig, inner Service[Req, Res]) (*Breaker[Req, Res], error) {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	rich := CircuitBreakerConfig{
		Name:                     cfg.Name,
		FailureRateThreshold:     1.0, // any failure within the window trips it, matching legacy "MaxFailures consecutive-in-window" behavior
		WindowType:               CountBased,
		SlidingWindowSize:        cfg.MaxFailures,
		MinimumNumberOfCalls:     cfg.MaxFailures,
		WaitDurationInOpen:       cfg.ResetTimeout,
		PermittedCallsInHalfOpen: cfg.HalfOpenMaxRequests,
		IsFailure:                cfg.IsFailure,
		OnStateChange:            cfg.OnStateChange,
	}
	return New[Req, Res](rich, inner)
}

// State returns the circuit's current state, performing the lazy
// Open->HalfOpen transition check if the wait duration has elapsed.
func (b *Breaker[Req, Res]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

func (b *Breaker[Req, Res]) currentStateLocked() State {
	if b.state == StateOpen && time.Since(b.stateEnteredAt) >= b.cfg.WaitDurationInOpen {
		b.setStateLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker[Req, Res]) setStateLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.stateEnteredAt = time.Now()
	b.win.reset()
	b.halfOpenInFlight = 0
	b.halfOpenSuccess = 0
	b.stateAtomic.Store(int32(to))
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
	b.Events.Emit(CircuitStateTransitionEvent{baseEvent: newBaseEvent(b.cfg.Name), From: from, To: to})
}

// ForceOpen forces the circuit into the Open state.
func (b *Breaker[Req, Res]) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setStateLocked(StateOpen)
}

// ForceClosed forces the circuit into the Closed state and clears the
// window.
func (b *Breaker[Req, Res]) ForceClosed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setStateLocked(StateClosed)
	b.win.reset()
}

// Reset is an alias for ForceClosed, matching the spec's manual
// "reset" operation.
func (b *Breaker[Req, Res]) Reset() { b.ForceClosed() }

// tryAcquire decides whether a call may proceed, per §4.6's per-state
// rules, and emits CallPermitted/CallRejected.
func (b *Breaker[Req, Res]) tryAcquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentStateLocked()
	switch state {
	case StateClosed:
		b.Events.Emit(CircuitCallPermittedEvent{baseEvent: newBaseEvent(b.cfg.Name), State: state})
		return nil
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.PermittedCallsInHalfOpen {
			b.Events.Emit(CircuitCallRejectedEvent{baseEvent: newBaseEvent(b.cfg.Name)})
			return newLayerError(b.cfg.Name, KindOpenCircuit, nil)
		}
		b.halfOpenInFlight++
		b.Events.Emit(CircuitCallPermittedEvent{baseEvent: newBaseEvent(b.cfg.Name), State: state})
		return nil
	default: // StateOpen
		b.Events.Emit(CircuitCallRejectedEvent{baseEvent: newBaseEvent(b.cfg.Name)})
		return newLayerError(b.cfg.Name, KindOpenCircuit, nil)
	}
}

// afterCall records the outcome and evaluates transitions.
func (b *Breaker[Req, Res]) afterCall(duration time.Duration, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failure := b.cfg.IsFailure(err)
	slowCall := b.cfg.SlowCallDurationThreshold > 0 && duration >= b.cfg.SlowCallDurationThreshold
	b.win.record(failure, slowCall)

	state := b.state
	if failure {
		b.Events.Emit(CircuitFailureRecordedEvent{baseEvent: newBaseEvent(b.cfg.Name), State: state})
	} else {
		b.Events.Emit(CircuitSuccessRecordedEvent{baseEvent: newBaseEvent(b.cfg.Name), State: state})
	}
	if slowCall {
		b.Events.Emit(CircuitSlowCallDetectedEvent{baseEvent: newBaseEvent(b.cfg.Name), Duration: duration, State: state})
	}

	switch state {
	case StateHalfOpen:
		if failure {
			b.setStateLocked(StateOpen)
			return
		}
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.cfg.PermittedCallsInHalfOpen {
			b.setStateLocked(StateClosed)
		}
	case StateClosed:
		b.evaluateClosedLocked()
	}
}

func (b *Breaker[Req, Res]) evaluateClosedLocked() {
	snap := b.win.snapshot()
	if snap.Total < b.cfg.MinimumNumberOfCalls {
		return
	}
	if b.cfg.WindowType == CountBased && snap.Total < b.cfg.SlidingWindowSize {
		return
	}
	failureTrip := snap.failureRate() >= b.cfg.FailureRateThreshold
	slowTrip := b.cfg.SlowCallDurationThreshold > 0 && snap.slowRate() >= b.cfg.SlowCallRateThreshold
	if failureTrip || slowTrip {
		b.setStateLocked(StateOpen)
	}
}

// Ready reports the inner service's readiness, or ErrOpenCircuit if the
// circuit currently rejects calls.
func (b *Breaker[Req, Res]) Ready(ctx context.Context) error {
	if b.State() == StateOpen {
		return newLayerError(b.cfg.Name, KindOpenCircuit, nil)
	}
	return b.inner.Ready(ctx)
}

// Call runs the inner service under circuit protection.
func (b *Breaker[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res
	if err := b.tryAcquire(); err != nil {
		return zero, err
	}

	start := time.Now()
	res, err := b.inner.Call(ctx, req)
	duration := time.Since(start)

	b.afterCall(duration, err)
	if err != nil {
		return zero, newLayerError(b.cfg.Name, KindInner, err)
	}
	return res, nil
}

// Circuit breaker events.

type CircuitStateTransitionEvent struct {
	baseEvent
	From, To State
}

type CircuitCallPermittedEvent struct {
	baseEvent
	State State
}

type CircuitCallRejectedEvent struct {
	baseEvent
}

type CircuitSuccessRecordedEvent struct {
	baseEvent
	State State
}

type CircuitFailureRecordedEvent struct {
	baseEvent
	State State
}

type CircuitSlowCallDetectedEvent struct {
	baseEvent
	Duration time.Duration
	State    State
}
