package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/resiliency/resilience"
)

// CheckFunc probes a single resource and reports its current health,
// shared across every resource a Supervisor tracks.
type CheckFunc[R any] func(ctx context.Context, resource R) Result

// CheckerAsCheckFunc adapts a single-shot Checker (which has no notion of
// "which resource") into a CheckFunc that ignores the resource value and
// always delegates to c.Check. Use it to put a standalone Checker such as
// MemoryChecker under a Supervisor's hysteresis and background probing,
// e.g. NewSupervisor(cfg, CheckerAsCheckFunc[string](memChecker), selector).
func CheckerAsCheckFunc[R any](c Checker) CheckFunc[R] {
	return func(ctx context.Context, _ R) Result {
		return c.Check(ctx)
	}
}

// Candidate is a resource eligible for selection, paired with its name and
// current hysteresis-applied status.
type Candidate[R any] struct {
	Name     string
	Resource R
	Status   Status
}

// Selector picks one resource from a filtered candidate set. Returns
// (zero, false) when candidates is empty.
type Selector[R any] func(candidates []Candidate[R]) (R, bool)

// FirstAvailableSelector returns the first candidate in registration order.
func FirstAvailableSelector[R any](candidates []Candidate[R]) (R, bool) {
	var zero R
	if len(candidates) == 0 {
		return zero, false
	}
	return candidates[0].Resource, true
}

// RoundRobinSelector cycles through candidates using a shared atomic
// counter, so repeated calls distribute across the eligible set even as
// membership changes between calls.
func RoundRobinSelector[R any](counter *atomic.Uint64) Selector[R] {
	return func(candidates []Candidate[R]) (R, bool) {
		var zero R
		if len(candidates) == 0 {
			return zero, false
		}
		idx := counter.Add(1) % uint64(len(candidates))
		return candidates[idx].Resource, true
	}
}

// PreferHealthySelector returns the first Healthy candidate, falling back
// to the first candidate of any other status present in the set (e.g.
// Degraded, when GetUsable's filter let it through).
func PreferHealthySelector[R any](candidates []Candidate[R]) (R, bool) {
	var zero R
	for _, c := range candidates {
		if c.Status == StatusHealthy {
			return c.Resource, true
		}
	}
	if len(candidates) == 0 {
		return zero, false
	}
	return candidates[0].Resource, true
}

// SupervisorConfig configures a Supervisor's background probing loop and
// hysteresis thresholds.
type SupervisorConfig struct {
	// Interval between ticks, once started. Default: 30s.
	Interval time.Duration

	// InitialDelay before the first tick. Default: 0 (immediate).
	InitialDelay time.Duration

	// CheckTimeout bounds each individual resource probe. Default: 10s.
	CheckTimeout time.Duration

	// SuccessThreshold is the number of consecutive Healthy results
	// required before a resource's effective status flips to Healthy.
	// Default: 1.
	SuccessThreshold int

	// FailureThreshold is the number of consecutive Unhealthy results
	// required before a resource's effective status flips to Unhealthy.
	// Default: 1.
	FailureThreshold int
}

func (c *SupervisorConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 10 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 1
	}
}

func (c SupervisorConfig) validate() error {
	if c.Interval < 0 || c.InitialDelay < 0 || c.CheckTimeout < 0 {
		return &resilience.LayerError{Kind: resilience.KindInner, Layer: "health",
			Inner: ErrInvalidConfig}
	}
	return nil
}

type trackedResource[R any] struct {
	name     string
	resource R

	mu                 sync.Mutex
	status             Status
	consecutiveSuccess int
	consecutiveFailure int
	lastResult         Result
}

// Supervisor periodically probes a named set of resources of type R with a
// shared CheckFunc, applies consecutive-success/failure hysteresis before
// flipping a resource's effective status, and exposes selection strategies
// over the currently Healthy (or Healthy-or-Degraded) subset.
//
// Unlike a fixed set of named checkers probed synchronously on demand, a
// Supervisor tracks arbitrary resource handles and probes them on its own
// background loop.
type Supervisor[R any] struct {
	cfg      SupervisorConfig
	check    CheckFunc[R]
	selector Selector[R]
	Events   *resilience.EventBus

	mu      sync.RWMutex
	entries map[string]*trackedResource[R]
	order   []string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor builds a Supervisor. selector defaults to
// FirstAvailableSelector[R] when nil.
func NewSupervisor[R any](cfg SupervisorConfig, check CheckFunc[R], selector Selector[R]) (*Supervisor[R], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if selector == nil {
		selector = FirstAvailableSelector[R]
	}
	return &Supervisor[R]{
		cfg:      cfg,
		check:    check,
		selector: selector,
		Events:   resilience.NewEventBus(),
		entries:  make(map[string]*trackedResource[R]),
	}, nil
}

// Register adds or replaces a tracked resource. A freshly registered
// resource starts StatusUnknown until its first probe completes.
func (s *Supervisor[R]) Register(name string, resource R) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; !exists {
		s.order = append(s.order, name)
	}
	s.entries[name] = &trackedResource[R]{name: name, resource: resource, status: StatusUnknown}
}

// Unregister removes a tracked resource.
func (s *Supervisor[R]) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Start launches the background probing loop. Ticks that fire while the
// previous tick is still running are skipped, never coalesced or queued.
// Start must not be called twice without an intervening Stop.
func (s *Supervisor[R]) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx)
}

// Stop aborts the background probing loop and waits for it to exit.
func (s *Supervisor[R]) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Supervisor[R]) run(ctx context.Context) {
	defer close(s.done)

	if s.cfg.InitialDelay > 0 {
		select {
		case <-time.After(s.cfg.InitialDelay):
		case <-ctx.Done():
			return
		}
	}

	s.Tick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var busy atomic.Bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				continue // previous tick still in flight: skip, don't queue
			}
			go func() {
				defer busy.Store(false)
				s.Tick(ctx)
			}()
		}
	}
}

// Tick runs every registered resource's check concurrently, bounded by
// CheckTimeout per resource. Exported so callers can drive probing
// synchronously (e.g. from tests or a manual admin endpoint) without
// Start's background loop.
func (s *Supervisor[R]) Tick(ctx context.Context) {
	s.mu.RLock()
	entries := make([]*trackedResource[R], 0, len(s.order))
	for _, name := range s.order {
		entries = append(entries, s.entries[name])
	}
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			s.probe(gctx, e)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Supervisor[R]) probe(ctx context.Context, e *trackedResource[R]) {
	checkCtx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- s.check(checkCtx, e.resource)
	}()

	var result Result
	select {
	case result = <-resultCh:
	case <-checkCtx.Done():
		result = Unhealthy("check timed out", ErrCheckTimeout)
	}
	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = start
	}

	s.applyResult(e, result)
}

// applyResult applies consecutive-success/failure hysteresis: Healthy
// requires SuccessThreshold consecutive Healthy probes, Unhealthy requires
// FailureThreshold consecutive Unhealthy probes, Degraded and Unknown take
// effect immediately.
func (s *Supervisor[R]) applyResult(e *trackedResource[R], result Result) {
	e.mu.Lock()
	prev := e.status
	e.lastResult = result

	switch result.Status {
	case StatusHealthy:
		e.consecutiveSuccess++
		e.consecutiveFailure = 0
		if e.consecutiveSuccess >= s.cfg.SuccessThreshold {
			e.status = StatusHealthy
		}
	case StatusUnhealthy:
		e.consecutiveFailure++
		e.consecutiveSuccess = 0
		if e.consecutiveFailure >= s.cfg.FailureThreshold {
			e.status = StatusUnhealthy
		}
	default: // Degraded, Unknown
		e.consecutiveSuccess = 0
		e.consecutiveFailure = 0
		e.status = result.Status
	}
	next := e.status
	name := e.name
	e.mu.Unlock()

	if next != prev {
		s.Events.Emit(StateTransitionEvent{Pattern: name, From: prev, To: next, When: time.Now()})
	}
}

// GetStatus returns a resource's current effective (hysteresis-applied)
// status.
func (s *Supervisor[R]) GetStatus(name string) (Status, bool) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return StatusUnknown, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, true
}

// GetHealthDetails returns the most recent Result for every tracked
// resource.
func (s *Supervisor[R]) GetHealthDetails() map[string]Result {
	s.mu.RLock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	entries := make([]*trackedResource[R], len(names))
	for i, n := range names {
		entries[i] = s.entries[n]
	}
	s.mu.RUnlock()

	details := make(map[string]Result, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		details[names[i]] = e.lastResult
		e.mu.Unlock()
	}
	return details
}

// GetHealthy selects among currently Healthy resources using the
// configured Selector.
func (s *Supervisor[R]) GetHealthy() (R, bool) {
	return s.selectFiltered(func(st Status) bool { return st == StatusHealthy })
}

// GetUsable selects among resources that are Healthy or Degraded.
func (s *Supervisor[R]) GetUsable() (R, bool) {
	return s.selectFiltered(func(st Status) bool { return st == StatusHealthy || st == StatusDegraded })
}

func (s *Supervisor[R]) selectFiltered(match func(Status) bool) (R, bool) {
	s.mu.RLock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	entries := make([]*trackedResource[R], len(names))
	for i, n := range names {
		entries[i] = s.entries[n]
	}
	s.mu.RUnlock()

	candidates := make([]Candidate[R], 0, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		st := e.status
		res := e.resource
		e.mu.Unlock()
		if match(st) {
			candidates = append(candidates, Candidate[R]{Name: names[i], Resource: res, Status: st})
		}
	}
	return s.selector(candidates)
}

// OverallStatus computes a composite status from a set of results:
// Unhealthy if any is Unhealthy, else Degraded if any is Degraded, else
// Healthy.
func OverallStatus(results map[string]Result) Status {
	if len(results) == 0 {
		return StatusHealthy
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
