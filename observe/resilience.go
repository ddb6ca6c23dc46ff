package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/resiliency/cache"
	"github.com/jonwraymond/resiliency/health"
	"github.com/jonwraymond/resiliency/resilience"
)

// ResilienceMetrics fans resilience.Event, cache.Store's events, and
// health.Supervisor's events, all delivered through resilience.EventBus,
// into counter and histogram instruments. One instance is meant to be
// shared across every layer's EventBus.Subscribe call in a process.
type ResilienceMetrics struct {
	circuitCalls       metric.Int64Counter
	circuitTransitions metric.Int64Counter
	circuitSlowCalls   metric.Int64Counter

	cacheRequests metric.Int64Counter
	cacheEvicted  metric.Int64Counter

	rateLimiterCalls metric.Int64Counter
	rateLimiterWait  metric.Float64Histogram

	retryAttempts metric.Int64Counter
	retryOutcome  metric.Int64Counter

	timeLimiterCalls    metric.Int64Counter
	timeLimiterDuration metric.Float64Histogram

	hedgeOutcome metric.Int64Counter

	fallbackOutcome metric.Int64Counter

	healthTransitions metric.Int64Counter
}

var (
	resilienceMetricsOnce sync.Once
	resilienceMetrics     *ResilienceMetrics
	resilienceMetricsErr  error
)

// NewResilienceMetrics builds every instrument used by Listener, guarding
// against duplicate descriptor registration on the same process. A second
// call, even with a different meter, returns the instance built on the
// first call.
func NewResilienceMetrics(meter metric.Meter) (*ResilienceMetrics, error) {
	resilienceMetricsOnce.Do(func() {
		resilienceMetrics, resilienceMetricsErr = newResilienceMetrics(meter)
	})
	return resilienceMetrics, resilienceMetricsErr
}

func newResilienceMetrics(meter metric.Meter) (*ResilienceMetrics, error) {
	m := &ResilienceMetrics{}
	var err error

	if m.circuitCalls, err = meter.Int64Counter(
		"circuitbreaker_calls_total",
		metric.WithDescription("Circuit breaker calls by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.circuitTransitions, err = meter.Int64Counter(
		"circuitbreaker_transitions_total",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}
	if m.circuitSlowCalls, err = meter.Int64Counter(
		"circuitbreaker_slow_calls_total",
		metric.WithDescription("Circuit breaker calls exceeding the slow-call threshold"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.cacheRequests, err = meter.Int64Counter(
		"cache_requests_total",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.cacheEvicted, err = meter.Int64Counter(
		"cache_evictions_total",
		metric.WithDescription("Cache entries evicted to make room"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	if m.rateLimiterCalls, err = meter.Int64Counter(
		"ratelimiter_calls_total",
		metric.WithDescription("Rate limiter permit attempts by result"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.rateLimiterWait, err = meter.Float64Histogram(
		"ratelimiter_wait_duration_seconds",
		metric.WithDescription("Time spent waiting for a permit"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.retryAttempts, err = meter.Int64Counter(
		"retry_attempts_total",
		metric.WithDescription("Retry attempts made"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	if m.retryOutcome, err = meter.Int64Counter(
		"retry_outcome_total",
		metric.WithDescription("Retry sequences by final outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.timeLimiterCalls, err = meter.Int64Counter(
		"timelimiter_calls_total",
		metric.WithDescription("Time limiter calls by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.timeLimiterDuration, err = meter.Float64Histogram(
		"timelimiter_call_duration_seconds",
		metric.WithDescription("Call duration observed by the time limiter"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.hedgeOutcome, err = meter.Int64Counter(
		"hedge_outcome_total",
		metric.WithDescription("Hedge executions by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.fallbackOutcome, err = meter.Int64Counter(
		"fallback_outcome_total",
		metric.WithDescription("Fallback dispatches by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.healthTransitions, err = meter.Int64Counter(
		"health_transitions_total",
		metric.WithDescription("Supervised resource status transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Listener returns a resilience.Listener suitable for EventBus.Subscribe on
// any layer's, cache.Store's, or health.Supervisor's event bus. It never
// blocks or panics; unrecognized event types are ignored.
func (m *ResilienceMetrics) Listener() resilience.Listener {
	ctx := context.Background()

	return func(ev resilience.Event) {
		name := ev.PatternName()
		nameAttr := attribute.String("name", name)

		switch e := ev.(type) {
		case resilience.CircuitCallPermittedEvent:
			m.circuitCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "permitted")))
		case resilience.CircuitCallRejectedEvent:
			m.circuitCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "rejected")))
		case resilience.CircuitSuccessRecordedEvent:
			m.circuitCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "success")))
		case resilience.CircuitFailureRecordedEvent:
			m.circuitCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "failure")))
		case resilience.CircuitSlowCallDetectedEvent:
			m.circuitSlowCalls.Add(ctx, 1, metric.WithAttributes(nameAttr))
		case resilience.CircuitStateTransitionEvent:
			m.circuitTransitions.Add(ctx, 1, metric.WithAttributes(
				nameAttr,
				attribute.String("from", e.From.String()),
				attribute.String("to", e.To.String()),
			))

		case resilience.RateLimiterPermitAcquiredEvent:
			m.rateLimiterCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("result", "permitted")))
			m.rateLimiterWait.Record(ctx, e.WaitDuration.Seconds(), metric.WithAttributes(nameAttr))
		case resilience.RateLimiterPermitRejectedEvent:
			m.rateLimiterCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("result", "rejected")))

		case resilience.RetryEvent:
			m.retryAttempts.Add(ctx, 1, metric.WithAttributes(nameAttr))
		case resilience.RetrySuccessEvent:
			m.retryOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "success")))
		case resilience.RetryErrorEvent:
			m.retryOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "error")))
		case resilience.RetryIgnoredErrorEvent:
			m.retryOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "ignored")))

		case resilience.TimeLimiterSuccessEvent:
			m.timeLimiterCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "success")))
			m.timeLimiterDuration.Record(ctx, e.Duration.Seconds(), metric.WithAttributes(nameAttr))
		case resilience.TimeLimiterErrorEvent:
			m.timeLimiterCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "error")))
			m.timeLimiterDuration.Record(ctx, e.Duration.Seconds(), metric.WithAttributes(nameAttr))
		case resilience.TimeLimiterTimeoutEvent:
			m.timeLimiterCalls.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "timeout")))

		case resilience.HedgePrimarySucceededEvent:
			m.hedgeOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "primary")))
		case resilience.HedgeSucceededEvent:
			m.hedgeOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "hedge")))
		case resilience.HedgeAllFailedEvent:
			m.hedgeOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "all_failed")))

		case resilience.FallbackAppliedEvent:
			m.fallbackOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "applied")))
		case resilience.FallbackFailedEvent:
			m.fallbackOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "failed")))
		case resilience.FallbackSkippedEvent:
			m.fallbackOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "skipped")))
		case resilience.FallbackSuccessEvent:
			m.fallbackOutcome.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("outcome", "success")))

		case cache.CacheHitEvent:
			m.cacheRequests.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("result", "hit")))
		case cache.CacheMissEvent:
			m.cacheRequests.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("result", "miss")))
		case cache.CacheEvictionEvent:
			m.cacheEvicted.Add(ctx, 1, metric.WithAttributes(nameAttr))

		case health.StateTransitionEvent:
			m.healthTransitions.Add(ctx, 1, metric.WithAttributes(
				nameAttr,
				attribute.String("from", e.From.String()),
				attribute.String("to", e.To.String()),
			))
		}
	}
}
