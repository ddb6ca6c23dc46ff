package resilience

import "context"

// Option wraps a Service with one resilience layer. Options compose
// outermost-first: the first Option passed to NewExecutor sees a request
// first and a response last, i.e. `L1 ∘ L2 ∘ … ∘ Ln ∘ S`.
type Option[Req, Res any] func(inner Service[Req, Res]) Service[Req, Res]

// Executor composes a terminal Service with a stack of functional-options
// resilience layers over the Service[Req, Res] contract.
type Executor[Req, Res any] struct {
	svc Service[Req, Res]
}

// NewExecutor builds an Executor by wrapping terminal with opts,
// outermost option first. A misconfigured layer panics at construction
// time (build-time fatal) rather than returning an error from NewExecutor,
// so that composing layers reads linearly.
func NewExecutor[Req, Res any](terminal Service[Req, Res], opts ...Option[Req, Res]) *Executor[Req, Res] {
	svc := terminal
	for i := len(opts) - 1; i >= 0; i-- {
		svc = opts[i](svc)
	}
	return &Executor[Req, Res]{svc: svc}
}

// Ready reports whether the composed pipeline is ready to accept a call.
func (e *Executor[Req, Res]) Ready(ctx context.Context) error { return e.svc.Ready(ctx) }

// Execute runs the composed pipeline once.
func (e *Executor[Req, Res]) Execute(ctx context.Context, req Req) (Res, error) {
	return e.svc.Call(ctx, req)
}

// must turns a (value, error) pair from a layer constructor into a panic,
// since a misconfigured layer is a build-time fatal error.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// WithCircuitBreaker adds a circuit breaker layer.
func WithCircuitBreaker[Req, Res any](cfg CircuitBreakerConfig) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return must(New[Req, Res](cfg, inner))
	}
}

// WithLegacyCircuitBreaker adds a circuit breaker layer configured per
// the legacy (count-only) derivation.
func WithLegacyCircuitBreaker[Req, Res any](cfg LegacyConfig) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return must(NewLegacy[Req, Res](cfg, inner))
	}
}

// WithRetry adds a retry layer.
func WithRetry[Req, Res any](cfg RetryConfig) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return must(NewRetry[Req, Res](cfg, inner))
	}
}

// WithRateLimiter adds a rate limiter layer.
func WithRateLimiter[Req, Res any](cfg RateLimiterConfig) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return must(NewRateLimiter[Req, Res](cfg, inner))
	}
}

// WithBulkhead adds a bulkhead layer.
func WithBulkhead[Req, Res any](cfg BulkheadConfig) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return must(NewBulkhead[Req, Res](cfg, inner))
	}
}

// WithTimeLimiter adds a time limiter layer.
func WithTimeLimiter[Req, Res any](cfg TimeLimiterConfig[Req]) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return NewTimeLimiter[Req, Res](cfg, inner)
	}
}

// WithHedge adds a hedge layer.
func WithHedge[Req, Res any](cfg HedgeConfig) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return must(NewHedge[Req, Res](cfg, inner))
	}
}

// WithFallback adds a fallback layer.
func WithFallback[Req, Res any](cfg FallbackConfig[Req, Res]) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return NewFallback[Req, Res](cfg, inner)
	}
}

// WithSingleflight adds a singleflight coalescing layer.
func WithSingleflight[Req, Res any](cfg SingleflightConfig[Req]) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return NewSingleflight[Req, Res](cfg, inner)
	}
}

// WithReconnect adds a reconnect supervisor layer.
func WithReconnect[Req, Res any](cfg ReconnectConfig, conn Reconnector) Option[Req, Res] {
	return func(inner Service[Req, Res]) Service[Req, Res] {
		return NewReconnect[Req, Res](cfg, inner, conn)
	}
}
