// Package resilience provides composable middleware layers for
// request/response services.
//
// # Overview
//
// A pipeline is a composition of layers around a terminal Service:
//
//	RateLimiter -> Bulkhead -> CircuitBreaker -> Retry -> TimeLimiter -> terminal
//
// Every layer implements Service[Req, Res], so layers are interchangeable:
// a layer forwards a request, rejects it with a typed error, delays it,
// executes it multiple times, returns a cached or fallback response, or
// races several attempts.
//
// # Quick Start
//
//	terminal := resilience.ServiceFunc[Request, Response](callBackend)
//
//	exec := resilience.NewExecutor(terminal,
//	    resilience.WithRateLimiter[Request, Response](resilience.RateLimiterConfig{
//	        Name: "backend", LimitForPeriod: 100, RefreshPeriod: time.Second,
//	    }),
//	    resilience.WithCircuitBreaker[Request, Response](resilience.CircuitBreakerConfig{
//	        Name: "backend", FailureRateThreshold: 0.5, MinimumNumberOfCalls: 10,
//	    }),
//	    resilience.WithRetry[Request, Response](resilience.RetryConfig{
//	        Name: "backend", MaxAttempts: 3,
//	    }),
//	)
//
//	resp, err := exec.Execute(ctx, req)
//
// # Layer order
//
// Options passed to NewExecutor apply outermost-first: the first Option
// sees a request first and a response last. The example above therefore
// runs RateLimiter, then CircuitBreaker, then Retry, then the terminal
// service. Composing timeouts, rate limits and retries requires
// attention to this order, since e.g. a retry layer placed outside a
// rate limiter will make each retry attempt also wait on the rate
// limiter.
//
// # Errors
//
// Every layer returns a *LayerError tagged with a Kind. Use
// errors.Is(err, resilience.ErrOpenCircuit) (and the other Err* sentinels)
// to classify a failure, or resilience.IntoInner(err) to recover the
// original error the terminal service returned.
//
// # Events
//
// Every layer except Singleflight exposes an Events *EventBus field; the
// Bulkhead and Reconnect buses emit no events. Subscribing a listener at
// construction time lets callers observe state transitions, cache hits,
// retries, and so on without threading observability concerns through
// every layer; see the observe package for an OpenTelemetry-backed
// bridge.
//
// # Thread safety
//
// Every layer type in this package is safe for concurrent use once
// constructed. Layer state (circuit window, cache, limiter counters,
// singleflight registry) is held behind a mutex or atomics as documented
// on each type; cloning a layer handle (e.g. holding a pointer to it) is
// the idiomatic equivalent of "clone shares the underlying state".
package resilience
