// Package resilience provides composable middleware layers for
// request/response services: circuit breaking, retry, rate limiting,
// bulkheads, time limits, hedging, fallback, singleflight coalescing,
// adaptive concurrency, and reconnect supervision.
//
// A pipeline is built by wrapping a terminal Service with one or more
// layers. Each layer is itself a Service, so layers compose: the
// outermost layer sees a request first and the response last.
package resilience

import "context"

// Service is the uniform contract every resilience layer implements and
// consumes. A layer wraps an inner Service and produces another Service of
// the same shape.
type Service[Req, Res any] interface {
	// Ready reports whether the service is prepared to accept a call.
	// Most layers forward the inner service's readiness unchanged.
	Ready(ctx context.Context) error

	// Call invokes the service once for the given request.
	Call(ctx context.Context, req Req) (Res, error)
}

// ServiceFunc adapts a plain function to the Service interface. Ready
// always reports ready; wrap with a layer if readiness must reflect
// inner state.
type ServiceFunc[Req, Res any] func(ctx context.Context, req Req) (Res, error)

func (f ServiceFunc[Req, Res]) Ready(ctx context.Context) error { return nil }

func (f ServiceFunc[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	return f(ctx, req)
}
