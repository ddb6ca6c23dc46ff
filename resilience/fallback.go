package resilience

import "context"

// fallbackStrategy is the unexported sum type backing the five recovery
// strategies (Value / FromError / FromRequestError / Service / Exception).
type fallbackStrategy[Req, Res any] interface {
	apply(ctx context.Context, req Req, err error) (Res, error)
}

type valueStrategy[Req, Res any] struct{ value Res }

func (s valueStrategy[Req, Res]) apply(context.Context, Req, error) (Res, error) {
	return s.value, nil
}

type fromErrorStrategy[Req, Res any] struct{ fn func(err error) Res }

func (s fromErrorStrategy[Req, Res]) apply(_ context.Context, _ Req, err error) (Res, error) {
	return s.fn(err), nil
}

type fromRequestErrorStrategy[Req, Res any] struct {
	fn func(req Req, err error) Res
}

func (s fromRequestErrorStrategy[Req, Res]) apply(_ context.Context, req Req, err error) (Res, error) {
	return s.fn(req, err), nil
}

type serviceStrategy[Req, Res any] struct{ backup Service[Req, Res] }

func (s serviceStrategy[Req, Res]) apply(ctx context.Context, req Req, _ error) (Res, error) {
	return s.backup.Call(ctx, req)
}

type exceptionStrategy[Req, Res any] struct{ fn func(err error) error }

func (s exceptionStrategy[Req, Res]) apply(_ context.Context, _ Req, err error) (Res, error) {
	var zero Res
	return zero, s.fn(err)
}

// FallbackConfig configures a Fallback dispatcher.
type FallbackConfig[Req, Res any] struct {
	Name string

	// HandlePredicate decides whether an inner error should trigger the
	// fallback strategy at all. Default: handle every error.
	HandlePredicate func(error) bool

	strategy fallbackStrategy[Req, Res]
}

// WithValue configures a constant-response fallback strategy.
func (c FallbackConfig[Req, Res]) WithValue(value Res) FallbackConfig[Req, Res] {
	c.strategy = valueStrategy[Req, Res]{value: value}
	return c
}

// WithFromError configures a fallback that computes a response from the
// inner error alone.
func (c FallbackConfig[Req, Res]) WithFromError(fn func(err error) Res) FallbackConfig[Req, Res] {
	c.strategy = fromErrorStrategy[Req, Res]{fn: fn}
	return c
}

// WithFromRequestError configures a fallback that computes a response
// from the original request and the inner error.
func (c FallbackConfig[Req, Res]) WithFromRequestError(fn func(req Req, err error) Res) FallbackConfig[Req, Res] {
	c.strategy = fromRequestErrorStrategy[Req, Res]{fn: fn}
	return c
}

// WithService configures a backup Service to call on fallback.
func (c FallbackConfig[Req, Res]) WithService(backup Service[Req, Res]) FallbackConfig[Req, Res] {
	c.strategy = serviceStrategy[Req, Res]{backup: backup}
	return c
}

// WithException configures a fallback that transforms the error and
// still returns it as an error (no response is produced).
func (c FallbackConfig[Req, Res]) WithException(fn func(err error) error) FallbackConfig[Req, Res] {
	c.strategy = exceptionStrategy[Req, Res]{fn: fn}
	return c
}

// Fallback dispatches to a configured strategy after an inner failure.
type Fallback[Req, Res any] struct {
	cfg    FallbackConfig[Req, Res]
	inner  Service[Req, Res]
	Events *EventBus
}

// NewFallback builds a Fallback layer. A FallbackConfig with no
// With*-configured strategy panics, since a fallback with no strategy is
// a programming error, not a runtime condition.
func NewFallback[Req, Res any](cfg FallbackConfig[Req, Res], inner Service[Req, Res]) *Fallback[Req, Res] {
	if cfg.strategy == nil {
		panic("resilience: fallback " + cfg.Name + ": no strategy configured, call one of FallbackConfig.With*")
	}
	if cfg.HandlePredicate == nil {
		cfg.HandlePredicate = func(error) bool { return true }
	}
	return &Fallback[Req, Res]{cfg: cfg, inner: inner, Events: NewEventBus()}
}

func (f *Fallback[Req, Res]) Ready(ctx context.Context) error { return f.inner.Ready(ctx) }

// Call runs the inner service and, on failure, dispatches to the
// configured fallback strategy.
func (f *Fallback[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	res, err := f.inner.Call(ctx, req)
	if err == nil {
		f.Events.Emit(FallbackSuccessEvent{baseEvent: newBaseEvent(f.cfg.Name)})
		return res, nil
	}

	if !f.cfg.HandlePredicate(err) {
		f.Events.Emit(FallbackSkippedEvent{baseEvent: newBaseEvent(f.cfg.Name)})
		return res, newLayerError(f.cfg.Name, KindInner, err)
	}

	f.Events.Emit(FallbackFailedAttemptEvent{baseEvent: newBaseEvent(f.cfg.Name)})
	fbRes, fbErr := f.cfg.strategy.apply(ctx, req, err)
	if fbErr != nil {
		if _, isService := f.cfg.strategy.(serviceStrategy[Req, Res]); isService {
			f.Events.Emit(FallbackFailedEvent{baseEvent: newBaseEvent(f.cfg.Name)})
			return fbRes, newLayerError(f.cfg.Name, KindFallbackFailed, fbErr)
		}
		// Exception strategy: transform and still return as an error.
		return fbRes, fbErr
	}
	f.Events.Emit(FallbackAppliedEvent{baseEvent: newBaseEvent(f.cfg.Name), Strategy: f.strategyName()})
	return fbRes, nil
}

func (f *Fallback[Req, Res]) strategyName() string {
	switch f.cfg.strategy.(type) {
	case valueStrategy[Req, Res]:
		return "value"
	case fromErrorStrategy[Req, Res]:
		return "from_error"
	case fromRequestErrorStrategy[Req, Res]:
		return "from_request_error"
	case serviceStrategy[Req, Res]:
		return "service"
	case exceptionStrategy[Req, Res]:
		return "exception"
	default:
		return "unknown"
	}
}

// Fallback dispatcher events.

type FallbackSuccessEvent struct{ baseEvent }
type FallbackFailedAttemptEvent struct{ baseEvent }
type FallbackAppliedEvent struct {
	baseEvent
	Strategy string
}
type FallbackFailedEvent struct{ baseEvent }
type FallbackSkippedEvent struct{ baseEvent }
