package resilience

import (
	"errors"
	"fmt"
)

// Kind classifies a LayerError. KindInner means the error originated in
// the wrapped service and was not altered; every other kind is
// layer-specific and has no inner cause from the call that produced it,
// except AllAttemptsFailed and FallbackFailed, which carry an error
// observed during the call as their cause.
type Kind int

const (
	KindInner Kind = iota
	KindOpenCircuit
	KindRateLimited
	KindTimeout
	KindBulkheadFull
	KindAllAttemptsFailed
	KindFallbackFailed
	KindSingleflightFailed
)

func (k Kind) String() string {
	switch k {
	case KindInner:
		return "inner"
	case KindOpenCircuit:
		return "open_circuit"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindBulkheadFull:
		return "bulkhead_full"
	case KindAllAttemptsFailed:
		return "all_attempts_failed"
	case KindFallbackFailed:
		return "fallback_failed"
	case KindSingleflightFailed:
		return "singleflight_failed"
	default:
		return "unknown"
	}
}

// LayerError is the error taxonomy every layer in this package returns.
// It wraps the inner service's error (when one exists) and tags it with a
// Kind so callers can classify it with errors.Is/errors.As without
// depending on which layer produced it.
type LayerError struct {
	Kind  Kind
	Layer string // e.g. "circuitbreaker", "retry"
	Inner error  // nil for pure layer-specific rejections (e.g. OpenCircuit)
}

func (e *LayerError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %v", e.Layer, e.Kind, e.Inner)
	}
	return fmt.Sprintf("%s: %s", e.Layer, e.Kind)
}

// Unwrap exposes the inner error for errors.Is/errors.As, the Go rendering
// of into_inner().
func (e *LayerError) Unwrap() error { return e.Inner }

// Is reports whether target is a LayerError of the same Kind, so callers
// can write errors.Is(err, resilience.ErrOpenCircuit) style checks via the
// sentinel values below.
func (e *LayerError) Is(target error) bool {
	var le *LayerError
	if errors.As(target, &le) {
		return le.Kind == e.Kind && le.Inner == nil
	}
	return false
}

// Sentinel errors for use with errors.Is. Each carries no layer name or
// inner cause; LayerError.Is matches on Kind alone against these.
var (
	ErrOpenCircuit        = &LayerError{Kind: KindOpenCircuit}
	ErrRateLimited        = &LayerError{Kind: KindRateLimited}
	ErrTimeout            = &LayerError{Kind: KindTimeout}
	ErrBulkheadFull       = &LayerError{Kind: KindBulkheadFull}
	ErrAllAttemptsFailed  = &LayerError{Kind: KindAllAttemptsFailed}
	ErrFallbackFailed     = &LayerError{Kind: KindFallbackFailed}
	ErrSingleflightFailed = &LayerError{Kind: KindSingleflightFailed}
)

// newLayerError wraps inner with the given layer name and kind.
func newLayerError(layer string, kind Kind, inner error) *LayerError {
	return &LayerError{Kind: kind, Layer: layer, Inner: inner}
}

// IsKind reports whether err is, or wraps, a LayerError of the given Kind.
func IsKind(err error, kind Kind) bool {
	var le *LayerError
	if errors.As(err, &le) {
		return le.Kind == kind
	}
	return false
}

// IntoInner returns the innermost non-LayerError cause of err, or err
// itself if it is not a LayerError (or wraps no inner error).
func IntoInner(err error) error {
	var le *LayerError
	for errors.As(err, &le) {
		if le.Inner == nil {
			return le
		}
		err = le.Inner
	}
	return err
}
