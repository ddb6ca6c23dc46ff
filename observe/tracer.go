package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// PatternMeta contains metadata about a resilience pattern instance for
// telemetry purposes (the "pattern_name" that every event and metric in
// this module carries).
type PatternMeta struct {
	ID        string   // Fully qualified pattern ID (namespace.name or just name)
	Namespace string   // Pattern namespace (may be empty)
	Name      string   // Pattern name (required)
	Version   string   // Pattern version (optional)
	Tags      []string // Discovery tags (optional)
	Category  string   // Pattern category, e.g. "circuitbreaker", "retry" (optional)
}

// SpanName returns the deterministic span name for this pattern.
// Format: resilience.exec.<namespace>.<name> or resilience.exec.<name>
func (m PatternMeta) SpanName() string {
	if m.Namespace != "" {
		return "resilience.exec." + m.Namespace + "." + m.Name
	}
	return "resilience.exec." + m.Name
}

// Validate returns ErrMissingPatternName when Name is empty.
func (m PatternMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingPatternName
	}
	return nil
}

// PatternID returns the fully qualified pattern identifier.
// If ID field is set, returns it. Otherwise constructs from namespace and name.
func (m PatternMeta) PatternID() string {
	if m.ID != "" {
		return m.ID
	}
	if m.Namespace != "" {
		return m.Namespace + "." + m.Name
	}
	return m.Name
}

// Tracer wraps OpenTelemetry tracing with per-pattern span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context derived from ctx that carries the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for pattern execution.
	StartSpan(ctx context.Context, meta PatternMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with pattern metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta PatternMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	// Build attributes
	attrs := []attribute.KeyValue{
		attribute.String("pattern.id", meta.PatternID()),
		attribute.String("pattern.name", meta.Name),
		attribute.Bool("pattern.error", false), // Will be updated in EndSpan if error
	}

	// Add namespace if present
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("pattern.namespace", meta.Namespace))
	}

	// Add optional attributes if present
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("pattern.version", meta.Version))
	}
	if meta.Category != "" {
		attrs = append(attrs, attribute.String("pattern.category", meta.Category))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("pattern.tags", meta.Tags))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("pattern.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta PatternMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
