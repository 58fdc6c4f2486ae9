package authzmiddleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer is a generic tracing interface for the middleware. Spans wrap the
// authorize path of each request.
type Tracer interface {
	StartSpan(ctx context.Context, operationName string) (context.Context, Span)
}

// Span represents one traced operation.
type Span interface {
	SetTag(key, value string)
	Finish()
}

// NoopTracer is a default tracer that does nothing.
type NoopTracer struct{}

func (t *NoopTracer) StartSpan(ctx context.Context, operationName string) (context.Context, Span) {
	return ctx, &noopSpan{}
}

type noopSpan struct{}

func (s *noopSpan) SetTag(key, value string) {}
func (s *noopSpan) Finish()                  {}

// OpenTelemetryTracer implements the Tracer interface using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer oteltrace.Tracer
}

// NewOpenTelemetryTracer wraps an OpenTelemetry tracer for use with the
// middleware.
func NewOpenTelemetryTracer(tracer oteltrace.Tracer) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: tracer}
}

func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, operationName string) (context.Context, Span) {
	spanCtx, span := t.tracer.Start(ctx, operationName)
	return spanCtx, &openTelemetrySpan{span: span}
}

type openTelemetrySpan struct {
	span oteltrace.Span
}

func (s *openTelemetrySpan) SetTag(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

func (s *openTelemetrySpan) Finish() {
	s.span.End()
}
