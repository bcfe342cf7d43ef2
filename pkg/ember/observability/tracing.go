package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the ember tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("ember")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartEmitSpan starts a span for one event emission.
	// Returns the context with span and the span itself.
	StartEmitSpan(ctx context.Context, eventName, chainID string) (context.Context, trace.Span)

	// StartGroupSpan starts a span for a parallel group execution.
	// The group span should be a child of the emit span.
	StartGroupSpan(ctx context.Context, eventName string, size int) (context.Context, trace.Span)

	// StartHandlerSpan starts a span for one handler unit.
	StartHandlerSpan(ctx context.Context, output string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartEmitSpan starts a span for one event emission.
func (m *otelSpanManager) StartEmitSpan(ctx context.Context, eventName, chainID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ember.emit",
		trace.WithAttributes(
			attribute.String("event.name", eventName),
			attribute.String("chain.id", chainID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartGroupSpan starts a span for a parallel group execution.
func (m *otelSpanManager) StartGroupSpan(ctx context.Context, eventName string, size int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ember.group",
		trace.WithAttributes(
			attribute.String("event.name", eventName),
			attribute.Int("group.size", size),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartHandlerSpan starts a span for one handler unit.
func (m *otelSpanManager) StartHandlerSpan(ctx context.Context, output string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ember.handler."+output,
		trace.WithAttributes(
			attribute.String("handler.output", output),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
