package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records ember runtime metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordHandlerExecution records one handler unit with its duration
	// and failure kind ("" on success).
	RecordHandlerExecution(ctx context.Context, output string, duration time.Duration, failureKind string)

	// RecordGroupExecution records a parallel group completion.
	RecordGroupExecution(ctx context.Context, eventName, status string, duration time.Duration)

	// RecordEmission records a dispatch in either mode ("parallel" or
	// "sequential").
	RecordEmission(ctx context.Context, eventName, mode string)

	// RecordContextConflict records a context write conflict.
	RecordContextConflict(ctx context.Context, key string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	handlerExecutions metric.Int64Counter
	handlerLatency    metric.Float64Histogram
	handlerFailures   metric.Int64Counter
	groupRuns         metric.Int64Counter
	groupLatency      metric.Float64Histogram
	emissions         metric.Int64Counter
	contextConflicts  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("ember")

	handlerExecutions, err := meter.Int64Counter("ember.handler.executions",
		metric.WithDescription("Number of handler unit executions"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("ember.handler.latency_ms",
		metric.WithDescription("Handler unit latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerFailures, err := meter.Int64Counter("ember.handler.failures",
		metric.WithDescription("Number of handler failures and timeouts"),
	)
	if err != nil {
		return nil, err
	}

	groupRuns, err := meter.Int64Counter("ember.group.runs",
		metric.WithDescription("Number of parallel group executions"),
	)
	if err != nil {
		return nil, err
	}

	groupLatency, err := meter.Float64Histogram("ember.group.latency_ms",
		metric.WithDescription("Parallel group latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	emissions, err := meter.Int64Counter("ember.dispatch.emissions",
		metric.WithDescription("Number of event emissions"),
	)
	if err != nil {
		return nil, err
	}

	contextConflicts, err := meter.Int64Counter("ember.context.conflicts",
		metric.WithDescription("Number of context write conflicts"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		handlerExecutions: handlerExecutions,
		handlerLatency:    handlerLatency,
		handlerFailures:   handlerFailures,
		groupRuns:         groupRuns,
		groupLatency:      groupLatency,
		emissions:         emissions,
		contextConflicts:  contextConflicts,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordHandlerExecution records one handler unit execution.
func (m *otelMetrics) RecordHandlerExecution(ctx context.Context, output string, duration time.Duration, failureKind string) {
	attrs := []attribute.KeyValue{
		attribute.String("output", output),
	}

	m.handlerExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.handlerLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if failureKind != "" {
		failAttrs := append(attrs, attribute.String("kind", failureKind))
		m.handlerFailures.Add(ctx, 1, metric.WithAttributes(failAttrs...))
	}
}

// RecordGroupExecution records a parallel group completion.
func (m *otelMetrics) RecordGroupExecution(ctx context.Context, eventName, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("event", eventName),
		attribute.String("status", status),
	}
	m.groupRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.groupLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordEmission records a dispatch.
func (m *otelMetrics) RecordEmission(ctx context.Context, eventName, mode string) {
	m.emissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventName),
		attribute.String("mode", mode),
	))
}

// RecordContextConflict records a context write conflict.
func (m *otelMetrics) RecordContextConflict(ctx context.Context, key string) {
	m.contextConflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
	))
}
