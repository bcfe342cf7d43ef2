package ember

import (
	"context"
	"log/slog"

	"github.com/emberlang/ember/pkg/ember/event"
	"github.com/emberlang/ember/pkg/ember/observability"
)

// DefaultMaxEmissionDepth bounds recursive re-emission: a handler may
// emit further parallel groups, but a chain deeper than this fails
// fast with a RecursionLimitError instead of growing without bound.
const DefaultMaxEmissionDepth = 64

// Dispatch modes reported to metrics.
const (
	modeSequential = "sequential"
	modeParallel   = "parallel"
)

// errorEventSuffix is appended to an event name when a parallel group
// fails totally; consuming code reacts to the aggregate through
// ordinary event handling rather than exception handling.
const errorEventSuffix = ".error"

// Dispatcher drives the emission lifecycle: classify parameters,
// choose the dispatch mode, run the parallel coordinator or the legacy
// sequential path, and hand the enhanced payload to whatever consumes
// it next. No state persists past one emission.
type Dispatcher struct {
	bus         *event.Bus
	registry    *HandlerRegistry
	resolver    *Resolver
	coordinator *Coordinator

	source         string
	allowOverwrite bool
	maxDepth       int

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSource sets the source recorded on published events.
func WithSource(source string) DispatcherOption {
	return func(d *Dispatcher) {
		d.source = source
	}
}

// WithAllowOverwrite lets merged outputs overwrite existing payload
// fields instead of failing with a ReservedKeyConflictError. Off by
// default to prevent silent data loss.
func WithAllowOverwrite(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.allowOverwrite = enabled
	}
}

// WithMaxEmissionDepth bounds recursive re-emission.
func WithMaxEmissionDepth(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// WithDispatcherLogger sets the structured logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDispatcherMetrics sets the metrics recorder.
func WithDispatcherMetrics(m observability.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithDispatcherSpans sets the trace span manager.
func WithDispatcherSpans(s observability.SpanManager) DispatcherOption {
	return func(d *Dispatcher) {
		d.spans = s
	}
}

// WithCoordinator replaces the coordinator the dispatcher delegates
// parallel groups to. Use this to set timeout and merge policies.
func WithCoordinator(c *Coordinator) DispatcherOption {
	return func(d *Dispatcher) {
		d.coordinator = c
	}
}

// NewDispatcher creates a dispatcher over the given bus and registry.
// Without options it uses a default coordinator (default timeouts,
// first-declared-wins merging) and no-op observability.
func NewDispatcher(bus *event.Bus, registry *HandlerRegistry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		bus:      bus,
		registry: registry,
		resolver: NewResolver(registry),
		source:   "ember",
		maxDepth: DefaultMaxEmissionDepth,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.coordinator == nil {
		d.coordinator = NewCoordinator(registry)
	}
	return d
}

// Emit runs one emission: parameters are classified, handler
// parameters (if any) execute concurrently, and the enhanced payload
// is returned after delivery to registered subscribers.
//
// With no handler parameters this is the legacy sequential path:
// subscribers run one at a time in subscription order and the first
// error halts delivery and propagates (fail fast).
//
// With handler parameters the group runs through the coordinator. A
// partial failure is non-fatal: the enhanced payload carries failure
// markers for the failed outputs. A total failure publishes
// "<eventName>.error" with the failure list and returns a
// TotalFailureError instead of proceeding.
//
// A nil ectx starts a new causal chain.
func (d *Dispatcher) Emit(ctx context.Context, eventName string, payload Payload, params []Param, ectx *ExecutionContext) (Payload, error) {
	return d.emit(ctx, "", eventName, payload, params, ectx)
}

// EmitCallSite is Emit with a stable call-site id so the parameter
// classification can be cached across repeated invocations.
func (d *Dispatcher) EmitCallSite(ctx context.Context, siteID, eventName string, payload Payload, params []Param, ectx *ExecutionContext) (Payload, error) {
	return d.emit(ctx, siteID, eventName, payload, params, ectx)
}

func (d *Dispatcher) emit(ctx context.Context, siteID, eventName string, payload Payload, params []Param, ectx *ExecutionContext) (Payload, error) {
	if ectx == nil {
		ectx = NewExecutionContext()
	}
	if ectx.Depth() >= d.maxDepth {
		return Payload{}, &RecursionLimitError{Depth: ectx.Depth(), Max: d.maxDepth}
	}

	done := observability.TimedOperation()
	logger := observability.EnrichLogger(d.logger, ectx.ChainID(), eventName, ectx.Depth())

	spanCtx, span := d.spans.StartEmitSpan(ctx, eventName, ectx.ChainID())

	var data Payload
	var group *HandlerGroup
	var err error
	if siteID != "" {
		data, group, err = d.resolver.ClassifyCallSite(siteID, params)
	} else {
		data, group, err = d.resolver.Classify(params)
	}
	if err != nil {
		observability.LogEmitError(logger, eventName, err, done())
		d.spans.EndSpanWithError(span, err)
		return Payload{}, err
	}

	// The merge base is the emission payload with the data parameters
	// appended; handlers read the same combined view.
	combined := payload
	data.Range(func(name string, v Value) bool {
		combined = combined.With(name, v)
		return true
	})

	if group.Len() == 0 {
		enhanced, seqErr := d.emitSequential(spanCtx, eventName, combined, ectx, logger, done)
		d.spans.EndSpanWithError(span, seqErr)
		return enhanced, seqErr
	}

	enhanced, parErr := d.emitParallel(spanCtx, eventName, combined, group, ectx, logger, done)
	d.spans.EndSpanWithError(span, parErr)
	return enhanced, parErr
}

// emitSequential is the legacy path: ordered, single-threaded,
// fail-fast subscriber invocation. No merged payload is produced.
func (d *Dispatcher) emitSequential(ctx context.Context, eventName string, payload Payload, ectx *ExecutionContext, logger *slog.Logger, done func() float64) (Payload, error) {
	d.metrics.RecordEmission(ctx, eventName, modeSequential)
	observability.LogEmitStart(logger, eventName, modeSequential, len(d.bus.Subscribers(eventName)))

	evt := event.New(eventName, d.source, payload,
		event.WithCorrelationID(ectx.ChainID()))
	if err := d.bus.Publish(ctx, evt); err != nil {
		observability.LogEmitError(logger, eventName, err, done())
		return payload, err
	}

	observability.LogEmitComplete(logger, eventName, modeSequential, done())
	return payload, nil
}

// emitParallel delegates the handler group to the coordinator, merges
// the outcome into the enhanced payload, and continues with it.
func (d *Dispatcher) emitParallel(ctx context.Context, eventName string, base Payload, group *HandlerGroup, ectx *ExecutionContext, logger *slog.Logger, done func() float64) (Payload, error) {
	d.metrics.RecordEmission(ctx, eventName, modeParallel)
	observability.LogEmitStart(logger, eventName, modeParallel, group.Len())

	outcome, err := d.coordinator.Execute(ctx, eventName, group, base, ectx)
	if err != nil {
		observability.LogEmitError(logger, eventName, err, done())
		return Payload{}, err
	}

	if outcome.Status == StatusTotalFailure {
		aggErr := &TotalFailureError{EventName: eventName, Failures: outcome.Failures()}
		d.publishErrorEvent(ctx, eventName, ectx, outcome, logger)
		observability.LogEmitError(logger, eventName, aggErr, done())
		return Payload{}, aggErr
	}

	enhanced, err := MergeResults(base, outcome, d.allowOverwrite)
	if err != nil {
		observability.LogEmitError(logger, eventName, err, done())
		return Payload{}, err
	}

	// Continue execution: registered subscribers see the enhanced
	// payload, sequentially and fail-fast as in the legacy path.
	evt := event.New(eventName, d.source, enhanced,
		event.WithCorrelationID(ectx.ChainID()))
	if err := d.bus.Publish(ctx, evt); err != nil {
		observability.LogEmitError(logger, eventName, err, done())
		return enhanced, err
	}

	observability.LogEmitComplete(logger, eventName, outcome.Status.String(), done())
	return enhanced, nil
}

// publishErrorEvent raises "<eventName>.error" carrying the failure
// list. Publish errors are logged, not propagated; the aggregate
// TotalFailureError already reports the emission outcome.
func (d *Dispatcher) publishErrorEvent(ctx context.Context, eventName string, ectx *ExecutionContext, outcome *ExecutionOutcome, logger *slog.Logger) {
	failures := outcome.Failures()
	list := make([]Value, 0, len(failures))
	for _, f := range failures {
		list = append(list, PayloadValue(NewPayload(
			Field{Name: "output", Value: String(f.Output)},
			Field{Name: "kind", Value: String(f.Failure.Kind)},
			Field{Name: "message", Value: String(f.Failure.Message)},
		)))
	}
	errPayload := NewPayload(
		Field{Name: "event", Value: String(eventName)},
		Field{Name: "failures", Value: List(list...)},
	)

	evt := event.New(eventName+errorEventSuffix, d.source, errPayload,
		event.WithCorrelationID(ectx.ChainID()))
	if err := d.bus.Publish(ctx, evt); err != nil && logger != nil {
		logger.Warn("error event publish failed",
			slog.String("event", eventName+errorEventSuffix),
			slog.String("error", err.Error()),
		)
	}
}
