package ember

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/emberlang/ember/pkg/ember/journal"
	"github.com/emberlang/ember/pkg/ember/observability"
)

// Default timeout policy. Both are overridable per coordinator; the
// per-handler default is additionally overridable per registration.
const (
	DefaultGroupTimeout   = 2 * time.Minute
	DefaultHandlerTimeout = 30 * time.Second
)

// Coordinator executes a parallel handler group: fan-out to one
// execution unit per entry, per-handler and group-global timeouts,
// failure isolation, deterministic aggregation, and post-completion
// context reconciliation.
//
// The coordinator performs no I/O of its own beyond emitted
// diagnostics; handler bodies are opaque to it.
type Coordinator struct {
	registry *HandlerRegistry

	groupTimeout   time.Duration
	handlerTimeout time.Duration
	mergePolicy    MergePolicy
	maxConcurrency int
	failFast       bool

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	sink    journal.Store
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithGroupTimeout sets the group-global timeout. On expiry all
// outstanding units are cancelled and recorded as timeouts; collected
// results are still returned. 0 disables the group timeout.
func WithGroupTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.groupTimeout = d
	}
}

// WithHandlerTimeout sets the per-handler default timeout. A handler's
// declared timeout (see WithDeclaredTimeout) takes precedence.
// 0 disables the per-handler timeout.
func WithHandlerTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.handlerTimeout = d
	}
}

// WithMergePolicy selects the context reconciliation policy.
func WithMergePolicy(p MergePolicy) CoordinatorOption {
	return func(c *Coordinator) {
		c.mergePolicy = p
	}
}

// WithMaxConcurrency limits how many units run simultaneously.
// 0 = unlimited (all units start immediately).
func WithMaxConcurrency(n int) CoordinatorOption {
	return func(c *Coordinator) {
		c.maxConcurrency = n
	}
}

// WithFailFast cancels outstanding units when any unit fails. This is
// an explicit opt-in policy; the default is isolation, where a failed
// unit never affects its siblings.
func WithFailFast(enabled bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.failFast = enabled
	}
}

// WithCoordinatorLogger sets the structured logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithSpanManager sets the trace span manager.
func WithSpanManager(s observability.SpanManager) CoordinatorOption {
	return func(c *Coordinator) {
		c.spans = s
	}
}

// WithJournal sets the diagnostics sink. Journal write failures are
// logged and never fail an execution.
func WithJournal(store journal.Store) CoordinatorOption {
	return func(c *Coordinator) {
		c.sink = store
	}
}

// NewCoordinator creates a coordinator backed by the given registry.
func NewCoordinator(registry *HandlerRegistry, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry:       registry,
		groupTimeout:   DefaultGroupTimeout,
		handlerTimeout: DefaultHandlerTimeout,
		mergePolicy:    MergeFirstDeclaredWins,
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// unit is one prepared execution unit.
type unit struct {
	entry   GroupEntry
	handler Handler
	timeout time.Duration
	uc      *UnitContext
}

// Execute runs every entry of the group concurrently against a shared
// read-only data payload and a frozen context snapshot, blocks until
// all units finish or the group timeout elapses, and aggregates the
// results in declaration order.
//
// Per-unit errors and timeouts are isolated and collected, never
// returned as errors. The returned error is non-nil only for fatal
// conditions: an unresolvable handler reference (the call never
// partially executes) or a context conflict under the
// error-on-conflict policy.
//
// Recorded context writes of successful units are merged back into
// ectx after all units finish; failed units never mutate chain state.
func (c *Coordinator) Execute(ctx context.Context, eventName string, group *HandlerGroup, data Payload, ectx *ExecutionContext) (*ExecutionOutcome, error) {
	start := time.Now()
	entries := group.Entries()
	if len(entries) == 0 {
		return &ExecutionOutcome{Status: StatusSuccess}, nil
	}

	// Resolve every reference before starting anything: a malformed
	// call must never partially execute.
	snap := ectx.Snapshot()
	units := make([]unit, len(entries))
	for i, e := range entries {
		h, declared, err := c.registry.Resolve(e.Ref)
		if err != nil {
			return nil, err
		}
		timeout := c.handlerTimeout
		if declared > 0 {
			timeout = declared
		}
		units[i] = unit{entry: e, handler: h, timeout: timeout, uc: snap.Fork(e.Output)}
	}

	groupCtx, cancel := c.withGroupTimeout(ctx)
	defer cancel()

	spanCtx, groupSpan := c.spans.StartGroupSpan(groupCtx, eventName, len(units))

	var sem *semaphore.Weighted
	if c.maxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(c.maxConcurrency))
	}

	results := make(chan HandlerResult, len(units))
	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u unit) {
			defer wg.Done()
			res := c.runUnit(spanCtx, eventName, u, data, sem)
			if res.Failed() && c.failFast {
				cancel()
			}
			results <- res
		}(u)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	collected := c.collect(groupCtx, results, len(units))

	// Deterministic aggregation: declaration order, independent of
	// completion order. Units never seen by the collector were still
	// outstanding at the deadline.
	ordered := make([]HandlerResult, len(units))
	var reconcilable []*UnitContext
	for i, u := range units {
		res, ok := collected[u.entry.Output]
		if !ok {
			res = c.expiredResult(groupCtx, eventName, u, time.Since(start))
		}
		ordered[i] = res
		if !res.Failed() {
			reconcilable = append(reconcilable, u.uc)
		}
	}

	conflicts, err := reconcile(ectx, reconcilable, c.mergePolicy)
	if err != nil {
		c.spans.EndSpanWithError(groupSpan, err)
		return nil, err
	}
	for _, conflict := range conflicts {
		observability.LogContextConflict(c.logger, conflict.Key, conflict.Winner, conflict.Loser)
		c.metrics.RecordContextConflict(ctx, conflict.Key)
		c.record(journal.Record{
			ChainID:    ectx.ChainID(),
			EventName:  eventName,
			OutputName: conflict.Loser,
			Kind:       journal.KindContextConflict,
			Message:    fmt.Sprintf("key %q: kept %s from %s", conflict.Key, conflict.Kept, conflict.Winner),
		})
	}

	outcome := &ExecutionOutcome{
		Status:    statusOf(ordered),
		Results:   ordered,
		Conflicts: conflicts,
		Duration:  time.Since(start),
	}

	if outcome.Status == StatusTotalFailure {
		c.record(journal.Record{
			ChainID:   ectx.ChainID(),
			EventName: eventName,
			Kind:      journal.KindTotalFailure,
			Message:   fmt.Sprintf("all %d handlers failed", len(ordered)),
			Duration:  outcome.Duration,
		})
	}

	c.metrics.RecordGroupExecution(ctx, eventName, outcome.Status.String(), outcome.Duration)
	c.spans.EndSpanWithError(groupSpan, nil)
	return outcome, nil
}

// withGroupTimeout derives the group execution context.
func (c *Coordinator) withGroupTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.groupTimeout > 0 {
		return context.WithTimeout(ctx, c.groupTimeout)
	}
	return context.WithCancel(ctx)
}

// collect drains unit results until all arrive or the group context
// expires. On expiry it grabs whatever already finished and stops
// waiting; the caller marks the rest as timeouts.
func (c *Coordinator) collect(groupCtx context.Context, results <-chan HandlerResult, total int) map[string]HandlerResult {
	collected := make(map[string]HandlerResult, total)
	for len(collected) < total {
		select {
		case res, ok := <-results:
			if !ok {
				return collected
			}
			collected[res.Output] = res
		case <-groupCtx.Done():
			for {
				select {
				case res, ok := <-results:
					if !ok {
						return collected
					}
					collected[res.Output] = res
					continue
				default:
				}
				break
			}
			return collected
		}
	}
	return collected
}

// runUnit executes one unit with its own timeout, panic recovery, and
// optional concurrency gate. It always returns a result; errors never
// escape the unit boundary.
//
// The handler body runs in its own goroutine so a unit that ignores
// cancellation still gets recorded as a timeout on schedule; the
// goroutine is abandoned and exits when the body returns.
func (c *Coordinator) runUnit(groupCtx context.Context, eventName string, u unit, data Payload, sem *semaphore.Weighted) HandlerResult {
	start := time.Now()
	output := u.entry.Output

	if sem != nil {
		if err := sem.Acquire(groupCtx, 1); err != nil {
			return c.finishUnit(groupCtx, eventName, u, HandlerResult{
				Output:   output,
				Failure:  &Failure{Kind: FailureKindTimeout, Message: "cancelled before start: " + err.Error()},
				Duration: time.Since(start),
			})
		}
		defer sem.Release(1)
	}

	unitCtx := groupCtx
	if u.timeout > 0 {
		var cancel context.CancelFunc
		unitCtx, cancel = context.WithTimeout(groupCtx, u.timeout)
		defer cancel()
	}

	spanCtx, span := c.spans.StartHandlerSpan(unitCtx, output)
	observability.LogHandlerStart(c.logger, output)

	done := make(chan HandlerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if c.logger != nil {
					c.logger.Error("handler panicked",
						slog.String("output", output),
						slog.Any("value", r),
						slog.String("stack", string(debug.Stack())),
					)
				}
				done <- HandlerResult{
					Output:  output,
					Failure: &Failure{Kind: FailureKindError, Message: fmt.Sprintf("panic: %v", r)},
				}
			}
		}()

		v, err := u.handler.Invoke(spanCtx, data, u.uc)
		if err != nil {
			kind := FailureKindError
			if errors.Is(err, context.DeadlineExceeded) {
				kind = FailureKindTimeout
			}
			done <- HandlerResult{
				Output:  output,
				Failure: &Failure{Kind: kind, Message: err.Error()},
			}
			return
		}
		done <- HandlerResult{Output: output, Value: v}
	}()

	var res HandlerResult
	select {
	case res = <-done:
		res.Duration = time.Since(start)
	case <-unitCtx.Done():
		res = HandlerResult{
			Output:   output,
			Failure:  &Failure{Kind: FailureKindTimeout, Message: timeoutMessage(unitCtx)},
			Duration: time.Since(start),
		}
	}

	var spanErr error
	if res.Failed() {
		spanErr = errors.New(res.Failure.Message)
	}
	c.spans.EndSpanWithError(span, spanErr)
	return c.finishUnit(groupCtx, eventName, u, res)
}

// finishUnit records diagnostics for a completed unit.
func (c *Coordinator) finishUnit(ctx context.Context, eventName string, u unit, res HandlerResult) HandlerResult {
	durationMs := float64(res.Duration.Milliseconds())

	if res.Failed() {
		observability.LogHandlerFailure(c.logger, res.Output, res.Failure.Kind, res.Failure.Message, durationMs)
		c.metrics.RecordHandlerExecution(ctx, res.Output, res.Duration, res.Failure.Kind)
		if res.Failure.Kind == FailureKindTimeout {
			c.record(journal.Record{
				ChainID:    u.uc.ChainID(),
				EventName:  eventName,
				OutputName: res.Output,
				Kind:       journal.KindHandlerTimeout,
				Message:    res.Failure.Message,
				Duration:   res.Duration,
			})
		}
		return res
	}

	observability.LogHandlerComplete(c.logger, res.Output, durationMs)
	c.metrics.RecordHandlerExecution(ctx, res.Output, res.Duration, "")
	c.record(journal.Record{
		ChainID:    u.uc.ChainID(),
		EventName:  eventName,
		OutputName: res.Output,
		Kind:       journal.KindHandlerDuration,
		Duration:   res.Duration,
	})
	return res
}

// expiredResult builds the timeout result for a unit the collector
// never heard from.
func (c *Coordinator) expiredResult(groupCtx context.Context, eventName string, u unit, elapsed time.Duration) HandlerResult {
	res := HandlerResult{
		Output:   u.entry.Output,
		Failure:  &Failure{Kind: FailureKindTimeout, Message: timeoutMessage(groupCtx)},
		Duration: elapsed,
	}
	observability.LogHandlerFailure(c.logger, res.Output, res.Failure.Kind, res.Failure.Message, float64(elapsed.Milliseconds()))
	c.record(journal.Record{
		ChainID:    u.uc.ChainID(),
		EventName:  eventName,
		OutputName: res.Output,
		Kind:       journal.KindHandlerTimeout,
		Message:    res.Failure.Message,
		Duration:   elapsed,
	})
	return res
}

// timeoutMessage describes why a context ended.
func timeoutMessage(ctx context.Context) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout elapsed"
	case errors.Is(ctx.Err(), context.Canceled):
		return "cancelled"
	default:
		return "timeout elapsed"
	}
}

// record appends a diagnostic record to the sink, logging failures.
func (c *Coordinator) record(rec journal.Record) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Append(rec); err != nil && c.logger != nil {
		c.logger.Warn("journal append failed", slog.String("error", err.Error()))
	}
}
