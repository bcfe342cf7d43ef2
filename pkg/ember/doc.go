/*
Package ember implements the event runtime of the Ember language:
event emission with parameter-based parallel handler execution.

# Overview

An emission carries named parameters. Parameters holding plain data
travel to subscribers as before; parameters holding handler references
form a handler group that executes concurrently, each handler producing
one named output. The outputs merge back into the payload in the order
the parameters were declared, so concurrent execution never changes
what the caller observes.

The runtime is built around five pieces:

  - Resolver: splits parameters into the data payload and the handler
    group, validating every reference against the registry.
  - Coordinator: fans the group out across goroutines with per-handler
    and group-global timeouts, panic recovery, and failure isolation.
  - Mapper: folds handler results into the enhanced payload
    deterministically, replacing failed outputs with failure markers.
  - Dispatcher: drives the whole emission and falls back to ordered
    sequential delivery when no handler parameters are present.
  - ExecutionContext: copy-on-write shared state with deterministic
    conflict reconciliation after the group completes.

# Basic Usage

Register handlers, build a runtime, emit:

	rt, err := ember.NewRuntime(config.DefaultSettings())
	if err != nil {
	    log.Fatal(err)
	}
	defer rt.Close()

	ref := rt.Registry.Register("price.lookup", ember.HandlerFunc(
	    func(ctx context.Context, data ember.Payload, uc *ember.UnitContext) (ember.Value, error) {
	        v, _ := data.Get("sku")
	        sku, err := v.AsString()
	        if err != nil {
	            return ember.Nil(), err
	        }
	        return ember.Float(lookupPrice(sku)), nil
	    }))

	enhanced, err := rt.Dispatcher.Emit(ctx, "checkout",
	    ember.NewPayload(ember.Field{Name: "sku", Value: ember.String("A-17")}),
	    []ember.Param{{Name: "price", Value: ember.HandlerValue(ref)}},
	    nil)

The enhanced payload contains every original field plus one field per
handler parameter, in declaration order.

# Failure Semantics

One failing handler does not cancel its siblings. Its output becomes a
failure marker payload ({failed, kind, message}) and the emission
reports partial failure. Only when every handler fails does Emit return
a TotalFailureError and publish "<eventName>.error" instead of the
enhanced payload. Opt into fail-fast cancellation per coordinator with
WithFailFast.

Timeouts are enforced even against handlers that ignore their context:
an expired unit is reported as HandlerExecutionTimeout while the
goroutine's eventual result is discarded. Panics are recovered and
surfaced as handler failures with the stack attached to the log record.

# Shared Context

Handlers never mutate shared state directly. Each unit writes to its
own UnitContext; after the group completes, writes reconcile into the
parent ExecutionContext under the configured merge policy
(first-declared-wins by default, error-on-conflict opt-in). A handler
that emits further events calls UnitContext.Spawn to obtain a child
context, which also enforces the recursion depth limit.

# Observability

Structured logs carry chain_id, event, and depth on every record.
OpenTelemetry metrics: ember.handler.executions, ember.handler.latency_ms,
ember.group.runs, ember.dispatch.emissions, ember.context.conflicts.
OpenTelemetry tracing: ember.emit > ember.group > ember.handler.<output>
spans. All three default to no-ops.

# Thread Safety

  - HandlerRegistry, Bus, and Dispatcher are safe for concurrent use.
  - Payload and Value are immutable.
  - ExecutionContext is safe for concurrent use; UnitContext belongs to
    exactly one unit.

# Subpackages

  - event: typed event metadata and the synchronous ordered bus
  - config: settings resolution from YAML/JSON files
  - journal: execution diagnostics storage (memory, SQLite)
  - observability: logging, metrics, and tracing helpers
*/
package ember
