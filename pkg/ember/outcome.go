package ember

import (
	"time"
)

// Status classifies an ExecutionOutcome.
type Status int

const (
	// StatusSuccess means every handler in the group succeeded.
	StatusSuccess Status = iota
	// StatusPartialFailure means some handlers succeeded and some
	// failed or timed out; successful results are still usable.
	StatusPartialFailure
	// StatusTotalFailure means no handler succeeded.
	StatusTotalFailure
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartialFailure:
		return "partial_failure"
	case StatusTotalFailure:
		return "total_failure"
	default:
		return "unknown"
	}
}

// Failure kinds recorded per handler unit.
const (
	// FailureKindError marks a handler that returned an error or
	// panicked.
	FailureKindError = "HandlerExecutionError"

	// FailureKindTimeout marks a handler cancelled by its per-handler
	// timeout or still outstanding when the group timeout elapsed.
	FailureKindTimeout = "HandlerExecutionTimeout"
)

// Failure describes why a handler unit produced no value.
type Failure struct {
	// Kind is one of the FailureKind constants.
	Kind string
	// Message is the underlying error text.
	Message string
}

// HandlerResult is the outcome of one handler invocation within one
// group execution. Exactly one of Value and Failure is meaningful.
type HandlerResult struct {
	// Output is the group entry name this result belongs to.
	Output string
	// Value is the handler's return value on success.
	Value Value
	// Failure is set if the handler failed or timed out.
	Failure *Failure
	// Duration is how long the unit ran.
	Duration time.Duration
}

// Failed reports whether the unit produced a failure.
func (r HandlerResult) Failed() bool {
	return r.Failure != nil
}

// ExecutionOutcome aggregates one coordinator invocation.
type ExecutionOutcome struct {
	// Status classifies the aggregate.
	Status Status
	// Results holds one entry per group member in declaration order.
	Results []HandlerResult
	// Conflicts are the non-fatal context conflicts observed during
	// reconciliation.
	Conflicts []ContextConflict
	// Duration is the wall-clock time of the whole group execution.
	Duration time.Duration
}

// Result returns the result for an output name.
func (o *ExecutionOutcome) Result(output string) (HandlerResult, bool) {
	for _, r := range o.Results {
		if r.Output == output {
			return r, true
		}
	}
	return HandlerResult{}, false
}

// Failures returns the failed results in declaration order.
func (o *ExecutionOutcome) Failures() []HandlerResult {
	var out []HandlerResult
	for _, r := range o.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// statusOf derives the aggregate status from per-unit results.
func statusOf(results []HandlerResult) Status {
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusSuccess
	case failed == len(results):
		return StatusTotalFailure
	default:
		return StatusPartialFailure
	}
}
