// Package journal provides persistent storage for runtime diagnostics:
// per-handler durations, timeouts, context conflicts, and aggregate
// failures, keyed by causal chain.
package journal

import (
	"errors"
	"time"
)

// Record kinds written by the runtime.
const (
	// KindHandlerDuration records how long one handler unit ran.
	KindHandlerDuration = "handler.duration"

	// KindHandlerTimeout records a unit cancelled by a timeout.
	KindHandlerTimeout = "handler.timeout"

	// KindContextConflict records two units contesting a context key.
	KindContextConflict = "context.conflict"

	// KindTotalFailure records a group in which no handler succeeded.
	KindTotalFailure = "group.total_failure"
)

// Record is one structured diagnostic entry.
type Record struct {
	// ChainID is the causal chain the record belongs to.
	ChainID string
	// EventName is the emission that produced the record.
	EventName string
	// OutputName is the group entry involved, if any.
	OutputName string
	// Kind is one of the Kind constants.
	Kind string
	// Message carries free-form detail.
	Message string
	// Duration is the measured duration, if applicable.
	Duration time.Duration
	// Timestamp is when the record was created.
	Timestamp time.Time
}

// Store persists diagnostic records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores a record. A zero Timestamp is filled in.
	Append(rec Record) error

	// List returns all records for a chain in append order.
	// Returns empty slice (not error) if the chain has no records.
	List(chainID string) ([]Record, error)

	// Prune removes records older than the cutoff.
	Prune(before time.Time) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for journal operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")
)
