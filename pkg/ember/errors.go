package ember

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for parameter classification.
var (
	// ErrUnknownHandler indicates a handler reference that resolves to
	// no registered callable.
	ErrUnknownHandler = errors.New("unknown handler reference")

	// ErrDuplicateOutput indicates two handler parameters sharing an
	// output name.
	ErrDuplicateOutput = errors.New("duplicate output name")
)

// Sentinel errors for execution and merging.
var (
	// ErrTypeMismatch indicates a typed accessor was used on a value of
	// a different kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrReservedKey indicates a group output name collides with an
	// existing payload field.
	ErrReservedKey = errors.New("reserved key conflict")

	// ErrContextConflict indicates two handlers wrote different values
	// to the same context key under the error-on-conflict policy.
	ErrContextConflict = errors.New("context conflict")

	// ErrTotalFailure indicates every handler in a group failed.
	ErrTotalFailure = errors.New("all handlers in group failed")

	// ErrRecursionLimit indicates the emission depth limit was exceeded.
	ErrRecursionLimit = errors.New("emission depth limit exceeded")

	// ErrGroupTimeout indicates the group-global timeout elapsed before
	// every unit finished.
	ErrGroupTimeout = errors.New("group timeout elapsed")
)

// TypeMismatchError reports a typed accessor used on the wrong kind.
type TypeMismatchError struct {
	// Want is the kind the accessor expected.
	Want Kind
	// Got is the actual kind of the value.
	Got Kind
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}

// Unwrap returns ErrTypeMismatch for errors.Is support.
func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// UnknownHandlerError reports a handler reference with no registration.
type UnknownHandlerError struct {
	// Ref is the unresolvable reference.
	Ref HandlerRef
}

// Error implements the error interface.
func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("unknown handler reference %s", e.Ref)
}

// Unwrap returns ErrUnknownHandler for errors.Is support.
func (e *UnknownHandlerError) Unwrap() error {
	return ErrUnknownHandler
}

// DuplicateOutputError reports two handler parameters with one name.
type DuplicateOutputError struct {
	// Output is the duplicated output name.
	Output string
}

// Error implements the error interface.
func (e *DuplicateOutputError) Error() string {
	return fmt.Sprintf("duplicate output name %q", e.Output)
}

// Unwrap returns ErrDuplicateOutput for errors.Is support.
func (e *DuplicateOutputError) Unwrap() error {
	return ErrDuplicateOutput
}

// ReservedKeyConflictError reports an output name colliding with an
// existing payload field during merge.
type ReservedKeyConflictError struct {
	// Key is the colliding field name.
	Key string
}

// Error implements the error interface.
func (e *ReservedKeyConflictError) Error() string {
	return fmt.Sprintf("reserved key conflict: output %q already present in payload", e.Key)
}

// Unwrap returns ErrReservedKey for errors.Is support.
func (e *ReservedKeyConflictError) Unwrap() error {
	return ErrReservedKey
}

// ContextConflictError reports conflicting context writes under the
// error-on-conflict merge policy.
type ContextConflictError struct {
	// Key is the contested context key.
	Key string
	// First is the output name of the earlier-declared writer.
	First string
	// Second is the output name of the later-declared writer.
	Second string
}

// Error implements the error interface.
func (e *ContextConflictError) Error() string {
	return fmt.Sprintf("context conflict on key %q between %q and %q", e.Key, e.First, e.Second)
}

// Unwrap returns ErrContextConflict for errors.Is support.
func (e *ContextConflictError) Unwrap() error {
	return ErrContextConflict
}

// TotalFailureError reports a group in which no handler succeeded.
// It carries the per-handler failures so callers can react to the
// aggregate through ordinary error inspection.
type TotalFailureError struct {
	// EventName is the emission that ran the group.
	EventName string
	// Failures are the failed handler results in declaration order.
	Failures []HandlerResult
}

// Error implements the error interface.
func (e *TotalFailureError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Output
	}
	return fmt.Sprintf("emission %q: all %d handlers failed (%s)",
		e.EventName, len(e.Failures), strings.Join(names, ", "))
}

// Unwrap returns ErrTotalFailure for errors.Is support.
func (e *TotalFailureError) Unwrap() error {
	return ErrTotalFailure
}

// RecursionLimitError reports a nested emission past the depth limit.
type RecursionLimitError struct {
	// Depth is the emission depth that was attempted.
	Depth int
	// Max is the configured limit.
	Max int
}

// Error implements the error interface.
func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("emission depth %d exceeds limit %d", e.Depth, e.Max)
}

// Unwrap returns ErrRecursionLimit for errors.Is support.
func (e *RecursionLimitError) Unwrap() error {
	return ErrRecursionLimit
}
