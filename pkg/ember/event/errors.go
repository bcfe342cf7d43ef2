package event

import "fmt"

// EventError wraps bus-level delivery failures with event context.
type EventError struct {
	// Type is the event type being published.
	Type string
	// Message describes the failure.
	Message string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event %s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("event %s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *EventError) Unwrap() error {
	return e.Err
}
