// Package event provides the emission primitives the ember dispatcher
// builds on: immutable events with correlation metadata and an ordered
// subscription bus for the sequential delivery path.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a named occurrence carrying an immutable payload.
// Events are immutable once created - any modification creates a new
// event. The payload is opaque to this package.
type Event struct {
	// Meta holds identity and correlation metadata.
	Meta Metadata
	// Data is the payload. The bus never inspects it.
	Data any
}

// Metadata contains common event metadata fields.
type Metadata struct {
	// ID is the unique event identifier.
	ID string
	// Type is the hierarchical, dot-separated event name.
	Type string
	// Source identifies the emitter.
	Source string
	// CorrelationID groups related events across a causal chain.
	CorrelationID string
	// CausationID is the ID of the event that directly caused this one.
	CausationID string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Option configures event creation.
type Option func(*Metadata)

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(m *Metadata) {
		m.ID = id
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func WithCorrelationID(id string) Option {
	return func(m *Metadata) {
		m.CorrelationID = id
	}
}

// WithCausationID sets the ID of the causing event.
func WithCausationID(id string) Option {
	return func(m *Metadata) {
		m.CausationID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(m *Metadata) {
		m.Timestamp = t
	}
}

// New creates a new event with the given type, source, and payload.
func New(eventType, source string, data any, opts ...Option) Event {
	meta := Metadata{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(&meta)
	}

	// If no correlation ID, use event ID as the root
	if meta.CorrelationID == "" {
		meta.CorrelationID = meta.ID
	}

	return Event{Meta: meta, Data: data}
}

// NewFromParent creates a new event caused by a parent event.
// It automatically inherits the correlation ID and sets causation ID.
func NewFromParent(parent Event, eventType, source string, data any, opts ...Option) Event {
	parentOpts := []Option{
		WithCorrelationID(parent.Meta.CorrelationID),
		WithCausationID(parent.Meta.ID),
	}
	return New(eventType, source, data, append(parentOpts, opts...)...)
}

// Handler processes events delivered by the bus.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
