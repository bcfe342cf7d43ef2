package event

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// Bus is an in-memory subscription registry with ordered, synchronous
// delivery. Subscribers for a type are invoked one at a time in
// subscription order; an error from one subscriber halts the remaining
// invocations and propagates to the publisher (fail fast). This
// preserves legacy sequential handler semantics.
type Bus struct {
	mu     sync.RWMutex
	byType map[string][]*subscription

	nextID atomic.Int64
	closed atomic.Bool
}

// NewBus creates a new bus.
func NewBus() *Bus {
	return &Bus{
		byType: make(map[string][]*subscription),
	}
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()

	// Pause temporarily stops delivery.
	Pause()

	// Resume continues delivery after pause.
	Resume()

	// IsPaused returns true if the subscription is paused.
	IsPaused() bool
}

// subscription is an internal subscription implementation.
type subscription struct {
	id        string
	eventType string
	handler   Handler
	paused    atomic.Bool
	bus       *Bus
}

// Subscribe registers a handler for an event type. Delivery order
// equals subscription order.
func (b *Bus) Subscribe(eventType string, handler Handler) Subscription {
	if b.closed.Load() {
		return nil
	}

	sub := &subscription{
		id:        strconv.FormatInt(b.nextID.Add(1), 10),
		eventType: eventType,
		handler:   handler,
		bus:       b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[eventType] = append(b.byType[eventType], sub)
	return sub
}

// Subscribers returns the active handlers for an event type in
// subscription order, skipping paused subscriptions.
func (b *Bus) Subscribers(eventType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.byType[eventType]
	handlers := make([]Handler, 0, len(subs))
	for _, sub := range subs {
		if sub.paused.Load() {
			continue
		}
		handlers = append(handlers, sub.handler)
	}
	return handlers
}

// Publish delivers an event to all subscribers of its type, one at a
// time in subscription order. The first subscriber error stops
// delivery and is returned.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if b.closed.Load() {
		return &EventError{Type: evt.Meta.Type, Message: "bus is closed"}
	}

	for _, h := range b.Subscribers(evt.Meta.Type) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.Handle(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the bus. Subsequent Subscribe and Publish calls
// fail; existing subscriptions are released.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType = make(map[string][]*subscription)
	return nil
}

// Unsubscribe removes the subscription.
func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.byType[s.eventType]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.byType[s.eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Pause temporarily stops delivery.
func (s *subscription) Pause() {
	s.paused.Store(true)
}

// Resume continues delivery after pause.
func (s *subscription) Resume() {
	s.paused.Store(false)
}

// IsPaused returns true if the subscription is paused.
func (s *subscription) IsPaused() bool {
	return s.paused.Load()
}
