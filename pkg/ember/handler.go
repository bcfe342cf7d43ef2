package ember

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler is an opaque callable bound to an event name or a direct
// callback reference. The runtime does not care how a handler computes
// its value - only the returned value, failure, and duration matter.
//
// Implementations should honor ctx cancellation; a handler that ignores
// it keeps running past its timeout, but the coordinator stops waiting
// regardless.
type Handler interface {
	Invoke(ctx context.Context, data Payload, uc *UnitContext) (Value, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, data Payload, uc *UnitContext) (Value, error)

// Invoke implements Handler.
func (f HandlerFunc) Invoke(ctx context.Context, data Payload, uc *UnitContext) (Value, error) {
	return f(ctx, data, uc)
}

// HandlerRef is an opaque, resolvable pointer to executable logic:
// either a target event name or a callback id. Two references are
// equal iff they resolve to the same callable.
type HandlerRef struct {
	name       string
	callbackID string
}

// RefNamed returns a reference to the handler registered under an
// event name.
func RefNamed(name string) HandlerRef {
	return HandlerRef{name: name}
}

// IsZero reports whether the reference points at nothing.
func (r HandlerRef) IsZero() bool {
	return r.name == "" && r.callbackID == ""
}

// Name returns the target event name, or "" for callback references.
func (r HandlerRef) Name() string {
	return r.name
}

// Equal reports whether two references resolve to the same callable.
func (r HandlerRef) Equal(o HandlerRef) bool {
	return r.name == o.name && r.callbackID == o.callbackID
}

// String returns a debug representation.
func (r HandlerRef) String() string {
	if r.callbackID != "" {
		return "callback:" + r.callbackID
	}
	return "handler:" + r.name
}

// registration pairs a handler with its declared timeout.
// A zero timeout means "use the coordinator default".
type registration struct {
	handler Handler
	timeout time.Duration
}

// RegisterOption configures a handler registration.
type RegisterOption func(*registration)

// WithDeclaredTimeout sets a per-handler timeout that overrides the
// coordinator's per-handler default for this callable.
func WithDeclaredTimeout(d time.Duration) RegisterOption {
	return func(reg *registration) {
		reg.timeout = d
	}
}

// HandlerRegistry resolves handler references to callables.
// It is safe for concurrent use.
type HandlerRegistry struct {
	mu        sync.RWMutex
	named     map[string]registration
	callbacks map[string]registration
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		named:     make(map[string]registration),
		callbacks: make(map[string]registration),
	}
}

// Register binds a handler to an event name, replacing any previous
// binding, and returns the reference for it.
func (r *HandlerRegistry) Register(name string, h Handler, opts ...RegisterOption) HandlerRef {
	reg := registration{handler: h}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.named[name] = reg
	return RefNamed(name)
}

// RegisterCallback binds an anonymous handler and returns a callback
// reference for it. Callback ids are unique per registration.
func (r *HandlerRegistry) RegisterCallback(h Handler, opts ...RegisterOption) HandlerRef {
	reg := registration{handler: h}
	for _, opt := range opts {
		opt(&reg)
	}

	id := uuid.New().String()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[id] = reg
	return HandlerRef{callbackID: id}
}

// Unregister removes a binding. Removing an unknown reference is a
// no-op.
func (r *HandlerRegistry) Unregister(ref HandlerRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref.callbackID != "" {
		delete(r.callbacks, ref.callbackID)
		return
	}
	delete(r.named, ref.name)
}

// Resolve returns the callable and its declared timeout for a
// reference. Returns an UnknownHandlerError if nothing is bound.
func (r *HandlerRegistry) Resolve(ref HandlerRef) (Handler, time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reg registration
	var ok bool
	if ref.callbackID != "" {
		reg, ok = r.callbacks[ref.callbackID]
	} else {
		reg, ok = r.named[ref.name]
	}
	if !ok {
		return nil, 0, &UnknownHandlerError{Ref: ref}
	}
	return reg.handler, reg.timeout, nil
}

// Has reports whether a reference resolves.
func (r *HandlerRegistry) Has(ref HandlerRef) bool {
	_, _, err := r.Resolve(ref)
	return err == nil
}

// Len returns the number of registered handlers.
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.named) + len(r.callbacks)
}
