package ember

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Param is one ordered call parameter: a name and a resolved value.
// The front end produces these; the runtime never parses source text.
type Param struct {
	Name  string
	Value Value
}

// callSiteShape caches the static partition of a call site's
// parameters. Only argument values vary across invocations of one
// site, so the data/handler split can be reused.
type callSiteShape struct {
	handlerIdx map[int]bool
}

const defaultShapeCacheSize = 512

// Resolver classifies an emission's parameters into plain data fields
// and a parallel handler group. It is safe for concurrent use.
type Resolver struct {
	registry *HandlerRegistry
	shapes   *lru.Cache[string, *callSiteShape]
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithShapeCacheSize sets the call-site cache capacity.
func WithShapeCacheSize(n int) ResolverOption {
	return func(r *Resolver) {
		if cache, err := lru.New[string, *callSiteShape](n); err == nil {
			r.shapes = cache
		}
	}
}

// NewResolver creates a resolver backed by the given handler registry.
func NewResolver(registry *HandlerRegistry, opts ...ResolverOption) *Resolver {
	r := &Resolver{registry: registry}
	r.shapes, _ = lru.New[string, *callSiteShape](defaultShapeCacheSize)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify splits parameters into a data payload and a handler group,
// both preserving declaration order. A parameter is a handler
// parameter iff its value holds a HandlerRef; everything else becomes
// a data field.
//
// Errors are fatal to the call: UnknownHandlerError if a reference
// does not resolve, DuplicateOutputError if two handler parameters
// share a name.
func (r *Resolver) Classify(params []Param) (Payload, *HandlerGroup, error) {
	return r.classify(params, nil)
}

// ClassifyCallSite is Classify with a stable call-site id, allowing
// the data/handler partition to be cached across repeated invocations
// of the same site.
func (r *Resolver) ClassifyCallSite(siteID string, params []Param) (Payload, *HandlerGroup, error) {
	if siteID == "" || r.shapes == nil {
		return r.classify(params, nil)
	}

	if shape, ok := r.shapes.Get(siteID); ok && len(shape.handlerIdx) <= len(params) {
		return r.classify(params, shape)
	}

	shape := &callSiteShape{handlerIdx: make(map[int]bool)}
	for i, p := range params {
		if p.Value.Kind() == KindHandler {
			shape.handlerIdx[i] = true
		}
	}
	data, group, err := r.classify(params, shape)
	if err == nil {
		r.shapes.Add(siteID, shape)
	}
	return data, group, err
}

func (r *Resolver) classify(params []Param, shape *callSiteShape) (Payload, *HandlerGroup, error) {
	fields := make([]Field, 0, len(params))
	entries := make([]GroupEntry, 0, len(params))

	for i, p := range params {
		isHandler := p.Value.Kind() == KindHandler
		if shape != nil {
			isHandler = shape.handlerIdx[i]
		}
		if !isHandler {
			fields = append(fields, Field{Name: p.Name, Value: p.Value})
			continue
		}

		ref, err := p.Value.AsHandler()
		if err != nil {
			return Payload{}, nil, err
		}
		if _, _, err := r.registry.Resolve(ref); err != nil {
			return Payload{}, nil, err
		}
		entries = append(entries, GroupEntry{Output: p.Name, Ref: ref})
	}

	group, err := NewHandlerGroup(entries...)
	if err != nil {
		return Payload{}, nil, err
	}
	return NewPayload(fields...), group, nil
}
