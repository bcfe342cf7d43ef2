package ember

// GroupEntry binds one output name to a handler reference.
type GroupEntry struct {
	// Output is the field name the handler's result is merged under.
	Output string
	// Ref is the handler to execute.
	Ref HandlerRef
}

// HandlerGroup is an ordered set of handlers invoked concurrently as
// parameters of one call. It is built once per call site and may be
// reused across invocations; declaration order is authoritative for
// result merging regardless of completion order.
type HandlerGroup struct {
	entries []GroupEntry
	index   map[string]int
}

// NewHandlerGroup builds a group from entries in declaration order.
// Returns a DuplicateOutputError if two entries share an output name.
func NewHandlerGroup(entries ...GroupEntry) (*HandlerGroup, error) {
	g := &HandlerGroup{
		entries: append([]GroupEntry(nil), entries...),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range g.entries {
		if _, ok := g.index[e.Output]; ok {
			return nil, &DuplicateOutputError{Output: e.Output}
		}
		g.index[e.Output] = i
	}
	return g, nil
}

// Len returns the number of entries.
func (g *HandlerGroup) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Entries returns the entries in declaration order.
// The returned slice is a copy.
func (g *HandlerGroup) Entries() []GroupEntry {
	if g == nil {
		return nil
	}
	return append([]GroupEntry(nil), g.entries...)
}

// Outputs returns the output names in declaration order.
func (g *HandlerGroup) Outputs() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.entries))
	for i, e := range g.entries {
		out[i] = e.Output
	}
	return out
}

// Has reports whether an output name exists in the group.
func (g *HandlerGroup) Has(output string) bool {
	if g == nil {
		return false
	}
	_, ok := g.index[output]
	return ok
}
