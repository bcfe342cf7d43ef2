package ember

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MergePolicy selects how concurrent context writes are reconciled
// after a group completes.
type MergePolicy int

const (
	// MergeFirstDeclaredWins keeps the write of the unit whose output
	// name appears earliest in declaration order. Conflicting writes
	// are recorded as non-fatal ContextConflict diagnostics.
	MergeFirstDeclaredWins MergePolicy = iota

	// MergeErrorOnConflict fails the whole group execution when two
	// units write different values to the same key.
	MergeErrorOnConflict
)

// String returns the policy's configuration name.
func (p MergePolicy) String() string {
	switch p {
	case MergeFirstDeclaredWins:
		return "first-declared-wins"
	case MergeErrorOnConflict:
		return "error-on-conflict"
	default:
		return "unknown"
	}
}

// ParseMergePolicy parses a configuration string into a MergePolicy.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "", "first-declared-wins":
		return MergeFirstDeclaredWins, nil
	case "error-on-conflict":
		return MergeErrorOnConflict, nil
	default:
		return MergeFirstDeclaredWins, fmt.Errorf("unknown merge policy %q", s)
	}
}

// ExecutionContext carries copy-on-write state across a logical call
// chain: correlation id, accumulated diagnostics, caller-supplied
// state. It is created at the root of a causal chain; parallel groups
// execute from frozen snapshots and their writes are reconciled back
// after the group completes.
//
// ExecutionContext is safe for concurrent reads; writes happen only at
// reconciliation points and through the owning dispatcher.
type ExecutionContext struct {
	chainID string
	depth   int

	mu     sync.RWMutex
	values map[string]Value
}

// ContextOption configures a new ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithChainID sets the causal-chain id. Auto-generated if not set.
func WithChainID(id string) ContextOption {
	return func(c *ExecutionContext) {
		c.chainID = id
	}
}

// WithContextValues seeds the context with caller-supplied state.
func WithContextValues(values map[string]Value) ContextOption {
	return func(c *ExecutionContext) {
		for k, v := range values {
			c.values[k] = v
		}
	}
}

// NewExecutionContext creates the root context of a causal chain.
func NewExecutionContext(opts ...ContextOption) *ExecutionContext {
	ec := &ExecutionContext{
		chainID: uuid.New().String(),
		values:  make(map[string]Value),
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// ChainID returns the causal-chain identifier.
func (c *ExecutionContext) ChainID() string {
	return c.chainID
}

// Depth returns the emission depth of this context within its chain.
// The root context has depth 0.
func (c *ExecutionContext) Depth() int {
	return c.depth
}

// Get returns the value for a key and whether it exists.
func (c *ExecutionContext) Get(key string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores a value. Intended for the chain owner between emissions;
// concurrent handler units must write through their UnitContext.
func (c *ExecutionContext) Set(key string, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = v
}

// Snapshot returns a frozen copy of the current state. Snapshots never
// observe writes made after creation.
func (c *ExecutionContext) Snapshot() *ContextSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	frozen := make(map[string]Value, len(c.values))
	for k, v := range c.values {
		frozen[k] = v
	}
	return &ContextSnapshot{
		chainID: c.chainID,
		depth:   c.depth,
		values:  frozen,
	}
}

// ContextSnapshot is a frozen copy of an ExecutionContext, shared
// read-only by every unit of a parallel group.
type ContextSnapshot struct {
	chainID string
	depth   int
	values  map[string]Value
}

// ChainID returns the causal-chain identifier.
func (s *ContextSnapshot) ChainID() string {
	return s.chainID
}

// Depth returns the emission depth at snapshot time.
func (s *ContextSnapshot) Depth() int {
	return s.depth
}

// Get returns the value for a key and whether it exists.
func (s *ContextSnapshot) Get(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Fork creates the private view for one execution unit. Each unit
// reads through the shared snapshot and records its own writes; no
// unit ever observes another unit's in-flight writes.
func (s *ContextSnapshot) Fork(output string) *UnitContext {
	return &UnitContext{
		snapshot: s,
		output:   output,
		writes:   make(map[string]Value),
	}
}

// ContextWrite is one recorded write from a unit.
type ContextWrite struct {
	Key   string
	Value Value
}

// UnitContext is the copy-on-write view handed to a single execution
// unit. Reads see the snapshot overlaid with the unit's own writes.
// It is safe for concurrent use, though a unit normally owns it alone.
type UnitContext struct {
	snapshot *ContextSnapshot
	output   string

	mu     sync.Mutex
	order  []string
	writes map[string]Value
}

// Output returns the output name of the unit this context belongs to.
func (u *UnitContext) Output() string {
	return u.output
}

// ChainID returns the causal-chain identifier.
func (u *UnitContext) ChainID() string {
	return u.snapshot.chainID
}

// Get returns the value for a key, preferring the unit's own writes.
func (u *UnitContext) Get(key string) (Value, bool) {
	u.mu.Lock()
	if v, ok := u.writes[key]; ok {
		u.mu.Unlock()
		return v, true
	}
	u.mu.Unlock()
	return u.snapshot.Get(key)
}

// Set records a write. The write is private to the unit until the
// coordinator reconciles it after the whole group completes.
func (u *UnitContext) Set(key string, v Value) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.writes[key]; !ok {
		u.order = append(u.order, key)
	}
	u.writes[key] = v
}

// Spawn derives a child ExecutionContext for a nested emission made
// from inside this unit. The child shares the chain id, sees the
// unit's current view, and sits one emission level deeper.
func (u *UnitContext) Spawn() *ExecutionContext {
	u.mu.Lock()
	defer u.mu.Unlock()

	values := make(map[string]Value, len(u.snapshot.values)+len(u.writes))
	for k, v := range u.snapshot.values {
		values[k] = v
	}
	for k, v := range u.writes {
		values[k] = v
	}
	return &ExecutionContext{
		chainID: u.snapshot.chainID,
		depth:   u.snapshot.depth + 1,
		values:  values,
	}
}

// recorded returns the unit's writes in write order.
func (u *UnitContext) recorded() []ContextWrite {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]ContextWrite, 0, len(u.order))
	for _, k := range u.order {
		out = append(out, ContextWrite{Key: k, Value: u.writes[k]})
	}
	return out
}

// ContextConflict records two units writing different values to one
// key. Under first-declared-wins it is a diagnostic; under
// error-on-conflict it escalates to a ContextConflictError.
type ContextConflict struct {
	// Key is the contested context key.
	Key string
	// Winner is the output name whose value was kept.
	Winner string
	// Loser is the output name whose value was dropped.
	Loser string
	// Kept is the winning value.
	Kept Value
	// Dropped is the discarded value.
	Dropped Value
}

// reconcile merges recorded unit writes back into the base context.
// Units must be given in declaration order; under first-declared-wins
// the earliest-declared unit owns a contested key. Writes of equal
// value are not conflicts.
func reconcile(base *ExecutionContext, units []*UnitContext, policy MergePolicy) ([]ContextConflict, error) {
	claimed := make(map[string]int) // key -> index of owning unit
	merged := make(map[string]Value)
	var conflicts []ContextConflict

	for i, unit := range units {
		for _, w := range unit.recorded() {
			owner, taken := claimed[w.Key]
			if !taken {
				claimed[w.Key] = i
				merged[w.Key] = w.Value
				continue
			}
			if merged[w.Key].Equal(w.Value) {
				continue
			}
			if policy == MergeErrorOnConflict {
				return nil, &ContextConflictError{
					Key:    w.Key,
					First:  units[owner].output,
					Second: unit.output,
				}
			}
			conflicts = append(conflicts, ContextConflict{
				Key:     w.Key,
				Winner:  units[owner].output,
				Loser:   unit.output,
				Kept:    merged[w.Key],
				Dropped: w.Value,
			})
		}
	}

	base.mu.Lock()
	for k, v := range merged {
		base.values[k] = v
	}
	base.mu.Unlock()

	return conflicts, nil
}
