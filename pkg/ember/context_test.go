package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExecutionContext_SnapshotIsolation tests snapshots never see later writes.
func TestExecutionContext_SnapshotIsolation(t *testing.T) {
	ectx := NewExecutionContext()
	ectx.Set("k", Int(1))

	snap := ectx.Snapshot()
	ectx.Set("k", Int(2))
	ectx.Set("new", Int(3))

	v, ok := snap.Get("k")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(1)))
	_, ok = snap.Get("new")
	assert.False(t, ok)
}

// TestUnitContext_WritesArePrivate tests no unit observes a sibling's writes.
func TestUnitContext_WritesArePrivate(t *testing.T) {
	ectx := NewExecutionContext()
	ectx.Set("shared", Int(1))
	snap := ectx.Snapshot()

	a := snap.Fork("a")
	b := snap.Fork("b")

	a.Set("shared", Int(100))
	a.Set("only_a", Int(7))

	// b still sees the snapshot.
	v, ok := b.Get("shared")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(1)))
	_, ok = b.Get("only_a")
	assert.False(t, ok)

	// a reads its own write.
	v, _ = a.Get("shared")
	assert.True(t, v.Equal(Int(100)))

	// The parent is untouched until reconciliation.
	v, _ = ectx.Get("shared")
	assert.True(t, v.Equal(Int(1)))
}

// TestUnitContext_Spawn tests nested emission contexts.
func TestUnitContext_Spawn(t *testing.T) {
	ectx := NewExecutionContext(WithChainID("chain-1"))
	ectx.Set("base", Int(1))
	uc := ectx.Snapshot().Fork("a")
	uc.Set("mine", Int(2))

	child := uc.Spawn()

	assert.Equal(t, "chain-1", child.ChainID())
	assert.Equal(t, 1, child.Depth())

	v, ok := child.Get("base")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(1)))
	v, ok = child.Get("mine")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(2)))

	// The child is independent state.
	child.Set("base", Int(99))
	v, _ = ectx.Get("base")
	assert.True(t, v.Equal(Int(1)))
}

// TestReconcile_FirstDeclaredWins tests the default conflict policy.
func TestReconcile_FirstDeclaredWins(t *testing.T) {
	ectx := NewExecutionContext()
	snap := ectx.Snapshot()

	a := snap.Fork("a")
	b := snap.Fork("b")
	a.Set("k", Int(1))
	b.Set("k", Int(2))
	b.Set("other", Int(3))

	conflicts, err := reconcile(ectx, []*UnitContext{a, b}, MergeFirstDeclaredWins)
	require.NoError(t, err)

	v, _ := ectx.Get("k")
	assert.True(t, v.Equal(Int(1))) // a declared first
	v, _ = ectx.Get("other")
	assert.True(t, v.Equal(Int(3)))

	require.Len(t, conflicts, 1)
	assert.Equal(t, "k", conflicts[0].Key)
	assert.Equal(t, "a", conflicts[0].Winner)
	assert.Equal(t, "b", conflicts[0].Loser)
	assert.True(t, conflicts[0].Kept.Equal(Int(1)))
	assert.True(t, conflicts[0].Dropped.Equal(Int(2)))
}

// TestReconcile_EqualWritesNotConflict tests identical values never conflict.
func TestReconcile_EqualWritesNotConflict(t *testing.T) {
	ectx := NewExecutionContext()
	snap := ectx.Snapshot()

	a := snap.Fork("a")
	b := snap.Fork("b")
	a.Set("k", String("same"))
	b.Set("k", String("same"))

	conflicts, err := reconcile(ectx, []*UnitContext{a, b}, MergeErrorOnConflict)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	v, _ := ectx.Get("k")
	assert.True(t, v.Equal(String("same")))
}

// TestReconcile_ErrorOnConflict tests the strict policy fails the merge.
func TestReconcile_ErrorOnConflict(t *testing.T) {
	ectx := NewExecutionContext()
	snap := ectx.Snapshot()

	a := snap.Fork("a")
	b := snap.Fork("b")
	a.Set("k", Int(1))
	b.Set("k", Int(2))

	_, err := reconcile(ectx, []*UnitContext{a, b}, MergeErrorOnConflict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContextConflict)

	var conflict *ContextConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "k", conflict.Key)
	assert.Equal(t, "a", conflict.First)
	assert.Equal(t, "b", conflict.Second)
}

// TestParseMergePolicy tests configuration round-trips.
func TestParseMergePolicy(t *testing.T) {
	p, err := ParseMergePolicy("first-declared-wins")
	require.NoError(t, err)
	assert.Equal(t, MergeFirstDeclaredWins, p)

	p, err = ParseMergePolicy("error-on-conflict")
	require.NoError(t, err)
	assert.Equal(t, MergeErrorOnConflict, p)

	// Empty means default.
	p, err = ParseMergePolicy("")
	require.NoError(t, err)
	assert.Equal(t, MergeFirstDeclaredWins, p)

	_, err = ParseMergePolicy("last-write-wins")
	assert.Error(t, err)

	assert.Equal(t, "first-declared-wins", MergeFirstDeclaredWins.String())
	assert.Equal(t, "error-on-conflict", MergeErrorOnConflict.String())
}

// TestExecutionContext_Options tests construction options.
func TestExecutionContext_Options(t *testing.T) {
	ectx := NewExecutionContext(
		WithChainID("fixed"),
		WithContextValues(map[string]Value{"seed": Int(1)}),
	)

	assert.Equal(t, "fixed", ectx.ChainID())
	assert.Equal(t, 0, ectx.Depth())
	v, ok := ectx.Get("seed")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(1)))
}

// TestExecutionContext_GeneratedChainID tests each root gets a unique id.
func TestExecutionContext_GeneratedChainID(t *testing.T) {
	a := NewExecutionContext()
	b := NewExecutionContext()
	assert.NotEmpty(t, a.ChainID())
	assert.NotEqual(t, a.ChainID(), b.ChainID())
}
