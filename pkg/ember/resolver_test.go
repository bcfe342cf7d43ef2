package ember

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constHandler returns a fixed value.
func constHandler(v Value) Handler {
	return HandlerFunc(func(ctx context.Context, data Payload, uc *UnitContext) (Value, error) {
		return v, nil
	})
}

// TestResolver_Classify_SplitsParams tests the data/handler partition.
func TestResolver_Classify_SplitsParams(t *testing.T) {
	registry := NewHandlerRegistry()
	ref := registry.Register("calc", constHandler(Int(1)))

	r := NewResolver(registry)
	data, group, err := r.Classify([]Param{
		{Name: "x", Value: Int(5)},
		{Name: "a", Value: HandlerValue(ref)},
		{Name: "label", Value: String("hi")},
		{Name: "b", Value: HandlerValue(ref)},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "label"}, data.Keys())
	assert.Equal(t, []string{"a", "b"}, group.Outputs())
}

// TestResolver_Classify_AllData tests a pure-data call yields an empty group.
func TestResolver_Classify_AllData(t *testing.T) {
	r := NewResolver(NewHandlerRegistry())

	data, group, err := r.Classify([]Param{
		{Name: "x", Value: Int(1)},
		{Name: "y", Value: String("s")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, group.Len())
	assert.Equal(t, 2, data.Len())
}

// TestResolver_Classify_UnknownHandler tests unresolvable refs are fatal.
func TestResolver_Classify_UnknownHandler(t *testing.T) {
	r := NewResolver(NewHandlerRegistry())

	_, _, err := r.Classify([]Param{
		{Name: "a", Value: HandlerValue(RefNamed("nope"))},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownHandler)
}

// TestResolver_Classify_DuplicateOutput tests duplicate names are fatal.
func TestResolver_Classify_DuplicateOutput(t *testing.T) {
	registry := NewHandlerRegistry()
	ref := registry.Register("calc", constHandler(Int(1)))

	r := NewResolver(registry)
	_, _, err := r.Classify([]Param{
		{Name: "a", Value: HandlerValue(ref)},
		{Name: "a", Value: HandlerValue(ref)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateOutput)
}

// TestResolver_ClassifyCallSite_CachesShape tests repeated sites reuse the partition.
func TestResolver_ClassifyCallSite_CachesShape(t *testing.T) {
	registry := NewHandlerRegistry()
	ref := registry.Register("calc", constHandler(Int(1)))

	r := NewResolver(registry)
	params := []Param{
		{Name: "x", Value: Int(5)},
		{Name: "a", Value: HandlerValue(ref)},
	}

	for i := 0; i < 3; i++ {
		data, group, err := r.ClassifyCallSite("site-1", params)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, data.Keys())
		assert.Equal(t, []string{"a"}, group.Outputs())
	}
}

// TestResolver_ClassifyCallSite_EmptyID tests an empty id skips the cache.
func TestResolver_ClassifyCallSite_EmptyID(t *testing.T) {
	registry := NewHandlerRegistry()
	ref := registry.Register("calc", constHandler(Int(1)))

	r := NewResolver(registry)
	_, group, err := r.ClassifyCallSite("", []Param{
		{Name: "a", Value: HandlerValue(ref)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, group.Len())
}

// TestHandlerRegistry_Lifecycle tests register, resolve, unregister.
func TestHandlerRegistry_Lifecycle(t *testing.T) {
	registry := NewHandlerRegistry()

	named := registry.Register("calc", constHandler(Int(1)))
	cb := registry.RegisterCallback(constHandler(Int(2)))
	assert.Equal(t, 2, registry.Len())
	assert.True(t, registry.Has(named))
	assert.True(t, registry.Has(cb))
	assert.False(t, named.Equal(cb))

	h, _, err := registry.Resolve(named)
	require.NoError(t, err)
	v, err := h.Invoke(context.Background(), Payload{}, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(1)))

	registry.Unregister(named)
	assert.False(t, registry.Has(named))
	_, _, err = registry.Resolve(named)
	assert.ErrorIs(t, err, ErrUnknownHandler)

	// Callbacks survive unrelated unregistration.
	assert.True(t, registry.Has(cb))
}

// TestHandlerRegistry_DeclaredTimeout tests per-registration timeouts resolve.
func TestHandlerRegistry_DeclaredTimeout(t *testing.T) {
	registry := NewHandlerRegistry()
	ref := registry.Register("slow", constHandler(Nil()), WithDeclaredTimeout(5))

	_, timeout, err := registry.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, int64(5), int64(timeout))
}

// TestHandlerGroup_Duplicates tests group construction rejects repeats.
func TestHandlerGroup_Duplicates(t *testing.T) {
	_, err := NewHandlerGroup(
		GroupEntry{Output: "a", Ref: RefNamed("h")},
		GroupEntry{Output: "a", Ref: RefNamed("g")},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateOutput)
}

// TestHandlerGroup_NilSafe tests nil-group accessors.
func TestHandlerGroup_NilSafe(t *testing.T) {
	var g *HandlerGroup
	assert.Equal(t, 0, g.Len())
	assert.Nil(t, g.Entries())
	assert.Nil(t, g.Outputs())
	assert.False(t, g.Has("x"))
}
