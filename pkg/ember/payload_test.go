package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPayload_OrderPreserved tests fields keep declaration order.
func TestPayload_OrderPreserved(t *testing.T) {
	p := NewPayload(
		Field{Name: "z", Value: Int(1)},
		Field{Name: "a", Value: Int(2)},
		Field{Name: "m", Value: Int(3)},
	)

	assert.Equal(t, []string{"z", "a", "m"}, p.Keys())
}

// TestPayload_RepeatedName tests a repeated name keeps first position, last value.
func TestPayload_RepeatedName(t *testing.T) {
	p := NewPayload(
		Field{Name: "a", Value: Int(1)},
		Field{Name: "b", Value: Int(2)},
		Field{Name: "a", Value: Int(3)},
	)

	assert.Equal(t, []string{"a", "b"}, p.Keys())
	v, ok := p.Get("a")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(3)))
}

// TestPayload_With_DoesNotMutate tests With returns a copy.
func TestPayload_With_DoesNotMutate(t *testing.T) {
	orig := NewPayload(Field{Name: "a", Value: Int(1)})

	next := orig.With("b", Int(2))

	assert.Equal(t, 1, orig.Len())
	assert.False(t, orig.Has("b"))
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, []string{"a", "b"}, next.Keys())
}

// TestPayload_With_ExistingKeepsPosition tests overwriting keeps order.
func TestPayload_With_ExistingKeepsPosition(t *testing.T) {
	p := NewPayload(
		Field{Name: "a", Value: Int(1)},
		Field{Name: "b", Value: Int(2)},
	)

	next := p.With("a", Int(9))

	assert.Equal(t, []string{"a", "b"}, next.Keys())
	v, _ := next.Get("a")
	assert.True(t, v.Equal(Int(9)))
	v, _ = p.Get("a")
	assert.True(t, v.Equal(Int(1)))
}

// TestPayload_Without tests field removal preserves remaining order.
func TestPayload_Without(t *testing.T) {
	p := NewPayload(
		Field{Name: "a", Value: Int(1)},
		Field{Name: "b", Value: Int(2)},
		Field{Name: "c", Value: Int(3)},
	)

	next := p.Without("b")

	assert.Equal(t, []string{"a", "c"}, next.Keys())
	assert.Equal(t, 3, p.Len())

	// Removing an absent field is a no-op.
	same := p.Without("nope")
	assert.True(t, same.Equal(p))
}

// TestPayload_ZeroUsable tests the zero Payload works.
func TestPayload_ZeroUsable(t *testing.T) {
	var p Payload
	assert.Equal(t, 0, p.Len())
	assert.False(t, p.Has("x"))

	next := p.With("x", Int(1))
	assert.Equal(t, 1, next.Len())
}

// TestPayload_Range tests ordered iteration and early stop.
func TestPayload_Range(t *testing.T) {
	p := NewPayload(
		Field{Name: "a", Value: Int(1)},
		Field{Name: "b", Value: Int(2)},
		Field{Name: "c", Value: Int(3)},
	)

	var seen []string
	p.Range(func(name string, v Value) bool {
		seen = append(seen, name)
		return name != "b"
	})

	assert.Equal(t, []string{"a", "b"}, seen)
}

// TestPayload_Equal tests equality includes field order.
func TestPayload_Equal(t *testing.T) {
	a := NewPayload(Field{Name: "x", Value: Int(1)}, Field{Name: "y", Value: Int(2)})
	b := NewPayload(Field{Name: "x", Value: Int(1)}, Field{Name: "y", Value: Int(2)})
	reordered := NewPayload(Field{Name: "y", Value: Int(2)}, Field{Name: "x", Value: Int(1)})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(reordered))
}

// TestPayload_String tests the debug form follows declaration order.
func TestPayload_String(t *testing.T) {
	p := NewPayload(
		Field{Name: "a", Value: Int(1)},
		Field{Name: "b", Value: String("x")},
	)
	assert.Equal(t, `{a: 1, b: "x"}`, p.String())
}
