package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_Defaults tests generated metadata.
func TestNew_Defaults(t *testing.T) {
	before := time.Now()
	evt := New("order.created", "checkout", map[string]any{"id": 1})

	assert.NotEmpty(t, evt.Meta.ID)
	assert.Equal(t, "order.created", evt.Meta.Type)
	assert.Equal(t, "checkout", evt.Meta.Source)
	assert.False(t, evt.Meta.Timestamp.Before(before))

	// Without an explicit correlation ID the event roots its own chain.
	assert.Equal(t, evt.Meta.ID, evt.Meta.CorrelationID)
}

// TestNew_Options tests explicit metadata overrides.
func TestNew_Options(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	evt := New("e", "s", nil,
		WithEventID("id-1"),
		WithCorrelationID("corr-1"),
		WithCausationID("cause-1"),
		WithTimestamp(ts),
	)

	assert.Equal(t, "id-1", evt.Meta.ID)
	assert.Equal(t, "corr-1", evt.Meta.CorrelationID)
	assert.Equal(t, "cause-1", evt.Meta.CausationID)
	assert.Equal(t, ts, evt.Meta.Timestamp)
}

// TestNewFromParent tests correlation and causation inheritance.
func TestNewFromParent(t *testing.T) {
	parent := New("parent", "s", nil, WithCorrelationID("corr-1"))
	child := NewFromParent(parent, "child", "s", nil)

	assert.Equal(t, "corr-1", child.Meta.CorrelationID)
	assert.Equal(t, parent.Meta.ID, child.Meta.CausationID)
	assert.NotEqual(t, parent.Meta.ID, child.Meta.ID)
}

// TestEventError tests message formatting and unwrapping.
func TestEventError(t *testing.T) {
	inner := assert.AnError
	err := &EventError{Type: "e", Message: "failed", Err: inner}

	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "e")
	assert.Contains(t, err.Error(), "failed")
}
