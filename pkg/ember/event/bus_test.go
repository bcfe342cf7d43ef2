package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record appends a tag on delivery.
func record(tag string, into *[]string) Handler {
	return HandlerFunc(func(ctx context.Context, evt Event) error {
		*into = append(*into, tag)
		return nil
	})
}

// TestBus_Publish_SubscriptionOrder tests ordered delivery.
func TestBus_Publish_SubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe("e", record("a", &order))
	bus.Subscribe("e", record("b", &order))
	bus.Subscribe("e", record("c", &order))

	err := bus.Publish(context.Background(), New("e", "test", nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

// TestBus_Publish_FailFast tests the first error halts delivery.
func TestBus_Publish_FailFast(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe("e", record("a", &order))
	bus.Subscribe("e", HandlerFunc(func(ctx context.Context, evt Event) error {
		return errors.New("boom")
	}))
	bus.Subscribe("e", record("c", &order))

	err := bus.Publish(context.Background(), New("e", "test", nil))

	require.Error(t, err)
	assert.Equal(t, []string{"a"}, order)
}

// TestBus_Publish_TypeScoped tests only matching subscribers fire.
func TestBus_Publish_TypeScoped(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe("a", record("a", &order))
	bus.Subscribe("b", record("b", &order))

	err := bus.Publish(context.Background(), New("a", "test", nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, order)
}

// TestBus_PauseResume tests paused subscriptions are skipped.
func TestBus_PauseResume(t *testing.T) {
	bus := NewBus()
	var order []string
	sub := bus.Subscribe("e", record("a", &order))

	sub.Pause()
	assert.True(t, sub.IsPaused())
	require.NoError(t, bus.Publish(context.Background(), New("e", "test", nil)))
	assert.Empty(t, order)

	sub.Resume()
	assert.False(t, sub.IsPaused())
	require.NoError(t, bus.Publish(context.Background(), New("e", "test", nil)))
	assert.Equal(t, []string{"a"}, order)
}

// TestBus_Unsubscribe tests removal stops delivery.
func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	var order []string
	sub := bus.Subscribe("e", record("a", &order))
	bus.Subscribe("e", record("b", &order))

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), New("e", "test", nil)))

	assert.Equal(t, []string{"b"}, order)
}

// TestBus_Close tests a closed bus refuses work.
func TestBus_Close(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("e", HandlerFunc(func(ctx context.Context, evt Event) error {
		t.Fatal("should not deliver after close")
		return nil
	}))

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close()) // idempotent

	err := bus.Publish(context.Background(), New("e", "test", nil))
	require.Error(t, err)
	assert.Nil(t, bus.Subscribe("e", record("x", nil)))
}

// TestBus_Publish_ContextCancelled tests cancellation stops delivery.
func TestBus_Publish_ContextCancelled(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	var order []string
	bus.Subscribe("e", HandlerFunc(func(ctx context.Context, evt Event) error {
		order = append(order, "a")
		cancel()
		return nil
	}))
	bus.Subscribe("e", record("b", &order))

	err := bus.Publish(ctx, New("e", "test", nil))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, order)
}
