package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testHandler) getLastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			var m map[string]any
			if err := json.Unmarshal(lines[i], &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds chain_id, event, and depth", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		enriched := EnrichLogger(logger, "chain-123", "user.login", 2)
		enriched.Info("test message")

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "chain-123", record["chain_id"])
		assert.Equal(t, "user.login", record["event"])
		assert.Equal(t, float64(2), record["depth"]) // JSON decodes ints as float64
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "chain-123", "e", 0))
	})
}

func TestLogEmitStart(t *testing.T) {
	t.Run("logs mode and handler count at INFO level", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogEmitStart(logger, "user.login", "parallel", 3)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "INFO", record["level"])
		assert.Equal(t, "emission starting", record["msg"])
		assert.Equal(t, "parallel", record["mode"])
		assert.Equal(t, float64(3), record["handlers"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogEmitStart(nil, "e", "sequential", 0)
		})
	})
}

func TestLogEmitComplete(t *testing.T) {
	t.Run("logs status with duration", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogEmitComplete(logger, "user.login", "partial_failure", 123.5)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "INFO", record["level"])
		assert.Equal(t, "emission completed", record["msg"])
		assert.Equal(t, "partial_failure", record["status"])
		assert.Equal(t, 123.5, record["duration_ms"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogEmitComplete(nil, "e", "success", 0)
		})
	})
}

func TestLogEmitError(t *testing.T) {
	t.Run("logs at ERROR level", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogEmitError(logger, "user.login", errors.New("all handlers failed"), 50.0)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "ERROR", record["level"])
		assert.Equal(t, "emission failed", record["msg"])
		assert.Equal(t, "all handlers failed", record["error"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogEmitError(nil, "e", errors.New("err"), 0)
		})
	})
}

func TestLogHandlerLifecycle(t *testing.T) {
	t.Run("start and complete log at DEBUG level", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogHandlerStart(logger, "price")
		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "DEBUG", record["level"])
		assert.Equal(t, "handler starting", record["msg"])
		assert.Equal(t, "price", record["output"])

		LogHandlerComplete(logger, "price", 45.7)
		record = h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "handler completed", record["msg"])
		assert.Equal(t, 45.7, record["duration_ms"])
	})

	t.Run("failure logs at WARN level with kind", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogHandlerFailure(logger, "price", "HandlerExecutionTimeout", "timeout elapsed", 30000.0)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "WARN", record["level"])
		assert.Equal(t, "handler failed", record["msg"])
		assert.Equal(t, "HandlerExecutionTimeout", record["kind"])
		assert.Equal(t, "timeout elapsed", record["error"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogHandlerStart(nil, "o")
			LogHandlerComplete(nil, "o", 0)
			LogHandlerFailure(nil, "o", "k", "m", 0)
		})
	})
}

func TestLogContextConflict(t *testing.T) {
	t.Run("logs winner and loser at WARN level", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogContextConflict(logger, "shared", "first", "second")

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "WARN", record["level"])
		assert.Equal(t, "context conflict", record["msg"])
		assert.Equal(t, "shared", record["key"])
		assert.Equal(t, "first", record["winner"])
		assert.Equal(t, "second", record["loser"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogContextConflict(nil, "k", "a", "b")
		})
	})
}

func TestTimedOperation(t *testing.T) {
	t.Run("measures duration", func(t *testing.T) {
		done := TimedOperation()
		time.Sleep(10 * time.Millisecond)
		duration := done()

		assert.GreaterOrEqual(t, duration, 10.0)
		assert.Less(t, duration, 1000.0)
	})

	t.Run("can be called multiple times", func(t *testing.T) {
		done := TimedOperation()
		time.Sleep(5 * time.Millisecond)
		d1 := done()
		time.Sleep(5 * time.Millisecond)
		d2 := done()

		assert.Greater(t, d2, d1)
	})
}
