// Package observability provides production-grade observability for the
// ember runtime: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds emission context to a logger.
// Returns a new logger with chain_id, event, and depth fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "chain-123", "user.login", 0)
//	enriched.Info("dispatching") // includes chain_id, event, depth
func EnrichLogger(logger *slog.Logger, chainID, eventName string, depth int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("chain_id", chainID),
		slog.String("event", eventName),
		slog.Int("depth", depth),
	)
}

// LogEmitStart logs the start of an emission.
func LogEmitStart(logger *slog.Logger, eventName, mode string, handlers int) {
	if logger == nil {
		return
	}
	logger.Info("emission starting",
		slog.String("event", eventName),
		slog.String("mode", mode),
		slog.Int("handlers", handlers),
	)
}

// LogEmitComplete logs successful emission completion.
func LogEmitComplete(logger *slog.Logger, eventName, status string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("emission completed",
		slog.String("event", eventName),
		slog.String("status", status),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEmitError logs emission failure.
func LogEmitError(logger *slog.Logger, eventName string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("emission failed",
		slog.String("event", eventName),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogHandlerStart logs handler unit start.
func LogHandlerStart(logger *slog.Logger, output string) {
	if logger == nil {
		return
	}
	logger.Debug("handler starting",
		slog.String("output", output),
	)
}

// LogHandlerComplete logs successful handler completion.
func LogHandlerComplete(logger *slog.Logger, output string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("handler completed",
		slog.String("output", output),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogHandlerFailure logs a handler failure or timeout (non-fatal, the
// failure is isolated and collected).
func LogHandlerFailure(logger *slog.Logger, output, kind, message string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Warn("handler failed",
		slog.String("output", output),
		slog.String("kind", kind),
		slog.String("error", message),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogContextConflict logs a context write conflict diagnostic.
func LogContextConflict(logger *slog.Logger, key, winner, loser string) {
	if logger == nil {
		return
	}
	logger.Warn("context conflict",
		slog.String("key", key),
		slog.String("winner", winner),
		slog.String("loser", loser),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
