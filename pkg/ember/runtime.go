package ember

import (
	"fmt"
	"log/slog"

	"github.com/emberlang/ember/pkg/ember/config"
	"github.com/emberlang/ember/pkg/ember/event"
	"github.com/emberlang/ember/pkg/ember/journal"
	"github.com/emberlang/ember/pkg/ember/observability"
)

// Runtime bundles the registry, bus, and dispatcher behind one
// configured entry point. Embedding hosts create one Runtime per
// interpreter instance and emit through it.
type Runtime struct {
	Bus        *event.Bus
	Registry   *HandlerRegistry
	Dispatcher *Dispatcher

	journal journal.Store
}

// RuntimeOption configures a Runtime beyond its Settings.
type RuntimeOption func(*runtimeConfig)

type runtimeConfig struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	source  string
}

// WithRuntimeLogger sets the structured logger shared by the
// dispatcher and coordinator.
func WithRuntimeLogger(logger *slog.Logger) RuntimeOption {
	return func(rc *runtimeConfig) {
		rc.logger = logger
	}
}

// WithRuntimeMetrics sets the metrics recorder shared by the
// dispatcher and coordinator.
func WithRuntimeMetrics(m observability.MetricsRecorder) RuntimeOption {
	return func(rc *runtimeConfig) {
		rc.metrics = m
	}
}

// WithRuntimeSpans sets the trace span manager shared by the
// dispatcher and coordinator.
func WithRuntimeSpans(s observability.SpanManager) RuntimeOption {
	return func(rc *runtimeConfig) {
		rc.spans = s
	}
}

// WithRuntimeSource sets the source recorded on published events.
func WithRuntimeSource(source string) RuntimeOption {
	return func(rc *runtimeConfig) {
		rc.source = source
	}
}

// NewRuntime builds a fully wired Runtime from the given settings.
// An empty JournalPath keeps diagnostics in memory; otherwise they
// persist to SQLite at that path.
func NewRuntime(settings config.Settings, opts ...RuntimeOption) (*Runtime, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("runtime settings: %w", err)
	}

	rc := runtimeConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		source:  "ember",
	}
	for _, opt := range opts {
		opt(&rc)
	}

	policy, err := ParseMergePolicy(settings.MergePolicy)
	if err != nil {
		return nil, err
	}

	var store journal.Store
	if settings.JournalPath != "" {
		store, err = journal.NewSQLiteStore(settings.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	} else {
		store = journal.NewMemoryStore()
	}

	bus := event.NewBus()
	registry := NewHandlerRegistry()

	coord := NewCoordinator(registry,
		WithGroupTimeout(settings.GroupTimeout),
		WithHandlerTimeout(settings.HandlerTimeout),
		WithMergePolicy(policy),
		WithMaxConcurrency(settings.MaxConcurrency),
		WithCoordinatorLogger(rc.logger),
		WithMetricsRecorder(rc.metrics),
		WithSpanManager(rc.spans),
		WithJournal(store),
	)

	dispatcher := NewDispatcher(bus, registry,
		WithCoordinator(coord),
		WithSource(rc.source),
		WithAllowOverwrite(settings.AllowOverwrite),
		WithMaxEmissionDepth(settings.MaxEmissionDepth),
		WithDispatcherLogger(rc.logger),
		WithDispatcherMetrics(rc.metrics),
		WithDispatcherSpans(rc.spans),
	)

	return &Runtime{
		Bus:        bus,
		Registry:   registry,
		Dispatcher: dispatcher,
		journal:    store,
	}, nil
}

// Journal exposes the diagnostics store for inspection.
func (r *Runtime) Journal() journal.Store {
	return r.journal
}

// Close releases the bus and the diagnostics store.
func (r *Runtime) Close() error {
	r.Bus.Close()
	return r.journal.Close()
}
