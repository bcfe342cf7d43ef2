// Package config provides the runtime configuration surface for ember.
//
// Config wraps a plain map with type-safe accessors so callers can load
// settings from YAML or JSON files without defining schemas up front.
// Settings resolves the knobs the dispatcher and coordinator consume:
// timeouts, the context merge policy, the reserved-key overwrite flag,
// concurrency and recursion limits, and the diagnostics journal path.
package config
