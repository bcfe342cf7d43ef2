package config

import (
	"fmt"
	"time"
)

// Configuration keys consumed from the environment.
const (
	KeyGroupTimeout     = "group_timeout"
	KeyHandlerTimeout   = "handler_timeout"
	KeyMergePolicy      = "merge_policy"
	KeyAllowOverwrite   = "allow_overwrite"
	KeyMaxConcurrency   = "max_concurrency"
	KeyMaxEmissionDepth = "max_emission_depth"
	KeyJournalPath      = "journal_path"
)

// Merge policy names accepted by KeyMergePolicy.
const (
	PolicyFirstDeclaredWins = "first-declared-wins"
	PolicyErrorOnConflict   = "error-on-conflict"
)

// Settings holds the resolved runtime configuration surface.
type Settings struct {
	// GroupTimeout is the group-global timeout. 0 disables it.
	GroupTimeout time.Duration

	// HandlerTimeout is the per-handler default timeout. 0 disables it.
	HandlerTimeout time.Duration

	// MergePolicy is the context reconciliation policy name.
	MergePolicy string

	// AllowOverwrite lets merged outputs overwrite existing payload
	// fields. Off by default to prevent silent data loss.
	AllowOverwrite bool

	// MaxConcurrency limits simultaneously running units. 0 = unlimited.
	MaxConcurrency int

	// MaxEmissionDepth bounds recursive re-emission.
	MaxEmissionDepth int

	// JournalPath is the SQLite diagnostics database path.
	// Empty keeps diagnostics in memory only.
	JournalPath string
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		GroupTimeout:     2 * time.Minute,
		HandlerTimeout:   30 * time.Second,
		MergePolicy:      PolicyFirstDeclaredWins,
		AllowOverwrite:   false,
		MaxConcurrency:   0,
		MaxEmissionDepth: 64,
	}
}

// SettingsFrom resolves Settings from a Config, falling back to the
// defaults for missing keys.
func SettingsFrom(cfg Config) Settings {
	def := DefaultSettings()
	return Settings{
		GroupTimeout:     cfg.Duration(KeyGroupTimeout, def.GroupTimeout),
		HandlerTimeout:   cfg.Duration(KeyHandlerTimeout, def.HandlerTimeout),
		MergePolicy:      cfg.String(KeyMergePolicy, def.MergePolicy),
		AllowOverwrite:   cfg.Bool(KeyAllowOverwrite, def.AllowOverwrite),
		MaxConcurrency:   cfg.Int(KeyMaxConcurrency, def.MaxConcurrency),
		MaxEmissionDepth: cfg.Int(KeyMaxEmissionDepth, def.MaxEmissionDepth),
		JournalPath:      cfg.String(KeyJournalPath, def.JournalPath),
	}
}

// Validate checks the settings for inconsistencies.
func (s Settings) Validate() error {
	switch s.MergePolicy {
	case PolicyFirstDeclaredWins, PolicyErrorOnConflict:
	default:
		return fmt.Errorf("unknown merge policy %q", s.MergePolicy)
	}
	if s.GroupTimeout < 0 {
		return fmt.Errorf("group timeout must not be negative")
	}
	if s.HandlerTimeout < 0 {
		return fmt.Errorf("handler timeout must not be negative")
	}
	if s.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency must not be negative")
	}
	if s.MaxEmissionDepth <= 0 {
		return fmt.Errorf("max emission depth must be positive")
	}
	return nil
}
