package config

import "time"

// Config is a read-only view over a decoded configuration map. The
// typed accessors never fail: a missing key or a value of the wrong
// shape falls back to the caller's default, so the runtime resolves
// every knob in one pass (see SettingsFrom).
type Config struct {
	data map[string]any
}

// New wraps a decoded map. A nil map yields an empty Config whose
// accessors all answer with their defaults.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the value under key when it is a string, otherwise
// defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Duration resolves a timeout knob. Duration-typed values and
// time.ParseDuration strings ("90s", "1.5m") are taken as written;
// bare numbers are read as seconds, matching how the YAML and JSON
// decoders hand numbers over.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch val := c.data[key].(type) {
	case time.Duration:
		return val
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case float64:
		return time.Duration(val * float64(time.Second))
	}
	return defaultVal
}

// Bool returns the value under key when it is a bool, otherwise
// defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int resolves a count knob (concurrency limits, depth bounds). JSON
// decodes every number as float64, so whole floats count as ints; a
// fractional value falls back to defaultVal.
func (c Config) Int(key string, defaultVal int) int {
	switch val := c.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Has reports whether key was present in the decoded input.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw exposes the underlying map for diagnostics. Treat it as
// read-only.
func (c Config) Raw() map[string]any {
	return c.data
}
