package watch

import "time"

// DefaultDebounce is the quiet period after the last event before changes
// are reported.
const DefaultDebounce = 200 * time.Millisecond

// Config holds file watcher parameters. An empty Paths list disables
// watching.
type Config struct {
	Paths      []string `json:"paths,omitempty" toml:"paths" yaml:"paths,omitempty"`
	DebounceMS int      `json:"debounce_ms,omitempty" toml:"debounce_ms" yaml:"debounce_ms,omitempty"`
}

func DefaultConfig() Config {
	return Config{DebounceMS: int(DefaultDebounce / time.Millisecond)}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if len(source.Paths) > 0 {
		c.Paths = source.Paths
	}
	if source.DebounceMS > 0 {
		c.DebounceMS = source.DebounceMS
	}
}

// Debounce returns the configured quiet period.
func (c *Config) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}
