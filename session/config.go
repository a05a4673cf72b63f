package session

import (
	"github.com/tailored-agentic-units/sktalk/callback"
	"github.com/tailored-agentic-units/sktalk/history"
)

// Config holds session initialization parameters.
type Config struct {
	// HistoryCapacity bounds the number of remembered inputs.
	HistoryCapacity int `json:"history_capacity,omitempty" toml:"history_capacity" yaml:"history_capacity,omitempty"`
	// CallbackKeep bounds the strongly retained callbacks. Negative disables
	// eviction.
	CallbackKeep int `json:"callback_keep,omitempty" toml:"callback_keep" yaml:"callback_keep,omitempty"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity: history.DefaultCapacity,
		CallbackKeep:    callback.DefaultKeep,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.HistoryCapacity > 0 {
		c.HistoryCapacity = source.HistoryCapacity
	}
	if source.CallbackKeep != 0 {
		c.CallbackKeep = source.CallbackKeep
	}
}
