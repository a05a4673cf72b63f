package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/sktalk/memory"
	"github.com/tailored-agentic-units/sktalk/server"
	"github.com/tailored-agentic-units/sktalk/session"
	"github.com/tailored-agentic-units/sktalk/watch"
)

const defaultObserver = "slog"

// Config holds initialization parameters for all kernel subsystems.
// Each subsystem section delegates to that subsystem's config-driven constructor.
type Config struct {
	Session  session.Config `json:"session" toml:"session" yaml:"session"`
	Memory   memory.Config  `json:"memory" toml:"memory" yaml:"memory"`
	Server   server.Config  `json:"server" toml:"server" yaml:"server"`
	Watch    watch.Config   `json:"watch" toml:"watch" yaml:"watch"`
	Observer string         `json:"observer,omitempty" toml:"observer" yaml:"observer,omitempty"` // Registered observer name.
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Session:  session.DefaultConfig(),
		Memory:   memory.DefaultConfig(),
		Server:   server.DefaultConfig(),
		Watch:    watch.DefaultConfig(),
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Session.Merge(&source.Session)
	c.Memory.Merge(&source.Memory)
	c.Server.Merge(&source.Server)
	c.Watch.Merge(&source.Watch)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON, TOML or YAML config file, chosen by extension,
// merges it with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		err = json.Unmarshal(data, &loaded)
	case ".toml":
		err = toml.Unmarshal(data, &loaded)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		return nil, fmt.Errorf("%w: %q", ErrConfigFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
