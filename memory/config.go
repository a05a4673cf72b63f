package memory

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config holds state store initialization parameters.
type Config struct {
	Path     string `json:"path,omitempty" toml:"path" yaml:"path,omitempty"`       // Store root directory.
	Driver   string `json:"driver,omitempty" toml:"driver" yaml:"driver,omitempty"` // "file" or "sqlite".
	Disabled bool   `json:"disabled,omitempty" toml:"disabled" yaml:"disabled,omitempty"`
}

// DefaultConfig stores state as files under the user config directory,
// falling back to ~/.config/sktalk when it cannot be determined.
func DefaultConfig() Config {
	return Config{Path: defaultPath(), Driver: DriverFile}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.Disabled {
		c.Disabled = true
	}
}

// NewStore creates a Store from configuration. Returns a nil Store when
// persistence is disabled or no path is configured. The sqlite driver keeps
// its database in SQLiteFile under Path.
func NewStore(cfg *Config) (Store, error) {
	if cfg.Disabled || cfg.Path == "" {
		return nil, nil
	}

	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(cfg.Path), nil
	case DriverSQLite:
		return NewSQLiteStore(filepath.Join(cfg.Path, SQLiteFile))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func defaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sktalk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sktalk")
}
