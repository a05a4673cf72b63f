package server

// Config holds HTTP server parameters.
type Config struct {
	Host  string `json:"host,omitempty" toml:"host" yaml:"host,omitempty"`
	Port  int    `json:"port,omitempty" toml:"port" yaml:"port,omitempty"` // 0 picks a free port.
	Title string `json:"title,omitempty" toml:"title" yaml:"title,omitempty"`
}

// DefaultConfig listens on a free localhost port.
func DefaultConfig() Config {
	return Config{
		Host:  "localhost",
		Title: "sktalk",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Host != "" {
		c.Host = source.Host
	}
	if source.Port > 0 {
		c.Port = source.Port
	}
	if source.Title != "" {
		c.Title = source.Title
	}
}
