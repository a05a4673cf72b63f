package kernel

import "errors"

// ErrConfigFormat is returned by LoadConfig for files whose extension is
// not .json, .toml, .yaml or .yml.
var ErrConfigFormat = errors.New("unsupported config format")
