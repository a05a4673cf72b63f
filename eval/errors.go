package eval

import "errors"

var (
	ErrNilSession = errors.New("session is nil")
	ErrEmptySpawn = errors.New("nothing to spawn")
)
