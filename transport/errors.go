package transport

import "errors"

var (
	// ErrClosed is returned when posting to a stopped loop.
	ErrClosed = errors.New("transport closed")
)
