package session

import "errors"

var (
	ErrNoSuchCommand   = errors.New("no such command")
	ErrNoRestart       = errors.New("restart is not available")
	ErrNilTransport    = errors.New("transport is nil")
	ErrDetachArguments = errors.New("detach takes no arguments")
	ErrKillMain        = errors.New("the main thread cannot be killed")
)

// Client-facing status texts.
const (
	msgUnavailable = "value is unavailable; it might have been garbage-collected"
	msgPreempted   = "this connection was closed or pre-empted"
)
