package threads

import "errors"

// Cancellation causes and registry errors. ErrKilled and ErrInterrupted are
// attached to contexts with context.WithCancelCause; inspect them through
// context.Cause or errors.Is.
var (
	ErrKilled      = errors.New("thread killed")
	ErrInterrupted = errors.New("interrupted")
	ErrNilFunc     = errors.New("thread function is nil")
	ErrPanic       = errors.New("thread panicked")
)
