package dispatch

import "errors"

var (
	// ErrNotApplicable is returned by a handler to decline a match, letting
	// dispatch continue with the next pattern.
	ErrNotApplicable = errors.New("handler not applicable")
	// ErrNoPattern reports input matched by no registered pattern.
	ErrNoPattern = errors.New("no matching pattern")
	// ErrNilHandler reports a registration without a handler.
	ErrNilHandler = errors.New("handler is nil")
)
