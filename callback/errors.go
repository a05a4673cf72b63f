package callback

import "errors"

// Sentinel errors for callback resolution. ErrUnavailable means the id was
// issued but its target has since been evicted or invalidated; ErrNotFound
// means the id was never issued by this registry.
var (
	ErrNotFound    = errors.New("callback not found")
	ErrUnavailable = errors.New("value is unavailable; it might have been garbage-collected")
	ErrNilFunc     = errors.New("callback is nil")
)
