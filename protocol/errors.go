package protocol

import "errors"

// Sentinel errors for frame decoding.
var (
	ErrMalformed      = errors.New("malformed frame")
	ErrMissingCommand = errors.New("frame has no command field")
)
