package kernel

import "github.com/tailored-agentic-units/sktalk/observability"

// Kernel event types emitted over the process lifetime.
const (
	EventStart       observability.EventType = "kernel.start"
	EventStop        observability.EventType = "kernel.stop"
	EventHistoryLoad observability.EventType = "kernel.history.load"
	EventError       observability.EventType = "kernel.error"
)
