// Package memory persists session state that must outlive the process, such
// as the command history. Values are opaque bytes addressed by /-separated
// keys; JSON helpers cover the common case of a single document per key.
package memory

import "context"

// Store reads and writes keyed state. Implementations perform I/O on each
// call and must be safe for concurrent use.
type Store interface {
	// List returns all keys currently held by the store.
	List(ctx context.Context) ([]string, error)
	// Load returns the value stored under key. Missing keys fail with
	// ErrKeyNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the value stored under key.
	Save(ctx context.Context, key string, value []byte) error
	// Delete removes key. Missing keys are ignored.
	Delete(ctx context.Context, key string) error
}
