// Package history keeps the bounded, deduplicated list of submitted inputs
// and supports cursor navigation filtered by a fuzzy query.
package history

import (
	"context"
	"sync"

	"github.com/tailored-agentic-units/sktalk/memory"
)

// DefaultCapacity is the default number of retained entries.
const DefaultCapacity = 1000

// Option configures a History.
type Option func(*History)

// WithEntries seeds the history, most recent entry first.
func WithEntries(entries []string) Option {
	return func(h *History) {
		h.entries = append([]string(nil), entries...)
	}
}

// History is a most-recent-first list of inputs with a navigation cursor.
// A cursor of -1 designates the live query rather than an entry.
type History struct {
	mu       sync.Mutex
	capacity int
	entries  []string
	results  []string
	query    string
	cursor   int
}

// New creates a History retaining at most capacity entries. A
// non-positive capacity selects DefaultCapacity.
func New(capacity int, opts ...Option) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	h := &History{capacity: capacity}
	for _, opt := range opts {
		opt(h)
	}
	h.trim()
	h.resetFilter()
	return h
}

// Append records entry unless it equals the most recent entry, then resets
// the cursor.
func (h *History) Append(entry string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 || h.entries[0] != entry {
		h.entries = append([]string{entry}, h.entries...)
		h.trim()
	}
	h.resetFilter()
}

// Navigate moves the cursor by delta over the entries matching query;
// positive delta moves toward older entries. When the input no longer
// matches the entry under the cursor, the result set is recomputed from
// query; the cursor keeps its position and is clamped to the new set.
//
// At the live query the query itself is returned. Moving to another entry
// returns that entry. Otherwise ok is false.
func (h *History) Navigate(delta int, query string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor == -1 || query != h.results[h.cursor] {
		if query == "" {
			h.results = h.entries
		} else {
			h.results = search(query, h.entries)
		}
		h.query = query
	}

	prev := h.cursor
	h.cursor = clamp(h.cursor+delta, -1, len(h.results)-1)

	switch {
	case h.cursor == -1:
		return h.query, true
	case prev != h.cursor:
		return h.results[h.cursor], true
	default:
		return "", false
	}
}

// Search returns the entries fuzzily matching query, most compact match
// first.
func (h *History) Search(query string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return search(query, h.entries)
}

// Entries returns a copy of the history, most recent first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Reset moves the cursor back to the live query.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetFilter()
}

// Load replaces the entries with the list persisted in store. A missing or
// unreadable document leaves an empty history. A nil store is a no-op.
func (h *History) Load(ctx context.Context, store memory.Store) error {
	if store == nil {
		return nil
	}

	var entries []string
	found, err := memory.LoadJSON(ctx, store, memory.KeyHistory, &entries)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	if found {
		h.entries = entries
	}
	h.trim()
	h.resetFilter()
	return nil
}

// Save persists the entries to store. A nil store is a no-op.
func (h *History) Save(ctx context.Context, store memory.Store) error {
	if store == nil {
		return nil
	}
	entries := h.Entries()
	if entries == nil {
		entries = []string{}
	}
	return memory.SaveJSON(ctx, store, memory.KeyHistory, entries)
}

func (h *History) trim() {
	if len(h.entries) > h.capacity {
		h.entries = h.entries[:h.capacity]
	}
}

func (h *History) resetFilter() {
	h.results = h.entries
	h.query = ""
	h.cursor = -1
}

func clamp(x, lo, hi int) int {
	return max(lo, min(hi, x))
}
