// Package dispatch routes input text to handlers by ordered regular
// expression patterns. A pattern must match the whole input; the first
// matching pattern whose handler accepts the input wins.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// Match is the input that matched a pattern along with its capture groups.
// Groups that did not participate in the match are empty.
type Match struct {
	Input  string
	Groups []string
}

// Group returns capture group i (1-based), or "" when out of range.
func (m Match) Group(i int) string {
	if i < 1 || i > len(m.Groups) {
		return ""
	}
	return m.Groups[i-1]
}

// Handler processes a match. Returning ErrNotApplicable passes the input on
// to later patterns.
type Handler func(ctx context.Context, m Match) error

type route struct {
	pattern string
	re      *regexp.Regexp
	handler Handler
}

// Dispatcher holds patterns in registration order. Thread-safe for
// concurrent access.
type Dispatcher struct {
	mu     sync.RWMutex
	routes []route
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

// Handle registers handler for pattern. Patterns are compiled with dot-all
// and multi-line flags and anchored to the whole input.
func (d *Dispatcher) Handle(pattern string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, pattern)
	}

	re, err := regexp.Compile(`(?ms)\A(?:` + pattern + `)\z`)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes = append(d.routes, route{pattern: pattern, re: re, handler: handler})
	return nil
}

// Patterns returns the registered patterns in order.
func (d *Dispatcher) Patterns() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	patterns := make([]string, len(d.routes))
	for i, r := range d.routes {
		patterns[i] = r.pattern
	}
	return patterns
}

// Dispatch runs the handler of the first pattern matching input. Handler
// errors other than ErrNotApplicable are returned unchanged. Input matched
// by no accepting handler yields ErrNoPattern.
func (d *Dispatcher) Dispatch(ctx context.Context, input string) error {
	d.mu.RLock()
	routes := d.routes
	d.mu.RUnlock()

	for _, r := range routes {
		groups := r.re.FindStringSubmatch(input)
		if groups == nil {
			continue
		}

		err := r.handler(ctx, Match{Input: groups[0], Groups: groups[1:]})
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		return err
	}

	return fmt.Errorf("%w: %q", ErrNoPattern, input)
}
