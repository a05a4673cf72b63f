// Package threads runs named, cooperatively cancellable workers. Each worker
// is identified by a human-readable name drawn from a shuffled word pool and
// can be killed by name; killing cancels the worker's context, so it takes
// effect only where the worker observes that context.
package threads

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
)

//go:embed words.txt
var defaultWords string

// Func is the body of a worker thread. ctx is the thread context.
type Func func(ctx context.Context, th *Thread) error

// Hooks receives thread lifecycle notifications. ThreadStarted runs on the
// new thread before its body; ThreadFinished runs on it after the thread is
// marked dead.
type Hooks interface {
	ThreadStarted(th *Thread)
	ThreadFinished(th *Thread, reason Reason, err error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithWords replaces the default name pool.
func WithWords(words []string) Option {
	return func(r *Registry) {
		r.words = append(r.words[:0], words...)
	}
}

// Registry tracks live worker threads by name. Thread-safe for concurrent
// access.
type Registry struct {
	mu      sync.Mutex
	main    *Thread
	threads map[string]*Thread
	words   []string
	seq     int
	wg      sync.WaitGroup
}

// New creates a Registry with a shuffled name pool.
func New(opts ...Option) *Registry {
	r := &Registry{
		main:    newThread(MainName, true),
		threads: make(map[string]*Thread),
		words:   strings.Fields(defaultWords),
	}
	for _, opt := range opts {
		opt(r)
	}
	rand.Shuffle(len(r.words), func(i, j int) {
		r.words[i], r.words[j] = r.words[j], r.words[i]
	})
	return r
}

// Main returns the main thread handle.
func (r *Registry) Main() *Thread {
	return r.main
}

// RunInThread starts fn on a new named worker. Hooks may be nil.
//
// The worker ends with reason Killed when fn returns an error whose cause is
// ErrKilled, Failed on any other error or panic, and Finished otherwise.
func (r *Registry) RunInThread(fn Func, hooks Hooks) (*Thread, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}

	r.mu.Lock()
	name, pooled := r.takeName()
	th := newThread(name, false)
	th.pooled = pooled
	r.threads[name] = th
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(th, fn, hooks)
	return th, nil
}

func (r *Registry) run(th *Thread, fn Func, hooks Hooks) {
	defer r.wg.Done()

	var (
		reason = Finished
		err    error
	)
	defer func() {
		if p := recover(); p != nil {
			reason, err = Failed, fmt.Errorf("%w: %v", ErrPanic, p)
		}
		th.finish(reason, err)
		r.release(th)
		if hooks != nil {
			hooks.ThreadFinished(th, reason, err)
		}
	}()

	if hooks != nil {
		hooks.ThreadStarted(th)
	}

	err = fn(th.ctx, th)
	switch {
	case err == nil:
		reason = Finished
	case errors.Is(err, ErrKilled), errors.Is(context.Cause(th.ctx), ErrKilled):
		reason, err = Killed, nil
	default:
		reason = Failed
	}
}

// takeName must be called with r.mu held.
func (r *Registry) takeName() (string, bool) {
	for len(r.words) > 0 {
		name := r.words[len(r.words)-1]
		r.words = r.words[:len(r.words)-1]
		if _, taken := r.threads[name]; !taken && name != MainName {
			return name, true
		}
	}
	for {
		r.seq++
		name := fmt.Sprintf("t%d", r.seq)
		if _, taken := r.threads[name]; !taken {
			return name, false
		}
	}
}

func (r *Registry) release(th *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.threads[th.name] == th {
		delete(r.threads, th.name)
	}
	if th.pooled {
		r.words = append(r.words, th.name)
	}
}

// Kill requests termination of the named worker and reports whether one was
// found. The main thread cannot be killed.
func (r *Registry) Kill(name string) bool {
	r.mu.Lock()
	th, exists := r.threads[name]
	r.mu.Unlock()

	if !exists {
		return false
	}
	th.kill()
	return true
}

// KillAll requests termination of every live worker.
func (r *Registry) KillAll() {
	r.mu.Lock()
	live := make([]*Thread, 0, len(r.threads))
	for _, th := range r.threads {
		live = append(live, th)
	}
	r.mu.Unlock()

	for _, th := range live {
		th.kill()
	}
}

// Wait blocks until every worker started so far has finished.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Get returns the named thread. The name "main" resolves to the main thread.
func (r *Registry) Get(name string) (*Thread, bool) {
	if name == MainName {
		return r.main, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	th, exists := r.threads[name]
	return th, exists
}

// Names returns the names of live workers, sorted. The main thread is not
// included.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.threads))
	for name := range r.threads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of live workers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.threads)
}
