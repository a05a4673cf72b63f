package transport

import (
	"context"
	"sync"
)

// Loop runs posted tasks one at a time, in the order they were posted, on a
// single goroutine. Post never blocks, so tasks may post further tasks.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

// NewLoop creates a Loop. Call Run to start executing tasks.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post schedules fn. It is safe to call from any goroutine.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrClosed
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Stop rejects further tasks. Tasks already posted still run before Run
// returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run executes tasks until the loop is stopped or ctx ends.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		stopped := l.stopped
		l.mu.Unlock()

		for _, fn := range tasks {
			fn()
		}
		if len(tasks) > 0 {
			continue
		}
		if stopped {
			return
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			l.Stop()
		}
	}
}
