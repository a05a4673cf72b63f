package threads

import (
	"context"
	"sync"
)

// MainName is the reserved name of the main thread.
const MainName = "main"

// Reason records how a worker thread ended.
type Reason int

const (
	Finished Reason = iota
	Killed
	Failed
)

func (r Reason) String() string {
	switch r {
	case Finished:
		return "finished"
	case Killed:
		return "killed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Thread is a handle on a named unit of execution. Go has no ambient thread
// identity, so callers pass the handle explicitly wherever ownership matters.
type Thread struct {
	name   string
	main   bool
	pooled bool

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	mu       sync.Mutex
	dead     bool
	reason   Reason
	err      error
	evalSeq  uint64
	evalStop context.CancelCauseFunc
}

func newThread(name string, main bool) *Thread {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Thread{
		name:   name,
		main:   main,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Name returns the thread name.
func (t *Thread) Name() string { return t.name }

func (t *Thread) String() string { return t.name }

// IsMain reports whether t is the main thread.
func (t *Thread) IsMain() bool { return t.main }

// Context is cancelled with cause ErrKilled when the thread is killed. The
// main thread's context is never cancelled.
func (t *Thread) Context() context.Context { return t.ctx }

// Done is closed once the thread has finished.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Dead reports whether the thread has finished. The main thread never dies.
func (t *Thread) Dead() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dead
}

// Reason returns how the thread ended. Only meaningful once Dead is true.
func (t *Thread) Reason() Reason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Err returns the error the thread failed with, if any.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// BeginEval derives the context for a single evaluation. Interrupt cancels
// the most recent evaluation context with cause ErrInterrupted without
// affecting the thread itself. The returned function ends the evaluation.
func (t *Thread) BeginEval(ctx context.Context) (context.Context, func()) {
	ectx, cancel := context.WithCancelCause(ctx)

	t.mu.Lock()
	t.evalSeq++
	seq := t.evalSeq
	t.evalStop = cancel
	t.mu.Unlock()

	return ectx, func() {
		t.mu.Lock()
		if t.evalSeq == seq {
			t.evalStop = nil
		}
		t.mu.Unlock()
		cancel(nil)
	}
}

// Interrupt cancels the current evaluation, if any, and reports whether one
// was running.
func (t *Thread) Interrupt() bool {
	t.mu.Lock()
	stop := t.evalStop
	t.evalStop = nil
	t.mu.Unlock()

	if stop == nil {
		return false
	}
	stop(ErrInterrupted)
	return true
}

func (t *Thread) kill() {
	t.cancel(ErrKilled)
}

func (t *Thread) finish(reason Reason, err error) {
	t.mu.Lock()
	t.dead = true
	t.reason = reason
	t.err = err
	t.mu.Unlock()

	t.cancel(nil)
	close(t.done)
}
