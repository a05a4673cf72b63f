// Package session coordinates a single browser-attached REPL session. It
// routes inbound commands to whichever thread currently owns the session,
// buffers outbound messages until a transport is bound, and intercepts
// directives that manipulate the ownership stack and the worker threads.
//
// Exactly one thread owns the session at a time: the top of the ownership
// stack, or the main thread when the stack is empty. Each thread has its own
// counting semaphore; the owner's count always equals the number of pending
// inbound commands and every other count is zero. PushOwner and PopOwner
// hand the pending commands over atomically.
//
//	sess, err := session.New(&cfg, session.WithObserver(obs))
//	scope, err := sess.Prompt(ctx, sess.Main(), session.PromptUI{Prompt: ">>>"})
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/sktalk/callback"
	"github.com/tailored-agentic-units/sktalk/dispatch"
	"github.com/tailored-agentic-units/sktalk/history"
	"github.com/tailored-agentic-units/sktalk/memory"
	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/threads"
)

// RestartFunc replaces the running process. It returns only on failure.
type RestartFunc func(ctx context.Context) error

// Option configures a Session after config-driven initialization.
type Option func(*Session)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithRenderer overrides the default TextRenderer.
func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

// WithThreads overrides the config-created thread registry.
func WithThreads(r *threads.Registry) Option {
	return func(s *Session) { s.threads = r }
}

// WithCallbacks overrides the config-created callback registry.
func WithCallbacks(r *callback.Registry) Option {
	return func(s *Session) { s.callbacks = r }
}

// WithStore sets the store used to persist history.
func WithStore(store memory.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithRestart sets the handler of the /restart directive.
func WithRestart(fn RestartFunc) Option {
	return func(s *Session) { s.restart = fn }
}

// Session is the concurrency and routing core shared by every thread and
// connection of one REPL.
type Session struct {
	id         string
	observer   observability.Observer
	renderer   Renderer
	history    *history.History
	callbacks  *callback.Registry
	threads    *threads.Registry
	dispatcher *dispatch.Dispatcher
	store      memory.Store
	restart    RestartFunc

	// mu guards the ownership stack, the inbound queue and the semaphores.
	mu      sync.Mutex
	owners  []*threads.Thread
	inQueue []protocol.Command
	sems    map[*threads.Thread]*semaphore

	navMu sync.Mutex
	navs  map[*threads.Thread]*navActions

	// outMu guards the binding and the outbound buffer.
	outMu    sync.Mutex
	binding  *binding
	outQueue []protocol.Message

	libOnce  sync.Once
	lib      map[string]protocol.CallbackID
	libErr   error
	libOwner *callback.Owner

	evalSeq atomic.Int64
}

// New creates a Session from configuration. Options applied after
// initialization can override any subsystem.
func New(cfg *Config, opts ...Option) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	s := &Session{
		id:         id.String(),
		observer:   observability.NewSlogObserver(slog.Default()),
		renderer:   TextRenderer{},
		history:    history.New(cfg.HistoryCapacity),
		callbacks:  callback.New(cfg.CallbackKeep),
		threads:    threads.New(),
		dispatcher: dispatch.New(),
		sems:       make(map[*threads.Thread]*semaphore),
		navs:       make(map[*threads.Thread]*navActions),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.registerDirectives(); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// Main returns the main thread handle.
func (s *Session) Main() *threads.Thread { return s.threads.Main() }

// Threads returns the worker registry.
func (s *Session) Threads() *threads.Registry { return s.threads }

// History returns the input history.
func (s *Session) History() *history.History { return s.history }

// Callbacks returns the callback registry.
func (s *Session) Callbacks() *callback.Registry { return s.callbacks }

// Handle registers an additional directive. Directives are tried in
// registration order before input is treated as an expression.
func (s *Session) Handle(pattern string, handler dispatch.Handler) error {
	return s.dispatcher.Handle(pattern, handler)
}

// Spawn runs fn on a new named worker whose lifecycle is announced to the
// client.
func (s *Session) Spawn(fn threads.Func) (*threads.Thread, error) {
	return s.threads.RunInThread(fn, s)
}

// NextEvalID allocates an evaluation id for attributing results.
func (s *Session) NextEvalID() int64 {
	return s.evalSeq.Add(1)
}

// Interrupt aborts the current owner's evaluation without ending the
// thread.
func (s *Session) Interrupt() bool {
	owner := s.Owner()
	interrupted := owner.Interrupt()
	s.emit(EventInterrupt, observability.LevelInfo, "session.Interrupt", map[string]any{
		"thread":      owner.Name(),
		"interrupted": interrupted,
	})
	return interrupted
}

// LoadHistory replaces the history with the persisted one.
func (s *Session) LoadHistory(ctx context.Context) error {
	return s.history.Load(ctx, s.store)
}

// Close persists history, asks every worker to stop and unbinds the
// transport. Workers that ignore cancellation are abandoned once ctx ends.
func (s *Session) Close(ctx context.Context) error {
	err := s.history.Save(ctx, s.store)
	s.emit(EventHistoryPersist, observability.LevelVerbose, "session.Close", map[string]any{
		"entries": s.history.Len(),
		"error":   err != nil,
	})

	s.threads.KillAll()
	done := make(chan struct{})
	go func() {
		s.threads.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	s.outMu.Lock()
	b := s.binding
	s.binding = nil
	s.outMu.Unlock()

	if b != nil {
		if cerr := b.transport.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
