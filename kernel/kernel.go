// Package kernel wires a complete sktalk process: one session with its
// history store, the HTTP server that binds browsers to it, the evaluator
// loop on the main thread and an optional file watcher.
//
// The kernel initializes from configuration via New, creating all subsystems
// internally. Functional options allow test overrides of any subsystem.
//
//	k, err := kernel.New(&cfg)
//	err = k.Run(ctx)
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/sktalk/eval"
	"github.com/tailored-agentic-units/sktalk/memory"
	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/server"
	"github.com/tailored-agentic-units/sktalk/session"
	"github.com/tailored-agentic-units/sktalk/watch"
)

// Option configures a Kernel. Options are applied after config-derived
// defaults are resolved and before subsystems are built, so overrides reach
// every subsystem that depends on them.
type Option func(*Kernel)

// WithObserver overrides the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// WithMemoryStore overrides the config-created memory store.
func WithMemoryStore(s memory.Store) Option {
	return func(k *Kernel) { k.store = s }
}

// WithListener serves on an existing listener instead of the configured
// address.
func WithListener(l net.Listener) Option {
	return func(k *Kernel) { k.listener = l }
}

// WithRestart sets the handler of the /restart directive.
func WithRestart(fn session.RestartFunc) Option {
	return func(k *Kernel) { k.restart = fn }
}

// WithEvaluatorOptions configures the main evaluator and every spawned one.
func WithEvaluatorOptions(opts ...eval.Option) Option {
	return func(k *Kernel) { k.evalOpts = append(k.evalOpts, opts...) }
}

// Kernel owns the subsystems of one running REPL.
type Kernel struct {
	session   *session.Session
	server    *server.Server
	evaluator *eval.Evaluator
	watcher   *watch.Watcher
	store     memory.Store
	observer  observability.Observer
	listener  net.Listener
	restart   session.RestartFunc
	evalOpts  []eval.Option
}

// New creates a Kernel from configuration.
func New(cfg *Config, opts ...Option) (*Kernel, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	store, err := memory.NewStore(&cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}

	k := &Kernel{
		store:    store,
		observer: observer,
	}
	for _, opt := range opts {
		opt(k)
	}

	sessOpts := []session.Option{
		session.WithObserver(k.observer),
		session.WithStore(k.store),
	}
	if k.restart != nil {
		sessOpts = append(sessOpts, session.WithRestart(k.restart))
	}
	k.session, err = session.New(&cfg.Session, sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	k.evaluator, err = eval.New(k.evalOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}
	if err := eval.RegisterSpawn(k.session, k.evalOpts...); err != nil {
		return nil, fmt.Errorf("failed to register spawn: %w", err)
	}

	srvOpts := []server.Option{server.WithObserver(k.observer)}
	if k.listener != nil {
		srvOpts = append(srvOpts, server.WithListener(k.listener))
	}
	k.server, err = server.New(&cfg.Server, k.session, srvOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	if len(cfg.Watch.Paths) > 0 {
		k.watcher, err = watch.New(&cfg.Watch, k.session, watch.WithObserver(k.observer))
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
	}

	return k, nil
}

// Session returns the kernel's session.
func (k *Kernel) Session() *session.Session {
	return k.session
}

// Listen binds the server address so URL is known before Run.
func (k *Kernel) Listen() (string, error) {
	if _, err := k.server.Listen(); err != nil {
		return "", err
	}
	return k.server.URL(), nil
}

// Run loads the persisted history, then serves browsers, evaluates on the
// main thread and watches files until ctx ends or a subsystem fails.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.session.LoadHistory(ctx); err != nil {
		k.emit(ctx, EventError, observability.LevelWarning, map[string]any{
			"stage": "history",
			"error": err.Error(),
		})
	} else {
		k.emit(ctx, EventHistoryLoad, observability.LevelVerbose, map[string]any{
			"entries": k.session.History().Len(),
		})
	}

	url, err := k.Listen()
	if err != nil {
		return err
	}
	k.emit(ctx, EventStart, observability.LevelInfo, map[string]any{
		"url":     url,
		"session": k.session.ID(),
		"watch":   k.watcher != nil,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return k.server.Run(gctx)
	})
	g.Go(func() error {
		if err := k.evaluator.Loop(gctx, k.session, k.session.Main()); !eval.Stopped(err) {
			return fmt.Errorf("main loop failed: %w", err)
		}
		return nil
	})
	if k.watcher != nil {
		g.Go(func() error {
			return k.watcher.Run(gctx)
		})
	}

	err = g.Wait()
	k.emit(context.Background(), EventStop, observability.LevelInfo, nil)
	return err
}

// Close persists history, stops every worker thread and releases the
// watcher and the store.
func (k *Kernel) Close(ctx context.Context) error {
	errs := []error{k.session.Close(ctx)}
	if k.watcher != nil {
		errs = append(errs, k.watcher.Close())
	}
	if c, ok := k.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (k *Kernel) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	k.observer.OnEvent(ctx, observability.NewEvent(typ, level, "kernel.Kernel", data))
}
