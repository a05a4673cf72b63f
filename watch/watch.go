// Package watch reports file changes to the browser. Events are debounced
// and coalesced per path, then queued on the session as normal status
// messages.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
)

// Watch event types.
const (
	EventChange observability.EventType = "watch.change"
	EventError  observability.EventType = "watch.error"
)

// Change operations reported in status messages.
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
)

// Notifier receives change notifications. *session.Session satisfies it.
type Notifier interface {
	Queue(msg protocol.Message)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(w *Watcher) { w.observer = o }
}

// Watcher watches a fixed set of paths.
type Watcher struct {
	fs       *fsnotify.Watcher
	notify   Notifier
	observer observability.Observer
	debounce time.Duration
	paths    []string
}

// New starts watching cfg.Paths. Directories are watched non-recursively.
func New(cfg *Config, notify Notifier, opts ...Option) (*Watcher, error) {
	if notify == nil {
		return nil, ErrNilNotifier
	}
	if len(cfg.Paths) == 0 {
		return nil, ErrNoPaths
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, path := range cfg.Paths {
		if err := fw.Add(path); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	w := &Watcher{
		fs:       fw,
		notify:   notify,
		observer: observability.NewSlogObserver(slog.Default()),
		debounce: cfg.Debounce(),
		paths:    slices.Clone(cfg.Paths),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Paths returns the watched paths.
func (w *Watcher) Paths() []string {
	return slices.Clone(w.paths)
}

// Close stops watching. Run returns once its context ends.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run delivers changes until ctx ends, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]fsnotify.Op)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[event.Name] |= event.Op
			timer.Reset(w.debounce)

		case <-timer.C:
			w.flush(ctx, pending)
			clear(pending)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.emit(ctx, EventError, observability.LevelWarning, map[string]any{"error": err.Error()})
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]fsnotify.Op) {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	for _, path := range paths {
		op := describe(pending[path])
		w.notify.Queue(protocol.Status(protocol.StatusNormal, op+" "+path))
		w.emit(ctx, EventChange, observability.LevelVerbose, map[string]any{
			"op":   op,
			"path": path,
		})
	}
}

// describe collapses the ops seen during one debounce window. A path that
// was created and then written is reported as created.
func describe(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpRemove
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpWrite
	}
}

func (w *Watcher) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	w.observer.OnEvent(ctx, observability.NewEvent(typ, level, "watch.Watcher", data))
}
