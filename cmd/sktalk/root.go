package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tailored-agentic-units/sktalk/kernel"
	"github.com/tailored-agentic-units/sktalk/observability"
)

// Version is set via ldflags at build time.
var Version = "dev"

const closeTimeout = 5 * time.Second

// options holds command line overrides. Zero values leave the config alone.
type options struct {
	configFile string
	host       string
	port       int
	title      string
	memoryPath string
	driver     string
	noHistory  bool
	watch      []string
	observer   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sktalk",
		Short: "Browser-attached Go REPL",
		Long: `sktalk serves a REPL session to the browser. Snippets run in an
interpreter on the main thread; /spawn starts worker threads that the
session can /attach to, /detach from and /kill.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "config file (.json, .toml, .yaml)")
	f.StringVar(&opts.host, "host", "", "listen host (overrides config)")
	f.IntVarP(&opts.port, "port", "p", 0, "listen port; 0 picks a free port (overrides config)")
	f.StringVar(&opts.title, "title", "", "browser page title (overrides config)")
	f.StringVar(&opts.memoryPath, "memory", "", "directory for persisted history (overrides config)")
	f.StringVar(&opts.driver, "store", "", `history store driver: "file" or "sqlite" (overrides config)`)
	f.BoolVar(&opts.noHistory, "no-history", false, "do not persist history")
	f.StringSliceVarP(&opts.watch, "watch", "w", nil, "paths to watch for changes")
	f.StringVar(&opts.observer, "observer", "", `event sinks, comma-separated: "slog", "zap", "noop" (overrides config)`)
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	return cmd
}

// config loads the config file, if any, and applies flag overrides.
func (o *options) config() (*kernel.Config, error) {
	cfg := kernel.DefaultConfig()
	if o.configFile != "" {
		loaded, err := kernel.LoadConfig(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	override := kernel.Config{Observer: o.observer}
	override.Server.Host = o.host
	override.Server.Port = o.port
	override.Server.Title = o.title
	override.Memory.Path = o.memoryPath
	override.Memory.Driver = o.driver
	override.Memory.Disabled = o.noHistory
	override.Watch.Paths = o.watch
	cfg.Merge(&override)

	return &cfg, nil
}

func run(ctx context.Context, opts *options, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.config()
	if err != nil {
		return err
	}

	logger := newLogger(stderr, opts.verbose, isTerminal(stderr))
	slog.SetDefault(logger)
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	if slices.Contains(strings.Split(cfg.Observer, ","), "zap") {
		zl, err := newZapLogger(opts.verbose)
		if err != nil {
			return fmt.Errorf("failed to create zap logger: %w", err)
		}
		defer zl.Sync()
		observability.RegisterObserver("zap", observability.NewZapObserver(zl))
	}

	k, err := kernel.New(cfg, kernel.WithRestart(restart))
	if err != nil {
		return err
	}

	url, err := k.Listen()
	if err != nil {
		return err
	}
	fmt.Fprintln(stderr, banner(Version, url, cfg.Watch.Paths, isTerminal(stderr)))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := k.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := k.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// newLogger writes text to terminals and JSON everywhere else.
func newLogger(w io.Writer, verbose, terminal bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if terminal {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func newZapLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// restart replaces the process with a fresh copy of itself. History has
// already been saved by the time it runs.
func restart(context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
