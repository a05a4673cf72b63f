// Package eval runs Go snippets entered in the browser. Each Evaluator owns
// a yaegi interpreter with the standard library loaded; state declared by
// one submission is visible to the next. The prompt loop reads commands
// through session.Prompt, so an Evaluator can serve the main thread or any
// worker thread.
package eval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/parser"
	"reflect"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/session"
	"github.com/tailored-agentic-units/sktalk/threads"
)

// DefaultPrompt is the input mode indicator shown while the loop waits.
const DefaultPrompt = `<span class="input-mode-go">&gt;&gt;&gt;</span>`

// Outcome is the classified result of one evaluation.
type Outcome struct {
	Value  any
	Type   protocol.ResultType
	Output string // text the snippet printed
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPrompt overrides DefaultPrompt.
func WithPrompt(html string) Option {
	return func(e *Evaluator) { e.prompt = html }
}

// WithSymbols exposes additional host symbols to interpreted code.
func WithSymbols(symbols interp.Exports) Option {
	return func(e *Evaluator) { e.symbols = append(e.symbols, symbols) }
}

// Evaluator evaluates snippets one at a time.
type Evaluator struct {
	mu      sync.Mutex
	interp  *interp.Interpreter
	out     bytes.Buffer
	prompt  string
	symbols []interp.Exports
}

// New creates an Evaluator with a fresh interpreter.
func New(opts ...Option) (*Evaluator, error) {
	e := &Evaluator{prompt: DefaultPrompt}
	for _, opt := range opts {
		opt(e)
	}

	e.interp = interp.New(interp.Options{Stdout: &e.out, Stderr: &e.out})
	if err := e.interp.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	for _, symbols := range e.symbols {
		if err := e.interp.Use(symbols); err != nil {
			return nil, fmt.Errorf("failed to load symbols: %w", err)
		}
	}
	return e, nil
}

// Eval evaluates expr. Snippets that parse as a single Go expression and
// produce a value are expressions; everything else is a statement. When ctx
// ends first, Eval returns the context's cause and the interpreter may be
// left mid-evaluation.
func (e *Evaluator) Eval(ctx context.Context, expr string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.out.Reset()
	v, err := e.interp.EvalWithContext(ctx, expr)
	output := e.out.String()

	if err != nil {
		if ctx.Err() != nil {
			err = context.Cause(ctx)
		}
		return Outcome{Output: output}, err
	}

	if _, perr := parser.ParseExpr(expr); perr != nil || !v.IsValid() {
		return Outcome{Type: protocol.ResultStatement, Output: output}, nil
	}
	return Outcome{Value: value(v), Type: protocol.ResultExpression, Output: output}, nil
}

func value(v reflect.Value) any {
	if v.CanInterface() {
		return v.Interface()
	}
	return v.String()
}

// Run evaluates the scope's command and queues the echo, any printed output
// and the result, all attributed to the scope's evaluation.
func (e *Evaluator) Run(scope *session.Scope) {
	expr := scope.Command.Expr
	scope.Queue(protocol.Echo(expr))

	out, err := e.Eval(scope.Context(), expr)
	if out.Output != "" {
		scope.QueueResult(out.Output, protocol.ResultPrint)
	}
	switch {
	case err != nil:
		scope.QueueResult(err, protocol.ResultException)
	case out.Type == protocol.ResultStatement:
		scope.QueueResult(nil, protocol.ResultStatement)
	default:
		scope.QueueResult(out.Value, out.Type)
	}
}

// Loop prompts th for commands and evaluates every non-blank expression
// until ctx ends or th is killed. It returns the cancellation cause.
func (e *Evaluator) Loop(ctx context.Context, sess *session.Session, th *threads.Thread) error {
	if sess == nil {
		return ErrNilSession
	}

	ui := session.PromptUI{Prompt: e.prompt, Nav: navHTML(th)}
	for {
		scope, err := sess.Prompt(ctx, th, ui)
		if err != nil {
			return err
		}
		if scope.Command.Kind == protocol.KindExpr && strings.TrimSpace(scope.Command.Expr) != "" {
			e.Run(scope)
		}
		scope.Close()
	}
}

func navHTML(th *threads.Thread) string {
	return fmt.Sprintf(`<div class="thread-nav">Thread <strong>%s</strong></div>`, th.Name())
}

// Stopped reports whether err only signals that a loop was asked to stop.
func Stopped(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, threads.ErrKilled)
}
