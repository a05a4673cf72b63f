package eval

import (
	"context"
	"errors"
	"strings"

	"github.com/tailored-agentic-units/sktalk/dispatch"
	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/session"
	"github.com/tailored-agentic-units/sktalk/threads"
)

// PatternSpawn matches the spawn directive.
const PatternSpawn = `/spawn[ \n]?(.*)`

// RegisterSpawn adds the /spawn directive to sess. "/spawn <expr>" starts a
// worker that evaluates expr in a fresh interpreter and then keeps
// prompting, so the user can /attach to it. Options apply to every spawned
// evaluator.
func RegisterSpawn(sess *session.Session, opts ...Option) error {
	if sess == nil {
		return ErrNilSession
	}
	return sess.Handle(PatternSpawn, func(_ context.Context, m dispatch.Match) error {
		sess.Queue(protocol.Echo(m.Input))

		expr := m.Group(1)
		if strings.TrimSpace(expr) == "" {
			sess.QueueResult(0, ErrEmptySpawn, protocol.ResultException)
			return nil
		}

		e, err := New(opts...)
		if err != nil {
			sess.QueueResult(0, err, protocol.ResultException)
			return nil
		}

		_, err = sess.Spawn(func(ctx context.Context, th *threads.Thread) error {
			if err := e.start(ctx, sess, th, expr); err != nil {
				return err
			}
			return e.Loop(ctx, sess, th)
		})
		if err != nil {
			sess.QueueResult(0, err, protocol.ResultException)
		}
		return nil
	})
}

// start evaluates the spawned expression as an interruptible evaluation of
// th. An interrupt is reported and leaves the worker prompting; any other
// failure ends it.
func (e *Evaluator) start(ctx context.Context, sess *session.Session, th *threads.Thread, expr string) error {
	ectx, end := th.BeginEval(ctx)
	defer end()

	out, err := e.Eval(ectx, expr)
	if out.Output != "" {
		sess.QueueResult(0, out.Output, protocol.ResultPrint)
	}
	if errors.Is(err, threads.ErrInterrupted) {
		sess.QueueResult(0, err, protocol.ResultException)
		return nil
	}
	return err
}
