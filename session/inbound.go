package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/sktalk/callback"
	"github.com/tailored-agentic-units/sktalk/dispatch"
	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
)

// Recv handles one client frame. It runs on the transport loop.
func (s *Session) Recv(ctx context.Context, raw []byte) {
	cmd, err := protocol.Decode(raw)
	if err != nil {
		s.QueueResult(0, fmt.Errorf("%w: %v", ErrNoSuchCommand, err), protocol.ResultException)
		return
	}

	switch cmd.Kind {
	case protocol.KindSubmit:
		s.CommandSubmit(ctx, cmd.Expr)
	case protocol.KindCallback:
		s.CommandCallback(ctx, cmd)
	default:
		s.QueueResult(0, fmt.Errorf("%w: %s", ErrNoSuchCommand, cmd.Kind), protocol.ResultException)
	}
}

// CommandSubmit records expr in the history and runs it as a directive when
// one matches. Anything else is queued for the owner as an expression.
func (s *Session) CommandSubmit(ctx context.Context, expr string) {
	if strings.TrimSpace(expr) != "" {
		s.history.Append(expr)
	}

	err := s.dispatcher.Dispatch(ctx, expr)
	switch {
	case err == nil:
	case errors.Is(err, dispatch.ErrNoPattern):
		s.Submit(protocol.Expr(expr))
	default:
		s.QueueResult(0, err, protocol.ResultException)
	}
}

// CommandCallback invokes the callback cmd.ID and answers with a response
// carrying cmd.ResponseID. Ids that cannot be resolved are reported through
// an error status rather than a response.
func (s *Session) CommandCallback(ctx context.Context, cmd protocol.Command) {
	fn, err := s.callbacks.Resolve(cmd.ID)
	if err != nil {
		status := msgUnavailable
		if errors.Is(err, callback.ErrNotFound) {
			status = fmt.Sprintf("callback %d does not exist", cmd.ID)
		}
		s.Queue(protocol.Status(protocol.StatusError, status))
		s.emit(EventCallbackError, observability.LevelWarning, "session.CommandCallback", map[string]any{
			"id":    int64(cmd.ID),
			"error": err.Error(),
		})
		return
	}

	s.emit(EventCallback, observability.LevelVerbose, "session.CommandCallback", map[string]any{
		"id":        int64(cmd.ID),
		"arguments": len(cmd.Arguments),
	})

	value, err := fn(ctx, cmd.Arguments)
	if err != nil {
		s.Queue(protocol.ResponseError(cmd.ResponseID, err))
		s.emit(EventCallbackError, observability.LevelWarning, "session.CommandCallback", map[string]any{
			"id":    int64(cmd.ID),
			"error": err.Error(),
		})
		return
	}
	s.Queue(protocol.Response(cmd.ResponseID, value))
}
