package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/sktalk/dispatch"
	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/threads"
)

// Directive patterns. The argument is everything after an optional single
// space or newline.
const (
	PatternRestart = `/restart`
	PatternAttach  = `/attach[ \n]?(.*)`
	PatternDetach  = `/detach[ \n]?(.*)`
	PatternKill    = `/kill[ \n]?(.*)`
)

func (s *Session) registerDirectives() error {
	directives := []struct {
		pattern string
		handler dispatch.Handler
	}{
		{PatternRestart, s.directiveRestart},
		{PatternAttach, s.directiveAttach},
		{PatternDetach, s.directiveDetach},
		{PatternKill, s.directiveKill},
	}

	for _, d := range directives {
		if err := s.dispatcher.Handle(d.pattern, d.handler); err != nil {
			return fmt.Errorf("failed to register directive %q: %w", d.pattern, err)
		}
	}
	return nil
}

func (s *Session) directiveRestart(ctx context.Context, m dispatch.Match) error {
	s.Queue(protocol.Echo(m.Input))
	s.emitDirective(protocol.KindRestart, "")

	if s.restart == nil {
		s.QueueResult(0, ErrNoRestart, protocol.ResultException)
		return nil
	}
	if err := s.history.Save(ctx, s.store); err != nil {
		s.QueueResult(0, err, protocol.ResultException)
	}
	if err := s.restart(ctx); err != nil {
		s.QueueResult(0, fmt.Errorf("restart failed: %w", err), protocol.ResultException)
	}
	return nil
}

func (s *Session) directiveAttach(_ context.Context, m dispatch.Match) error {
	name := strings.TrimSpace(m.Group(1))
	s.Queue(protocol.Echo(m.Input))
	s.emitDirective(protocol.KindAttach, name)

	if name == "" {
		s.queueText("Please provide the name of the thread to attach to", protocol.ResultException)
		return nil
	}

	th, ok := s.threads.Get(name)
	if !ok {
		s.queueText("No thread named "+name, protocol.ResultException)
		return nil
	}
	s.PushOwner(th)
	return nil
}

func (s *Session) directiveDetach(_ context.Context, m dispatch.Match) error {
	s.Queue(protocol.Echo(m.Input))
	s.emitDirective(protocol.KindDetach, "")

	if strings.TrimSpace(m.Group(1)) != "" {
		s.QueueResult(0, ErrDetachArguments, protocol.ResultException)
		return nil
	}
	s.PopOwner()
	return nil
}

func (s *Session) directiveKill(_ context.Context, m dispatch.Match) error {
	name := strings.TrimSpace(m.Group(1))
	s.Queue(protocol.Echo(m.Input))
	s.emitDirective(protocol.KindKill, name)

	switch {
	case name == "":
		s.queueText("Please provide the name of the thread to kill", protocol.ResultException)
	case name == threads.MainName:
		s.QueueResult(0, ErrKillMain, protocol.ResultException)
	case s.threads.Kill(name):
		s.queueText(fmt.Sprintf("Sent an exception to %s. It should terminate as soon as possible.", name), protocol.ResultPrint)
	default:
		s.queueText("No thread named "+name, protocol.ResultException)
	}
	return nil
}

func (s *Session) queueText(text string, typ protocol.ResultType) {
	s.QueueResult(0, text, typ)
}

func (s *Session) emitDirective(kind protocol.Kind, arg string) {
	s.emit(EventDirective, observability.LevelInfo, "session.directive", map[string]any{
		"directive": string(kind),
		"argument":  arg,
	})
}
