package session

import (
	"fmt"
	"html"

	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/threads"
)

var _ threads.Hooks = (*Session)(nil)

// ThreadStarted announces a new worker.
func (s *Session) ThreadStarted(th *threads.Thread) {
	s.QueueResult(s.NextEvalID(), HTML(fmt.Sprintf("Starting thread <strong>%s</strong>", html.EscapeString(th.Name()))), protocol.ResultInfo)
	s.emit(EventThreadStart, observability.LevelInfo, "session.ThreadStarted", map[string]any{
		"thread": th.Name(),
	})
}

// ThreadFinished reports a failure, removes the worker from the top of the
// ownership stack if it was there and announces how it ended.
func (s *Session) ThreadFinished(th *threads.Thread, reason threads.Reason, err error) {
	evalID := s.NextEvalID()
	if reason == threads.Failed && err != nil {
		s.QueueResult(evalID, err, protocol.ResultException)
	}

	owner, popped := s.cleanOwners()
	s.forget(th)
	if popped {
		s.refreshNav(owner)
	}

	s.QueueResult(evalID, HTML(fmt.Sprintf("Thread <strong>%s</strong> %s", html.EscapeString(th.Name()), reason)), protocol.ResultInfo)

	data := map[string]any{
		"thread": th.Name(),
		"reason": reason.String(),
	}
	level := observability.LevelInfo
	if err != nil {
		data["error"] = err.Error()
		level = observability.LevelWarning
	}
	s.emit(EventThreadFinish, level, "session.ThreadFinished", data)
}

// forget drops th's semaphore and nav actions unless th is still on the
// stack beneath a live owner; cleanOwners removes it when it surfaces.
func (s *Session) forget(th *threads.Thread) {
	s.mu.Lock()
	stacked := s.onStack(th)
	if !stacked {
		delete(s.sems, th)
	}
	s.mu.Unlock()

	if !stacked {
		s.dropNav(th)
	}
}
