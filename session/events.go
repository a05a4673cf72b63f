package session

import (
	"context"

	"github.com/tailored-agentic-units/sktalk/observability"
)

// Session event types.
const (
	EventOwnerPush      observability.EventType = "session.owner.push"
	EventOwnerPop       observability.EventType = "session.owner.pop"
	EventSubmit         observability.EventType = "session.submit"
	EventBind           observability.EventType = "session.bind"
	EventPreempt        observability.EventType = "session.preempt"
	EventDirective      observability.EventType = "session.directive"
	EventCallback       observability.EventType = "session.callback"
	EventCallbackError  observability.EventType = "session.callback.error"
	EventSendError      observability.EventType = "session.send.error"
	EventInterrupt      observability.EventType = "session.interrupt"
	EventThreadStart    observability.EventType = "thread.start"
	EventThreadFinish   observability.EventType = "thread.finish"
	EventHistoryPersist observability.EventType = "session.history.persist"
)

func (s *Session) emit(typ observability.EventType, level observability.Level, source string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["session"] = s.id
	s.observer.OnEvent(context.Background(), observability.NewEvent(typ, level, source, data))
}
