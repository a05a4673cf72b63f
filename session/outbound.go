package session

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"

	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
)

// Transport is a bound client connection. Post schedules fn on the
// connection's serial loop and never blocks; Send is only called from tasks
// running on that loop.
type Transport interface {
	Post(fn func()) error
	Send(data []byte) error
	Close() error
}

// binding is one physical connection. sent is only touched on the
// connection's loop.
type binding struct {
	transport Transport
	sent      map[uint64]struct{}
}

// Queue delivers msg to the client. Messages are buffered while no
// transport is bound, and behind any message still buffered, so delivery
// order matches queue order.
func (s *Session) Queue(msg protocol.Message) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	s.queue(msg)
}

// queue must be called with s.outMu held.
func (s *Session) queue(msg protocol.Message) {
	if s.binding == nil || len(s.outQueue) > 0 {
		s.outQueue = append(s.outQueue, msg)
		return
	}
	s.post(s.binding, msg)
}

// post must be called with s.outMu held.
func (s *Session) post(b *binding, msg protocol.Message) {
	if err := b.transport.Post(func() { s.send(b, msg) }); err != nil {
		s.outQueue = append(s.outQueue, msg)
		s.emit(EventSendError, observability.LevelWarning, "session.Queue", map[string]any{
			"command": msg.Command,
			"error":   err.Error(),
		})
	}
}

// send runs on b's loop.
func (s *Session) send(b *binding, msg protocol.Message) {
	for _, res := range msg.Resources {
		key := xxhash.Sum64String(res)
		if _, seen := b.sent[key]; seen {
			continue
		}
		if !s.write(b, protocol.Resource(res)) {
			return
		}
		b.sent[key] = struct{}{}
	}
	s.write(b, msg)
}

func (s *Session) write(b *binding, msg protocol.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil && msg.Command == protocol.CommandResponse && msg.Error == nil {
		data, err = json.Marshal(protocol.ResponseError(msg.ResponseID, err))
	}
	if err == nil {
		err = b.transport.Send(data)
	}
	if err != nil {
		s.emit(EventSendError, observability.LevelWarning, "session.send", map[string]any{
			"command": msg.Command,
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// QueueResult renders value and queues it as a result attributed to
// evalID. Error values are reported as exceptions. When rendering fails the
// rendering error is shown instead, and when that fails too, its plain text
// with type render_exception.
func (s *Session) QueueResult(evalID int64, value any, typ protocol.ResultType) {
	if _, isErr := value.(error); isErr {
		typ = protocol.ResultException
	}

	markup, resources, err := s.renderer.Render(value)
	if err != nil {
		var rerr error
		markup, resources, rerr = s.renderer.Render(err)
		if rerr != nil {
			markup, resources = plainText(err), nil
			typ = protocol.ResultRenderException
		}
	}

	msg := protocol.Result(markup, typ).WithResources(resources...)
	if evalID > 0 {
		msg = msg.WithEvalID(evalID)
	}
	s.Queue(msg)
}

// Bind attaches t as the live connection. Buffered messages are flushed in
// order, resource tracking restarts, the callback table is sent and a noop
// command wakes the owner so its prompt is re-rendered. A previously bound
// connection is told it was pre-empted.
func (s *Session) Bind(t Transport) error {
	if t == nil {
		return ErrNilTransport
	}

	lib, err := s.Lib()
	if err != nil {
		return err
	}

	s.outMu.Lock()
	prev := s.binding
	b := &binding{transport: t, sent: make(map[uint64]struct{})}
	s.binding = b

	pending := s.outQueue
	s.outQueue = nil
	for _, msg := range pending {
		s.queue(msg)
	}
	s.queue(protocol.SetLib(lib))
	s.outMu.Unlock()

	if prev != nil && prev.transport != t {
		s.Preempted(prev.transport)
	}

	s.emit(EventBind, observability.LevelInfo, "session.Bind", map[string]any{
		"flushed": len(pending),
	})

	s.Submit(protocol.Noop())
	return nil
}

// Bound reports whether t is the live connection. Connections that are no
// longer bound have been pre-empted by a newer one.
func (s *Session) Bound(t Transport) bool {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return s.binding != nil && s.binding.transport == t
}

// Unbind detaches t if it is still the live connection. Later messages are
// buffered until the next Bind.
func (s *Session) Unbind(t Transport) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.binding != nil && s.binding.transport == t {
		s.binding = nil
	}
}

// Preempted tells a stale connection that it no longer drives the session.
func (s *Session) Preempted(t Transport) {
	b := &binding{transport: t}
	t.Post(func() {
		s.write(b, protocol.Status(protocol.StatusError, msgPreempted))
	})
	s.emit(EventPreempt, observability.LevelInfo, "session.Preempted", nil)
}
