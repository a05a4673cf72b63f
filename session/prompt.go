package session

import (
	"context"

	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/threads"
)

// Nav action names installed by Prompt.
const (
	NavPrompt = "prompt"
	NavPanel  = "nav"
)

// PromptUI is what the client shows while a thread waits for input.
type PromptUI struct {
	// Prompt is the HTML of the input mode indicator.
	Prompt string
	// Nav is the HTML of the side panel.
	Nav string
	// NavID identifies the panel so the client can keep its state across
	// refreshes. Defaults to the thread name.
	NavID string
}

type navActions struct {
	order []string
	fns   map[string]func()
}

// AddNavAction sets the named action that re-renders th's UI when th becomes
// the owner. Actions run in the order their names were first added.
func (s *Session) AddNavAction(th *threads.Thread, name string, fn func()) {
	s.navMu.Lock()
	defer s.navMu.Unlock()

	acts, ok := s.navs[th]
	if !ok {
		acts = &navActions{fns: make(map[string]func())}
		s.navs[th] = acts
	}
	if _, exists := acts.fns[name]; !exists {
		acts.order = append(acts.order, name)
	}
	acts.fns[name] = fn
}

func (s *Session) refreshNav(th *threads.Thread) {
	s.navMu.Lock()
	var fns []func()
	if acts, ok := s.navs[th]; ok {
		for _, name := range acts.order {
			fns = append(fns, acts.fns[name])
		}
	}
	s.navMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Session) dropNav(th *threads.Thread) {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	delete(s.navs, th)
}

// Prompt installs ui for th, refreshes the client for the current owner and
// blocks until th receives a command. The returned Scope must be closed once
// the command has been handled.
func (s *Session) Prompt(ctx context.Context, th *threads.Thread, ui PromptUI) (*Scope, error) {
	navID := ui.NavID
	if navID == "" {
		navID = th.Name()
	}
	s.AddNavAction(th, NavPrompt, func() {
		s.Queue(protocol.SetMode(ui.Prompt))
	})
	s.AddNavAction(th, NavPanel, func() {
		s.Queue(protocol.SetNav(ui.Nav, navID))
	})

	owner, _ := s.cleanOwners()
	s.refreshNav(owner)

	cmd, err := s.Next(ctx, th)
	if err != nil {
		return nil, err
	}

	ectx, end := th.BeginEval(ctx)
	return &Scope{
		Command: cmd,
		EvalID:  s.NextEvalID(),
		Thread:  th,
		ctx:     ectx,
		end:     end,
		session: s,
	}, nil
}

// Scope carries one dequeued command and the evaluation it starts. Results
// queued through the scope are attributed to its evaluation id.
type Scope struct {
	Command protocol.Command
	EvalID  int64
	Thread  *threads.Thread

	ctx     context.Context
	end     func()
	session *Session
}

// Context is cancelled when the evaluation is interrupted or the thread is
// killed.
func (sc *Scope) Context() context.Context { return sc.ctx }

// Queue sends msg attributed to this evaluation.
func (sc *Scope) Queue(msg protocol.Message) {
	sc.session.Queue(msg.WithEvalID(sc.EvalID))
}

// QueueResult renders value as a result of this evaluation.
func (sc *Scope) QueueResult(value any, typ protocol.ResultType) {
	sc.session.QueueResult(sc.EvalID, value, typ)
}

// Close ends the evaluation.
func (sc *Scope) Close() {
	sc.end()
}
