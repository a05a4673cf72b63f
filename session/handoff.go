package session

import (
	"context"

	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/threads"
)

// semaphore is a counting semaphore whose waiters select on wait, which is
// closed and replaced on every release. All access happens under
// Session.mu.
type semaphore struct {
	count int
	wait  chan struct{}
}

func newSemaphore() *semaphore {
	return &semaphore{wait: make(chan struct{})}
}

func (sem *semaphore) release(n int) {
	if n <= 0 {
		return
	}
	sem.count += n
	close(sem.wait)
	sem.wait = make(chan struct{})
}

// sem must be called with s.mu held.
func (s *Session) sem(th *threads.Thread) *semaphore {
	sem, ok := s.sems[th]
	if !ok {
		sem = newSemaphore()
		s.sems[th] = sem
	}
	return sem
}

// owner must be called with s.mu held.
func (s *Session) owner() *threads.Thread {
	if len(s.owners) == 0 {
		return s.threads.Main()
	}
	return s.owners[len(s.owners)-1]
}

// Owner returns the thread entitled to the next inbound command.
func (s *Session) Owner() *threads.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner()
}

// Owners returns a copy of the ownership stack, innermost last.
func (s *Session) Owners() []*threads.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*threads.Thread(nil), s.owners...)
}

// PushOwner makes th the owner. Commands already pending move to th.
func (s *Session) PushOwner(th *threads.Thread) {
	s.mu.Lock()
	prev := s.owner()
	s.sem(prev).count = 0
	s.owners = append(s.owners, th)
	dead := s.popDead()
	next := s.owner()
	s.sem(next).release(len(s.inQueue))
	pending := len(s.inQueue)
	s.mu.Unlock()

	s.emit(EventOwnerPush, observability.LevelInfo, "session.PushOwner", map[string]any{
		"from":    prev.Name(),
		"to":      th.Name(),
		"pending": pending,
	})
	s.reportDead(dead, next, "session.PushOwner")
	s.refreshNav(next)
}

// PopOwner removes the innermost owner, handing pending commands to the
// first live one beneath it. Popping an empty stack leaves main as the
// owner.
func (s *Session) PopOwner() {
	s.mu.Lock()
	prev := s.owner()
	s.sem(prev).count = 0
	if len(s.owners) > 0 {
		s.owners = s.owners[:len(s.owners)-1]
	}
	dead := s.popDead()
	next := s.owner()
	s.sem(next).release(len(s.inQueue))
	pending := len(s.inQueue)
	s.mu.Unlock()

	s.emit(EventOwnerPop, observability.LevelInfo, "session.PopOwner", map[string]any{
		"from":    prev.Name(),
		"to":      next.Name(),
		"pending": pending,
	})
	s.reportDead(dead, next, "session.PopOwner")
	s.refreshNav(next)
}

// cleanOwners pops finished threads off the top of the stack and reports
// the resulting owner and whether anything was popped.
func (s *Session) cleanOwners() (*threads.Thread, bool) {
	s.mu.Lock()
	prev := s.owner()
	dead := s.popDead()
	if len(dead) > 0 {
		s.sem(prev).count = 0
		s.sem(s.owner()).release(len(s.inQueue))
	}
	next := s.owner()
	s.mu.Unlock()

	s.reportDead(dead, next, "session.cleanOwners")
	return next, len(dead) > 0
}

// popDead removes finished threads from the top of the stack until a live
// owner or main is exposed, dropping the semaphores of those no longer
// stacked. It must be called with s.mu held.
func (s *Session) popDead() []*threads.Thread {
	var popped []*threads.Thread
	for len(s.owners) > 0 && s.owners[len(s.owners)-1].Dead() {
		popped = append(popped, s.owners[len(s.owners)-1])
		s.owners = s.owners[:len(s.owners)-1]
	}
	for _, th := range popped {
		if !s.onStack(th) {
			delete(s.sems, th)
		}
	}
	return popped
}

func (s *Session) reportDead(dead []*threads.Thread, next *threads.Thread, source string) {
	for _, th := range dead {
		s.dropNav(th)
		s.emit(EventOwnerPop, observability.LevelInfo, source, map[string]any{
			"from": th.Name(),
			"to":   next.Name(),
			"dead": true,
		})
	}
}

// onStack must be called with s.mu held.
func (s *Session) onStack(th *threads.Thread) bool {
	for _, o := range s.owners {
		if o == th {
			return true
		}
	}
	return false
}

// Submit appends cmd to the inbound queue and wakes the current owner.
func (s *Session) Submit(cmd protocol.Command) {
	s.mu.Lock()
	s.inQueue = append(s.inQueue, cmd)
	owner := s.owner()
	s.sem(owner).release(1)
	s.mu.Unlock()

	s.emit(EventSubmit, observability.LevelVerbose, "session.Submit", map[string]any{
		"kind":  string(cmd.Kind),
		"owner": owner.Name(),
	})
}

// Next blocks until th is given a command and dequeues it. When ctx ends
// first, the context's cause is returned, which is threads.ErrKilled for a
// killed worker.
func (s *Session) Next(ctx context.Context, th *threads.Thread) (protocol.Command, error) {
	for {
		s.mu.Lock()
		sem := s.sem(th)
		if sem.count > 0 && len(s.inQueue) > 0 {
			sem.count--
			cmd := s.inQueue[0]
			s.inQueue[0] = protocol.Command{}
			s.inQueue = s.inQueue[1:]
			s.mu.Unlock()
			return cmd, nil
		}
		wait := sem.wait
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return protocol.Command{}, context.Cause(ctx)
		}
	}
}

// Pending returns the number of queued inbound commands.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inQueue)
}
