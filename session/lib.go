package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sahilm/fuzzy"

	"github.com/tailored-agentic-units/sktalk/callback"
	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/threads"
)

// Lib method names exported to the client.
const (
	LibStop            = "stop"
	LibHistoryNavigate = "history_navigate"
	LibPopulatePopup   = "populate_popup"
)

// PopupHistory selects history completion in populate_popup; any other
// popup name completes thread names.
const PopupHistory = "history"

// PopupItem is one completion entry.
type PopupItem struct {
	Text string `json:"text"`
}

// Lib returns the callback table sent to every bound client. The callbacks
// are registered once, under an owner that is never invalidated.
func (s *Session) Lib() (map[string]protocol.CallbackID, error) {
	s.libOnce.Do(func() {
		s.libOwner = s.callbacks.NewOwner()
		methods := map[string]callback.Func{
			LibStop:            s.libStop,
			LibHistoryNavigate: s.libHistoryNavigate,
			LibPopulatePopup:   s.libPopulatePopup,
		}

		lib := make(map[string]protocol.CallbackID, len(methods))
		for name, fn := range methods {
			id, err := s.callbacks.RegisterOwned(s.libOwner, fn)
			if err != nil {
				s.libErr = fmt.Errorf("failed to export %s: %w", name, err)
				return
			}
			lib[name] = id
		}
		s.lib = lib
	})
	return s.lib, s.libErr
}

func (s *Session) libStop(context.Context, []json.RawMessage) (any, error) {
	s.Interrupt()
	return nil, nil
}

func (s *Session) libHistoryNavigate(_ context.Context, args []json.RawMessage) (any, error) {
	var (
		delta int
		query string
	)
	if err := decodeArgs(args, &delta, &query); err != nil {
		return nil, err
	}

	entry, ok := s.history.Navigate(delta, query)
	if !ok {
		return nil, nil
	}
	return entry, nil
}

func (s *Session) libPopulatePopup(_ context.Context, args []json.RawMessage) (any, error) {
	var name, query string
	if err := decodeArgs(args, &name, &query); err != nil {
		return nil, err
	}

	if name == PopupHistory {
		return popupItems(s.history.Search(query)), nil
	}
	return popupItems(s.completeThreads(query)), nil
}

// completeThreads lists main followed by the live workers, fuzzily filtered
// by query when one is given.
func (s *Session) completeThreads(query string) []string {
	names := append([]string{threads.MainName}, s.threads.Names()...)
	if query == "" {
		return names
	}

	matches := fuzzy.Find(query, names)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}

func popupItems(texts []string) []PopupItem {
	items := make([]PopupItem, len(texts))
	for i, t := range texts {
		items[i] = PopupItem{Text: t}
	}
	return items
}

func decodeArgs(args []json.RawMessage, into ...any) error {
	if len(args) < len(into) {
		return fmt.Errorf("expected %d arguments, got %d", len(into), len(args))
	}
	for i, v := range into {
		if err := json.Unmarshal(args[i], v); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}
