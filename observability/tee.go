package observability

import "context"

// Discard drops every event.
var Discard Observer = discard{}

type discard struct{}

func (discard) OnEvent(context.Context, Event) {}

type tee []Observer

func (t tee) OnEvent(ctx context.Context, event Event) {
	for _, obs := range t {
		obs.OnEvent(ctx, event)
	}
}

// Tee returns an Observer that delivers each event to every non-nil
// observer in order. With no observers it returns Discard; with one it
// returns that observer unwrapped.
func Tee(observers ...Observer) Observer {
	t := make(tee, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			t = append(t, obs)
		}
	}
	switch len(t) {
	case 0:
		return Discard
	case 1:
		return t[0]
	}
	return t
}
