// Package callback maps opaque integer ids to server-side callables that the
// client can invoke later. Entries are either strongly retained in a bounded
// ring, where the oldest entries are evicted past capacity, or tied to an
// Owner whose invalidation drops every entry it registered.
package callback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/sktalk/protocol"
)

// DefaultKeep is the default number of strongly retained callbacks.
const DefaultKeep = 10000

// Func is a callable exposed to the client. Arguments are passed through as
// raw JSON; the returned value is encoded into the response message.
type Func func(ctx context.Context, args []json.RawMessage) (any, error)

// Owner ties registered callbacks to the lifetime of an external object,
// typically a rendered value. Invalidating the owner bumps its generation,
// which retires every entry registered under an older generation.
type Owner struct {
	registry *Registry
}

type ownedEntry struct {
	fn    Func
	owner *Owner
	gen   uint64
}

// Registry allocates callback ids. All methods are safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	keep int
	last protocol.CallbackID

	strong    map[protocol.CallbackID]Func
	strongIDs []protocol.CallbackID

	owned       map[protocol.CallbackID]ownedEntry
	generations map[*Owner]uint64
	ownerIDs    map[*Owner][]protocol.CallbackID
}

// New creates a Registry retaining at most keep strong entries. A negative
// keep disables eviction.
func New(keep int) *Registry {
	return &Registry{
		keep:        keep,
		strong:      make(map[protocol.CallbackID]Func),
		owned:       make(map[protocol.CallbackID]ownedEntry),
		generations: make(map[*Owner]uint64),
		ownerIDs:    make(map[*Owner][]protocol.CallbackID),
	}
}

// NewOwner creates an owner handle for RegisterOwned.
func (r *Registry) NewOwner() *Owner {
	o := &Owner{registry: r}
	r.mu.Lock()
	r.generations[o] = 0
	r.mu.Unlock()
	return o
}

// Register strongly retains fn and returns its id. Once more than keep
// strong entries exist, the oldest one is evicted and its id resolves to
// ErrUnavailable.
func (r *Registry) Register(fn Func) (protocol.CallbackID, error) {
	if fn == nil {
		return 0, ErrNilFunc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last++
	id := r.last
	r.strong[id] = fn
	r.strongIDs = append(r.strongIDs, id)

	if r.keep >= 0 && len(r.strongIDs) > r.keep {
		evict := r.strongIDs[0]
		r.strongIDs = r.strongIDs[1:]
		delete(r.strong, evict)
	}
	return id, nil
}

// RegisterOwned retains fn for as long as owner stays valid.
func (r *Registry) RegisterOwned(owner *Owner, fn Func) (protocol.CallbackID, error) {
	if fn == nil {
		return 0, ErrNilFunc
	}
	if owner == nil || owner.registry != r {
		return r.Register(fn)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last++
	id := r.last
	r.owned[id] = ownedEntry{fn: fn, owner: owner, gen: r.generations[owner]}
	r.ownerIDs[owner] = append(r.ownerIDs[owner], id)
	return id, nil
}

// Invalidate retires every callback registered under owner so far. The
// owner remains usable; later registrations belong to the new generation.
func (r *Registry) Invalidate(owner *Owner) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.generations[owner]; !ok {
		return
	}
	r.generations[owner]++
	for _, id := range r.ownerIDs[owner] {
		delete(r.owned, id)
	}
	delete(r.ownerIDs, owner)
}

// Release invalidates owner and forgets it entirely.
func (r *Registry) Release(owner *Owner) {
	r.Invalidate(owner)
	r.mu.Lock()
	delete(r.generations, owner)
	r.mu.Unlock()
}

// Resolve looks up the callable for id, consulting owned entries first.
func (r *Registry) Resolve(id protocol.CallbackID) (Func, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.owned[id]; ok {
		if gen, live := r.generations[e.owner]; live && gen == e.gen {
			return e.fn, nil
		}
		return nil, fmt.Errorf("%w: %d", ErrUnavailable, id)
	}
	if fn, ok := r.strong[id]; ok {
		return fn, nil
	}
	if id > 0 && id <= r.last {
		return nil, fmt.Errorf("%w: %d", ErrUnavailable, id)
	}
	return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Call resolves id and invokes it. Callback failures are wrapped with the id.
func (r *Registry) Call(ctx context.Context, id protocol.CallbackID, args []json.RawMessage) (any, error) {
	fn, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	result, err := fn(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("callback %d failed: %w", id, err)
	}
	return result, nil
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.strong) + len(r.owned)
}
