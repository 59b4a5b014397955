package dazeus

import (
	"context"
	"sync"
	"sync/atomic"
)

// ListenerHandle identifies a listener registration within a session.
type ListenerHandle uint64

// ListenerFunc is called for every event of the type it was registered for. The session is
// passed so the listener can issue further requests.
type ListenerFunc func(evt Event, s *Session)

type listener struct {
	handle  ListenerHandle
	typ     EventType
	fn      ListenerFunc
	removed atomic.Bool
}

// registry holds the listeners of a session in registration order.
type registry struct {
	mu        sync.Mutex
	next      ListenerHandle
	listeners []*listener
}

func newRegistry() *registry {
	return &registry{next: 1}
}

// add registers fn and reports whether it is the first listener for t.
func (r *registry) add(t EventType, fn ListenerFunc) (ListenerHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := !r.hasLocked(t)
	l := &listener{handle: r.next, typ: t, fn: fn}
	r.next++
	r.listeners = append(r.listeners, l)
	return l.handle, first
}

// remove drops the listener with handle h. It returns the listener's type and whether other
// listeners of that type remain.
func (r *registry) remove(h ListenerHandle) (t EventType, remaining bool, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, l := range r.listeners {
		if l.handle != h {
			continue
		}
		l.removed.Store(true)
		r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
		return l.typ, r.hasLocked(l.typ), true
	}
	return EventType{}, false, false
}

// removeAll drops every listener of type t and returns how many were removed.
func (r *registry) removeAll(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]*listener, 0, len(r.listeners))
	removed := 0
	for _, l := range r.listeners {
		if l.typ == t {
			l.removed.Store(true)
			removed++
			continue
		}
		kept = append(kept, l)
	}
	r.listeners = kept
	return removed
}

func (r *registry) has(t EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasLocked(t)
}

func (r *registry) hasLocked(t EventType) bool {
	for _, l := range r.listeners {
		if l.typ == t {
			return true
		}
	}
	return false
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// dispatch calls the listeners registered for evt.Type in registration order. It iterates a
// snapshot, so listeners may subscribe or unsubscribe while being called; a listener removed by
// an earlier one is skipped.
func (r *registry) dispatch(evt Event, s *Session) {
	r.mu.Lock()
	var matching []*listener
	for _, l := range r.listeners {
		if l.typ == evt.Type {
			matching = append(matching, l)
		}
	}
	r.mu.Unlock()

	for _, l := range matching {
		if l.removed.Load() {
			continue
		}
		l.fn(evt.Clone(), s)
	}
}

// Subscribe registers fn for events of type t. The core is asked to send t only when fn is the
// first listener for it; later subscriptions to the same type are local and answered with a
// synthetic success response. Command types always register the command with the core.
func (s *Session) Subscribe(ctx context.Context, t EventType, fn ListenerFunc) (ListenerHandle, *Response, error) {
	return s.subscribe(ctx, t, fn, Subscribe(t))
}

// SubscribeCommand registers fn for a command on all networks.
func (s *Session) SubscribeCommand(ctx context.Context, command string, fn ListenerFunc) (ListenerHandle, *Response, error) {
	return s.subscribe(ctx, CommandEvent(command), fn, SubscribeCommand(command))
}

// SubscribeCommandOn registers fn for a command on a single network.
func (s *Session) SubscribeCommandOn(ctx context.Context, command, network string, fn ListenerFunc) (ListenerHandle, *Response, error) {
	return s.subscribe(ctx, CommandEvent(command), fn, SubscribeCommandOn(command, network))
}

func (s *Session) subscribe(ctx context.Context, t EventType, fn ListenerFunc, req Request) (ListenerHandle, *Response, error) {
	if err := s.checkOpen(); err != nil {
		return 0, nil, err
	}

	handle, first := s.registry.add(t, fn)
	if !first && !t.IsCommand() {
		s.log.Debug("listener added to existing subscription", "event", t.String(), "handle", uint64(handle))
		return handle, ResponseForSuccess(), nil
	}

	resp, err := s.Send(ctx, req)
	if err != nil {
		s.registry.remove(handle)
		return 0, nil, err
	}
	return handle, resp, nil
}

// Unsubscribe removes the listener with handle h. The core is told to stop sending the event
// type only when the last listener for it is removed; commands are never unsubscribed on the
// core. An unknown handle yields a failure response, not an error.
func (s *Session) Unsubscribe(ctx context.Context, h ListenerHandle) (*Response, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	t, remaining, found := s.registry.remove(h)
	switch {
	case !found:
		return ResponseForFailure("Could not find listener with given handle"), nil
	case t.IsCommand(), remaining:
		return ResponseForSuccess(), nil
	default:
		return s.Send(ctx, unsubscribe(t))
	}
}

// UnsubscribeAll removes every listener for t and unsubscribes t on the core.
func (s *Session) UnsubscribeAll(ctx context.Context, t EventType) (*Response, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	removed := s.registry.removeAll(t)
	s.log.Debug("removed listeners", "event", t.String(), "count", removed)
	if t.IsCommand() {
		return ResponseForSuccess(), nil
	}
	return s.Send(ctx, unsubscribe(t))
}

// HasAnySubscription reports whether any listener is registered for t.
func (s *Session) HasAnySubscription(t EventType) bool {
	return s.registry.has(t)
}
