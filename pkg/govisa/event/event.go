// Package event implements the VISA event subsystem: enable/disable/discard
// per (resource, event type), a blocking wait with a synthesized timeout
// response, and handler install/uninstall addressed by an opaque handle.
// It has no backend of its own — a backend.Session delivers events into a
// Dispatcher through Deliver; the dispatcher owns only the bookkeeping and
// the handler-invocation boundary.
package event

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/benchdrive/govisa/pkg/govisa/attr"
)

// Event is an immutable snapshot of one notification, remaining valid after
// the backend that produced it reclaims its underlying event context.
type Event struct {
	Type      attr.EventType
	Context   any
	TimedOut  bool
}

// WaitResponse is returned by Dispatcher.Wait.
type WaitResponse struct {
	Event    Event
	TimedOut bool
}

// Handler is the callable a consumer installs; the resource and user handle
// passed alongside an event are supplied by the dispatcher at invocation
// time.
type Handler func(resource any, ev Event, userHandle any)

// HandlerError is the value passed to a Dispatcher's error hook when an
// installed handler panics instead of returning normally.
type HandlerError struct {
	EventType attr.EventType
	Handle    uuid.UUID
	Recovered any
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("event: handler for %v (handle %s) panicked: %v", e.EventType, e.Handle, e.Recovered)
}

// state is the per-(resource,type) state machine: disabled, enabled_queue,
// enabled_handler, enabled_both, discarded.
type state uint8

const (
	stateDisabled state = iota
	stateEnabledQueue
	stateEnabledHandler
	stateEnabledBoth
	stateDiscarded
)

type handlerEntry struct {
	handle     uuid.UUID
	fn         Handler
	userHandle any
}

type typeState struct {
	state    state
	queue    []Event
	handlers []handlerEntry
	waiters  []chan Event
}

// Dispatcher owns one resource's event bookkeeping. The zero value is not
// usable; construct one with New.
type Dispatcher struct {
	mu        sync.Mutex
	resource  any
	types     map[attr.EventType]*typeState
	onHandlerError func(error)
}

// New constructs a Dispatcher for resource, the value handlers receive as
// their first argument. errHook observes handler panics and is never nil
// internally — passing nil installs a stdlib-log-backed default, keeping
// this package free of an opinionated logging dependency.
func New(resource any, errHook func(error)) *Dispatcher {
	if errHook == nil {
		errHook = func(err error) { log.Println(err) }
	}
	return &Dispatcher{
		resource:       resource,
		types:          map[attr.EventType]*typeState{},
		onHandlerError: errHook,
	}
}

func (d *Dispatcher) typeStateLocked(t attr.EventType) *typeState {
	ts, ok := d.types[t]
	if !ok {
		ts = &typeState{state: stateDisabled}
		d.types[t] = ts
	}
	return ts
}

// EnableEvent transitions (type, mechanism) into an enabled state.
// Enabling the same (type, mechanism) twice is a no-op.
func (d *Dispatcher) EnableEvent(t attr.EventType, mech attr.EventMechanism) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts := d.typeStateLocked(t)
	switch mech {
	case attr.MechanismQueue:
		if ts.state == stateEnabledQueue || ts.state == stateEnabledBoth {
			return nil
		}
		if ts.state == stateEnabledHandler {
			ts.state = stateEnabledBoth
		} else {
			ts.state = stateEnabledQueue
		}
	case attr.MechanismHandler:
		if ts.state == stateEnabledHandler || ts.state == stateEnabledBoth {
			return nil
		}
		if ts.state == stateEnabledQueue {
			ts.state = stateEnabledBoth
		} else {
			ts.state = stateEnabledHandler
		}
	case attr.MechanismAll:
		ts.state = stateEnabledBoth
	default:
		return fmt.Errorf("event: unknown mechanism %v", mech)
	}
	return nil
}

// DisableEvent transitions (type, mechanism) back to disabled, leaving
// queued-but-unread events in place (use DiscardEvents to drop those too).
func (d *Dispatcher) DisableEvent(t attr.EventType, mech attr.EventMechanism) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts := d.typeStateLocked(t)
	switch mech {
	case attr.MechanismQueue:
		if ts.state == stateEnabledQueue {
			ts.state = stateDisabled
		} else if ts.state == stateEnabledBoth {
			ts.state = stateEnabledHandler
		}
	case attr.MechanismHandler:
		if ts.state == stateEnabledHandler {
			ts.state = stateDisabled
		} else if ts.state == stateEnabledBoth {
			ts.state = stateEnabledQueue
		}
	case attr.MechanismAll:
		ts.state = stateDisabled
	default:
		return fmt.Errorf("event: unknown mechanism %v", mech)
	}
	return nil
}

// DiscardEvents drops any events already queued for (type, mechanism)
// without changing its enabled/disabled state. The dispatcher models
// "discarded" as a queue-clear rather than a sticky state, so re-enabling
// still works.
func (d *Dispatcher) DiscardEvents(t attr.EventType, mech attr.EventMechanism) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts := d.typeStateLocked(t)
	if mech == attr.MechanismQueue || mech == attr.MechanismAll {
		ts.queue = nil
	}
	return nil
}

// InstallHandler registers fn to be invoked for events of type t, returning
// an opaque handle that later addresses this specific installation —
// installing the same fn twice yields two distinct handles.
func (d *Dispatcher) InstallHandler(t attr.EventType, fn Handler, userHandle any) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts := d.typeStateLocked(t)
	handle := uuid.New()
	ts.handlers = append(ts.handlers, handlerEntry{handle: handle, fn: fn, userHandle: userHandle})
	return handle
}

// UninstallHandler removes the handler installed under handle for type t.
func (d *Dispatcher) UninstallHandler(t attr.EventType, handle uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts, ok := d.types[t]
	if !ok {
		return fmt.Errorf("event: no handlers installed for %v", t)
	}
	for i, h := range ts.handlers {
		if h.handle == handle {
			ts.handlers = append(ts.handlers[:i], ts.handlers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event: handle %s is not installed for %v", handle, t)
}

// Deliver is called by a backend session (or anything producing events) to
// hand one notification of type t to the dispatcher. Queue-mechanism
// waiters are woken; handler-mechanism callbacks run on their own goroutine,
// each guarded by a recover() boundary that routes a panic to the error hook
// instead of letting it cross back into the caller.
func (d *Dispatcher) Deliver(t attr.EventType, ctx any) {
	d.mu.Lock()
	ts := d.typeStateLocked(t)
	ev := Event{Type: t, Context: ctx}

	var waiters []chan Event
	if ts.state == stateEnabledQueue || ts.state == stateEnabledBoth {
		if len(ts.waiters) > 0 {
			waiters = ts.waiters
			ts.waiters = nil
		} else {
			ts.queue = append(ts.queue, ev)
		}
	}

	var handlers []handlerEntry
	if ts.state == stateEnabledHandler || ts.state == stateEnabledBoth {
		handlers = append(handlers, ts.handlers...)
	}
	resource := d.resource
	errHook := d.onHandlerError
	d.mu.Unlock()

	for _, w := range waiters {
		w <- ev
	}
	for _, h := range handlers {
		go d.invoke(h, ev, resource, errHook)
	}
}

func (d *Dispatcher) invoke(h handlerEntry, ev Event, resource any, errHook func(error)) {
	defer func() {
		if r := recover(); r != nil {
			errHook(&HandlerError{EventType: ev.Type, Handle: h.handle, Recovered: r})
		}
	}()
	h.fn(resource, ev, h.userHandle)
}

// Wait blocks until an event of type t is available (queued already, or
// delivered while waiting) or timeoutMs elapses. A timeout is reported via
// WaitResponse.TimedOut, never as an error.
func (d *Dispatcher) Wait(t attr.EventType, timeoutMs uint32) (WaitResponse, error) {
	d.mu.Lock()
	ts := d.typeStateLocked(t)
	if ts.state != stateEnabledQueue && ts.state != stateEnabledBoth {
		d.mu.Unlock()
		return WaitResponse{}, fmt.Errorf("event: type %v is not enabled for queue delivery", t)
	}
	if len(ts.queue) > 0 {
		ev := ts.queue[0]
		ts.queue = ts.queue[1:]
		d.mu.Unlock()
		return WaitResponse{Event: ev}, nil
	}
	ch := make(chan Event, 1)
	ts.waiters = append(ts.waiters, ch)
	d.mu.Unlock()

	if timeoutMs == attr.TimeoutInfinite {
		return WaitResponse{Event: <-ch}, nil
	}
	select {
	case ev := <-ch:
		return WaitResponse{Event: ev}, nil
	case <-afterMs(timeoutMs):
		return WaitResponse{Event: Event{Type: t, TimedOut: true}, TimedOut: true}, nil
	}
}

// Close forces every (type) for this dispatcher into the disabled state,
// mirroring what a resource's close does to its event bookkeeping.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ts := range d.types {
		ts.state = stateDisabled
		ts.queue = nil
		ts.handlers = nil
		for _, w := range ts.waiters {
			close(w)
		}
		ts.waiters = nil
	}
}
