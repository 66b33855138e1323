// event/dispatcher.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package event

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"
	"github.com/tacmap/mapcore/util"
)

// Listener receives dispatched events. Implementations must be
// comparable, since listeners are identified by equality when they are
// removed; use NewListener to wrap a function.
type Listener interface {
	OnMapEvent(e Event)
}

type listenerFunc struct {
	fn func(Event)
}

func (l *listenerFunc) OnMapEvent(e Event) { l.fn(e) }

// NewListener returns a Listener that calls fn. Each call returns a
// distinct listener, so the result must be kept in order to remove it
// later.
func NewListener(fn func(Event)) Listener {
	return &listenerFunc{fn: fn}
}

// registration is the per-type state of a scope frame.
type registration struct {
	ignored   bool
	listeners []Listener
}

// frame is one scope of global listener registrations.
type frame map[Type]*registration

func (f frame) clone() frame {
	c := make(frame, len(f))
	for t, r := range f {
		c[t] = &registration{ignored: r.ignored, listeners: slices.Clone(r.listeners)}
	}
	return c
}

func (f frame) get(t Type) *registration {
	r, ok := f[t]
	if !ok {
		r = &registration{}
		f[t] = r
	}
	return r
}

// Dispatcher delivers events to global listeners, registered by event
// type in the current scope frame, and to listeners registered against
// the event's item.
//
// Scope frames form a stack above a base frame that is never popped.
// PushListeners starts a new frame that begins as a copy of the current
// one; changes made while it is active are discarded by PopListeners.
type Dispatcher struct {
	lg      *log.Logger
	metrics *Metrics

	mu            sync.Mutex
	base          frame
	stack         []frame // frames pushed above base
	itemListeners map[mapitem.SerialID][]Listener
}

// NewDispatcher returns a Dispatcher; metrics may be nil.
func NewDispatcher(lg *log.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		lg:            lg,
		metrics:       metrics,
		base:          make(frame),
		itemListeners: make(map[mapitem.SerialID][]Listener),
	}
}

// top returns the current frame; d.mu must be held.
func (d *Dispatcher) top() frame {
	if n := len(d.stack); n > 0 {
		return d.stack[n-1]
	}
	return d.base
}

// PushListeners starts a new listener scope that is initially identical
// to the current one.
func (d *Dispatcher) PushListeners() {
	d.mu.Lock()
	d.stack = append(d.stack, d.top().clone())
	depth := len(d.stack)
	d.mu.Unlock()

	d.metrics.setDepth(depth)
	d.lg.Debug("pushed listener scope", slog.Int("depth", depth))
}

// PopListeners discards the current scope, restoring the one that was
// active when it was pushed. It returns false, doing nothing, if only
// the base frame remains.
func (d *Dispatcher) PopListeners() bool {
	d.mu.Lock()
	if len(d.stack) == 0 {
		d.mu.Unlock()
		d.lg.Warn("attempted to pop base listener frame")
		return false
	}
	d.stack = d.stack[:len(d.stack)-1]
	depth := len(d.stack)
	d.mu.Unlock()

	d.metrics.setDepth(depth)
	d.lg.Debug("popped listener scope", slog.Int("depth", depth))
	return true
}

// Depth returns the number of frames pushed above the base frame.
func (d *Dispatcher) Depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stack)
}

// AddListener registers l for events of type t in the current frame.
// Registering a listener that is already present for t is rejected and
// logged.
func (d *Dispatcher) AddListener(t Type, l Listener) bool {
	checkListener(t, l)

	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.top().get(t)
	if slices.Contains(r.listeners, l) {
		d.warnDuplicate(t, l)
		return false
	}
	r.listeners = append(r.listeners, l)
	return true
}

func (d *Dispatcher) RemoveListener(t Type, l Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return removeFrom(d.top(), t, l)
}

// AddListenerToBase registers l in the base frame and in every frame
// currently pushed above it, so that the registration is active now and
// survives any sequence of pushes and pops.
func (d *Dispatcher) AddListenerToBase(t Type, l Listener) bool {
	checkListener(t, l)

	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.base.get(t)
	if slices.Contains(r.listeners, l) {
		d.warnDuplicate(t, l)
		return false
	}
	r.listeners = append(r.listeners, l)

	for _, f := range d.stack {
		if r := f.get(t); !slices.Contains(r.listeners, l) {
			r.listeners = append(r.listeners, l)
		}
	}
	return true
}

// RemoveListenerFromBase removes l from the base frame and from all of
// the pushed frames.
func (d *Dispatcher) RemoveListenerFromBase(t Type, l Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := removeFrom(d.base, t, l)
	for _, f := range d.stack {
		removeFrom(f, t, l)
	}
	return removed
}

// AddListenerAll registers l for every event type in the current frame.
func (d *Dispatcher) AddListenerAll(l Listener) {
	for _, t := range Types() {
		d.AddListener(t, l)
	}
}

func (d *Dispatcher) RemoveListenerAll(l Listener) {
	for _, t := range Types() {
		d.RemoveListener(t, l)
	}
}

// Ignore mutes events of type t in the current frame without
// unregistering their listeners.
func (d *Dispatcher) Ignore(t Type) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.top().get(t).ignored = true
}

func (d *Dispatcher) Allow(t Type) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.top()[t]; ok {
		r.ignored = false
	}
}

func (d *Dispatcher) Ignored(t Type) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.top()[t]
	return ok && r.ignored
}

// HasListener reports whether the current frame has any listeners for
// t; callers may use it to skip building events nobody will receive.
func (d *Dispatcher) HasListener(t Type) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.top()[t]
	return ok && len(r.listeners) > 0
}

// ListenerCount returns the number of listeners for t in the current
// frame.
func (d *Dispatcher) ListenerCount(t Type) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.top()[t]; ok {
		return len(r.listeners)
	}
	return 0
}

///////////////////////////////////////////////////////////////////////////
// Item-scoped listeners

// AddItemListener registers l to receive every dispatched event whose
// item is item, independent of the scope frames. The registration is
// dropped automatically when the item is disposed.
func (d *Dispatcher) AddItemListener(item mapitem.Item, l Listener) bool {
	if item == nil || l == nil {
		panic("event: AddItemListener called with nil item or listener")
	}
	if item.Disposed() {
		d.lg.Warn("attempted to add listener to disposed item", slog.Any("item", item))
		return false
	}

	d.mu.Lock()
	serial := item.SerialID()
	ls, hooked := d.itemListeners[serial]
	if slices.Contains(ls, l) {
		d.mu.Unlock()
		d.lg.Warn("item listener already registered", slog.Any("item", item),
			slog.String("listener", fmt.Sprintf("%T", l)))
		return false
	}
	d.itemListeners[serial] = append(ls, l)
	d.mu.Unlock()

	if !hooked {
		item.AddDisposeHook(d.ClearItemListeners)
	}
	return true
}

func (d *Dispatcher) RemoveItemListener(item mapitem.Item, l Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	serial := item.SerialID()
	ls, ok := d.itemListeners[serial]
	if !ok || !slices.Contains(ls, l) {
		return false
	}
	// An empty entry is kept so that the dispose hook is not added again.
	d.itemListeners[serial] = slices.DeleteFunc(slices.Clone(ls), func(il Listener) bool { return il == l })
	return true
}

// ClearItemListeners removes all of the listeners registered against
// item.
func (d *Dispatcher) ClearItemListeners(item mapitem.Item) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.itemListeners, item.SerialID())
}

// ItemListenerCount returns the number of listeners registered against
// item.
func (d *Dispatcher) ItemListenerCount(item mapitem.Item) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.itemListeners[item.SerialID()])
}

///////////////////////////////////////////////////////////////////////////
// Dispatch

// Dispatch delivers e to the current frame's listeners for its type,
// unless the type is ignored, and then to the listeners registered
// against its item. Listeners are called in registration order with no
// locks held; a listener that panics is logged and does not prevent
// delivery to the others.
func (d *Dispatcher) Dispatch(e Event) {
	d.mu.Lock()
	var global, perItem []Listener
	if r, ok := d.top()[e.typ]; ok && !r.ignored {
		global = slices.Clone(r.listeners)
	}
	if e.item != nil {
		perItem = slices.Clone(d.itemListeners[e.item.SerialID()])
	}
	d.mu.Unlock()

	d.metrics.dispatch(e.typ)

	for _, l := range global {
		d.deliver(l, e)
	}
	for _, l := range perItem {
		d.deliver(l, e)
	}
}

func (d *Dispatcher) deliver(l Listener, e Event) {
	defer func() {
		if err := recover(); err != nil {
			d.metrics.failure(e.typ)
			d.lg.Error("map event listener panicked", slog.Any("event", e),
				slog.String("listener", fmt.Sprintf("%T", l)), slog.Any("error", err),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	l.OnMapEvent(e)
}

// Clear removes all listeners and scope frames.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.base = make(frame)
	d.stack = nil
	clear(d.itemListeners)
	d.mu.Unlock()

	d.metrics.setDepth(0)
}

func (d *Dispatcher) LogValue() slog.Value {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, r := range d.top() {
		n += len(r.listeners)
	}
	return slog.GroupValue(
		slog.Int("depth", len(d.stack)),
		slog.Int("listeners", n),
		slog.Int("items", len(d.itemListeners)))
}

func (d *Dispatcher) warnDuplicate(t Type, l Listener) {
	d.lg.Warn("map event listener already registered", slog.String("type", t.String()),
		slog.String("listener", fmt.Sprintf("%T", l)))
}

func checkListener(t Type, l Listener) {
	if l == nil {
		panic("event: nil listener")
	}
	if !t.Valid() {
		panic(fmt.Sprintf("event: invalid event type %d", int(t)))
	}
}

func removeFrom(f frame, t Type, l Listener) bool {
	r, ok := f[t]
	if !ok {
		return false
	}
	var removed bool
	r.listeners, removed = util.DeleteFirst(r.listeners, l)
	return removed
}
