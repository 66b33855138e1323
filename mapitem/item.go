// mapitem/item.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package mapitem defines the entities drawn or tracked on the map and
// the group tree that holds them.
package mapitem

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/metadata"

	"github.com/google/uuid"
)

// SerialID is a process-local identifier; it is never reused while the
// process is running but is not stable across runs. UIDs are used for
// anything that needs to be persisted or shared.
type SerialID int64

var lastSerialID atomic.Int64

func NextSerialID() SerialID {
	return SerialID(lastSerialID.Add(1))
}

// Kind tags the concrete variant of an Item.
type Kind int

const (
	KindPoint Kind = iota
	KindPolyline
	KindMultiPoint
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindPolyline:
		return "polyline"
	case KindMultiPoint:
		return "multipoint"
	case KindComposite:
		return "composite"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Identified interface {
	SerialID() SerialID
	UID() string
}

type Visibility interface {
	Visible() bool
	SetVisible(v bool)
}

type Geometry interface {
	// Bounds returns the item's extent; ok is false for items that have
	// no geometry (e.g., an empty polyline).
	Bounds() (b geo.Bounds, ok bool)
	Center() (p geo.Point, ok bool)
}

// Item is implemented by all of the map entity variants: *Point,
// *Polyline, *MultiPoint, and *Composite.
type Item interface {
	Identified
	Visibility
	Geometry
	metadata.Holder

	Kind() Kind
	// Type is the free-form type code of the item (e.g. "a-f-G-U-C").
	Type() string
	SetType(t string)
	Title() string
	SetTitle(t string)

	// Group returns the group that currently owns the item, or nil.
	Group() *Group

	AddChangeListener(l ChangeListener) bool
	RemoveChangeListener(l ChangeListener)
	// AddDisposeHook registers a function that is called once when the
	// item is disposed.
	AddDisposeHook(fn func(Item))
	Dispose()
	Disposed() bool

	base() *itemBase
}

// Change identifies which property of an item changed.
type Change int

const (
	ChangeVisible Change = iota
	ChangeGeometry
	ChangeTitle
	ChangeType
	ChangeGroup
)

func (c Change) String() string {
	return [...]string{"visible", "geometry", "title", "type", "group"}[c]
}

// ChangeListener is notified synchronously, on the mutating goroutine,
// after a property of an item has changed.
type ChangeListener interface {
	OnItemChanged(item Item, what Change)
}

// itemBase holds the state common to all item variants. It is embedded
// (by pointer) in each of them.
type itemBase struct {
	*metadata.Map

	self   Item
	serial SerialID
	uid    string
	kind   Kind
	lg     *log.Logger

	mu           sync.RWMutex
	typ          string
	title        string
	visible      bool
	group        *Group
	disposed     bool
	listeners    []ChangeListener
	disposeHooks []func(Item)
}

func newItemBase(self Item, kind Kind, uid string, lg *log.Logger) *itemBase {
	if uid == "" {
		uid = uuid.NewString()
	}
	return &itemBase{
		Map:     metadata.NewMap(lg),
		self:    self,
		serial:  NextSerialID(),
		uid:     uid,
		kind:    kind,
		lg:      lg,
		visible: true,
	}
}

func (b *itemBase) base() *itemBase    { return b }
func (b *itemBase) SerialID() SerialID { return b.serial }
func (b *itemBase) UID() string        { return b.uid }
func (b *itemBase) Kind() Kind         { return b.kind }

func (b *itemBase) Type() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.typ
}

func (b *itemBase) SetType(t string) {
	if b.update(func() bool { changed := b.typ != t; b.typ = t; return changed }) {
		b.notify(ChangeType)
	}
}

func (b *itemBase) Title() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.title
}

func (b *itemBase) SetTitle(t string) {
	if b.update(func() bool { changed := b.title != t; b.title = t; return changed }) {
		b.notify(ChangeTitle)
	}
}

func (b *itemBase) Visible() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.visible
}

func (b *itemBase) SetVisible(v bool) {
	if b.update(func() bool { changed := b.visible != v; b.visible = v; return changed }) {
		b.notify(ChangeVisible)
	}
}

func (b *itemBase) Group() *Group {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.group
}

// claimGroup makes g the item's owner, returning the previous owner.
// It fails if the item is already owned by g or has been disposed. Only
// the group that the item currently names may hold it.
func (b *itemBase) claimGroup(g *Group) (old *Group, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed || b.group == g {
		return b.group, false
	}
	old, b.group = b.group, g
	return old, true
}

// releaseClaim undoes a claim by g that was not followed by an insert,
// without notifying listeners.
func (b *itemBase) releaseClaim(g *Group) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.group == g {
		b.group = nil
	}
}

// clearGroup resets the item's group if it is still g; it returns false
// if the item has already moved elsewhere.
func (b *itemBase) clearGroup(g *Group) bool {
	if b.update(func() bool {
		if b.group != g {
			return false
		}
		b.group = nil
		return true
	}) {
		b.notify(ChangeGroup)
		return true
	}
	return false
}

func (b *itemBase) update(fn func() bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn()
}

func (b *itemBase) AddChangeListener(l ChangeListener) bool {
	b.mu.Lock()
	if slices.Contains(b.listeners, l) {
		b.mu.Unlock()
		// The item's LogValue takes b.mu, so it must not be held here.
		b.lg.Warn("change listener already registered", slog.Any("item", b.self),
			slog.String("listener", fmt.Sprintf("%T", l)))
		return false
	}
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
	return true
}

func (b *itemBase) RemoveChangeListener(l ChangeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = slices.DeleteFunc(b.listeners, func(cl ChangeListener) bool { return cl == l })
}

// notify calls the change listeners with the item's lock released so
// that they may freely call back into the item.
func (b *itemBase) notify(what Change) {
	b.mu.RLock()
	ls := slices.Clone(b.listeners)
	b.mu.RUnlock()

	for _, l := range ls {
		l.OnItemChanged(b.self, what)
	}
}

func (b *itemBase) AddDisposeHook(fn func(Item)) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		b.lg.Warn("adding dispose hook to disposed item", slog.Any("item", b.self))
		return
	}
	b.disposeHooks = append(b.disposeHooks, fn)
	b.mu.Unlock()
}

// Dispose removes the item from its group, runs the dispose hooks, and
// drops all of the item's listeners. Disposing an item more than once is
// harmless.
func (b *itemBase) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	g := b.group
	hooks := b.disposeHooks
	b.disposeHooks = nil
	b.mu.Unlock()

	if g != nil {
		g.RemoveItem(b.self)
	}
	for _, fn := range hooks {
		fn(b.self)
	}

	b.mu.Lock()
	b.listeners = nil
	b.mu.Unlock()
}

func (b *itemBase) Disposed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.disposed
}

func (b *itemBase) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("serial", int64(b.serial)),
		slog.String("uid", b.uid),
		slog.String("kind", b.kind.String()),
		slog.String("title", b.Title()))
}

func (b *itemBase) String() string {
	return fmt.Sprintf("%s %s (#%d) %q", b.kind, b.uid, b.serial, b.Title())
}
