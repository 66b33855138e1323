// event/forwarder.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package event

import (
	"log/slog"
	"sync"

	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"
)

// Forwarder observes a group tree and dispatches an event for each
// structural change to it: items and groups being added and removed,
// items moving between groups, and item properties changing.
//
// Items that carry the mapitem.TransferKey flag are being relocated; the
// removal half of such a move is not reported, and the addition half is
// reported as ItemGroupChanged rather than ItemAdded.
type Forwarder struct {
	d      *Dispatcher
	lg     *log.Logger
	source string

	mu     sync.Mutex
	groups map[*mapitem.Group]struct{}
	items  map[mapitem.SerialID]struct{}
}

func NewForwarder(d *Dispatcher, lg *log.Logger) *Forwarder {
	return &Forwarder{
		d:      d,
		lg:     lg,
		source: "forwarder",
		groups: make(map[*mapitem.Group]struct{}),
		items:  make(map[mapitem.SerialID]struct{}),
	}
}

// Attach starts observing the tree rooted at root. No events are
// dispatched for what is already in the tree.
func (f *Forwarder) Attach(root *mapitem.Group) {
	f.attach(root, false)
}

// Detach stops observing the tree rooted at root.
func (f *Forwarder) Detach(root *mapitem.Group) {
	for _, c := range root.Groups() {
		f.Detach(c)
	}
	for _, item := range root.Items() {
		f.unwatch(item)
	}

	f.mu.Lock()
	_, ok := f.groups[root]
	delete(f.groups, root)
	f.mu.Unlock()

	if ok {
		root.RemoveItemListListener(f)
		root.RemoveGroupListListener(f)
	}
}

// Attached reports whether g is being observed.
func (f *Forwarder) Attached(g *mapitem.Group) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.groups[g]
	return ok
}

// attach registers the forwarder with g and its subtree. If emit is
// set, the subtree is new to the observed tree and its contents are
// reported: each item, then each child group, then g itself.
func (f *Forwarder) attach(g *mapitem.Group, emit bool) {
	f.mu.Lock()
	_, seen := f.groups[g]
	f.groups[g] = struct{}{}
	f.mu.Unlock()

	if !seen {
		g.AddItemListListener(f)
		g.AddGroupListListener(f)
	}

	for _, item := range g.Items() {
		f.watch(item)
		if emit {
			f.dispatch(NewBuilder(ItemAdded).Item(item).Group(g))
		}
	}
	for _, c := range g.Groups() {
		f.attach(c, emit)
	}

	if emit {
		f.dispatch(NewBuilder(GroupAdded).Group(g))
	}
}

func (f *Forwarder) watch(item mapitem.Item) {
	f.mu.Lock()
	_, ok := f.items[item.SerialID()]
	f.items[item.SerialID()] = struct{}{}
	f.mu.Unlock()

	if !ok {
		item.AddChangeListener(f)
	}
}

func (f *Forwarder) unwatch(item mapitem.Item) {
	f.mu.Lock()
	_, ok := f.items[item.SerialID()]
	delete(f.items, item.SerialID())
	f.mu.Unlock()

	if ok {
		item.RemoveChangeListener(f)
	}
}

func (f *Forwarder) dispatch(b *Builder) {
	e := b.Source(f.source).Build()
	f.lg.Debug("forwarding tree change", slog.Any("event", e))
	f.d.Dispatch(e)
}

func (f *Forwarder) OnItemAdded(item mapitem.Item, g *mapitem.Group) {
	f.watch(item)

	t := ItemAdded
	if mapitem.InTransfer(item) {
		t = ItemGroupChanged
	}
	f.dispatch(NewBuilder(t).Item(item).Group(g))
}

func (f *Forwarder) OnItemRemoved(item mapitem.Item, g *mapitem.Group) {
	f.unwatch(item)

	if mapitem.InTransfer(item) {
		// The matching addition reports the move.
		return
	}
	f.dispatch(NewBuilder(ItemRemoved).Item(item).Group(g))
}

func (f *Forwarder) OnGroupAdded(child, parent *mapitem.Group) {
	f.attach(child, true)
}

func (f *Forwarder) OnGroupRemoved(child, parent *mapitem.Group) {
	f.Detach(child)
	f.dispatch(NewBuilder(GroupRemoved).Group(child).Extra("parent", parent.Name()))
}

// OnItemChanged reports property changes as ItemRefresh; group changes
// are reported through the item list notifications instead.
func (f *Forwarder) OnItemChanged(item mapitem.Item, what mapitem.Change) {
	if what == mapitem.ChangeGroup {
		return
	}
	f.dispatch(NewBuilder(ItemRefresh).Item(item).Group(item.Group()).Extra("change", what.String()))
}
