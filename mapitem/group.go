// mapitem/group.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapitem

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/metadata"

	"github.com/google/uuid"
)

// ItemListListener is notified when items are added to or removed from a
// group. Notifications are delivered synchronously on the goroutine that
// made the change, after it has been made and with no locks held.
type ItemListListener interface {
	OnItemAdded(item Item, g *Group)
	OnItemRemoved(item Item, g *Group)
}

// GroupListListener is notified when child groups are added to or
// removed from a group, with the same delivery guarantees as
// ItemListListener.
type GroupListListener interface {
	OnGroupAdded(child, parent *Group)
	OnGroupRemoved(child, parent *Group)
}

// Group is a node in the map's item tree. It holds items, in insertion
// order, and child groups. Each group has at most one parent and the
// parent links never form a cycle.
type Group struct {
	*metadata.Map

	serial SerialID
	uid    string
	lg     *log.Logger

	mu             sync.RWMutex
	name           string
	visible        bool
	parent         *Group
	items          []Item
	itemIndex      map[SerialID]Item
	groups         []*Group
	itemListeners  []ItemListListener
	groupListeners []GroupListListener
}

func NewGroup(name string, lg *log.Logger) *Group {
	return &Group{
		Map:       metadata.NewMap(lg),
		serial:    NextSerialID(),
		uid:       uuid.NewString(),
		lg:        lg,
		name:      name,
		visible:   true,
		itemIndex: make(map[SerialID]Item),
	}
}

func (g *Group) SerialID() SerialID { return g.serial }
func (g *Group) UID() string        { return g.uid }

func (g *Group) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

func (g *Group) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = name
}

func (g *Group) Visible() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.visible
}

// SetVisible sets the visibility of the group and, recursively, of all
// of its items and child groups.
func (g *Group) SetVisible(v bool) {
	g.mu.Lock()
	g.visible = v
	items, groups := slices.Clone(g.items), slices.Clone(g.groups)
	g.mu.Unlock()

	for _, item := range items {
		item.SetVisible(v)
	}
	for _, c := range groups {
		c.SetVisible(v)
	}
}

func (g *Group) Parent() *Group {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.parent
}

func (g *Group) Root() *Group {
	r := g
	for p := r.Parent(); p != nil; p = r.Parent() {
		r = p
	}
	return r
}

// Path returns the names of the groups from the root (exclusive) down to
// g (inclusive).
func (g *Group) Path() []string {
	var path []string
	for c := g; c.Parent() != nil; c = c.Parent() {
		path = append(path, c.Name())
	}
	slices.Reverse(path)
	return path
}

// IsAncestorOf reports whether g is o or one of o's ancestors.
func (g *Group) IsAncestorOf(o *Group) bool {
	for c := o; c != nil; c = c.Parent() {
		if c == g {
			return true
		}
	}
	return false
}

///////////////////////////////////////////////////////////////////////////
// Items

// AddItem adds item to the group. If the item belongs to another group,
// it is first removed from it; callers that want the move to be reported
// as a relocation rather than a removal should use Transfer. AddItem
// returns false if the item is already in g or has been disposed.
//
// Concurrent adds of the same item to different groups are safe: the
// item ends up in exactly one of them.
func (g *Group) AddItem(item Item) bool {
	if item == nil {
		panic("mapitem: AddItem called with nil item")
	}
	if item.Disposed() {
		g.lg.Warn("attempted to add disposed item", slog.Any("item", item), slog.String("group", g.Name()))
		return false
	}

	b := item.base()
	old, ok := b.claimGroup(g)
	if !ok {
		return false
	}
	if old != nil {
		old.evict(item)
	}

	g.mu.Lock()
	// Another group may have claimed the item, or it may have been
	// disposed, since our claim; lock order is group then item.
	if item.Group() != g || item.Disposed() {
		g.mu.Unlock()
		b.releaseClaim(g)
		return false
	}
	if _, ok := g.itemIndex[item.SerialID()]; ok {
		g.mu.Unlock()
		return false
	}
	g.items = append(g.items, item)
	g.itemIndex[item.SerialID()] = item
	ls := slices.Clone(g.itemListeners)
	g.mu.Unlock()

	b.notify(ChangeGroup)

	for _, l := range ls {
		l.OnItemAdded(item, g)
	}
	return true
}

// RemoveItem removes item from the group, returning false if it was not
// a member.
func (g *Group) RemoveItem(item Item) bool {
	return g.removeItem(item, false)
}

// evict removes item from g after another group has claimed it. It does
// nothing if g has since reclaimed the item.
func (g *Group) evict(item Item) {
	g.removeItem(item, true)
}

func (g *Group) removeItem(item Item, evict bool) bool {
	g.mu.Lock()
	if _, ok := g.itemIndex[item.SerialID()]; !ok || (evict && item.Group() == g) {
		g.mu.Unlock()
		return false
	}
	delete(g.itemIndex, item.SerialID())
	g.items = slices.DeleteFunc(g.items, func(it Item) bool { return it.SerialID() == item.SerialID() })
	ls := slices.Clone(g.itemListeners)
	g.mu.Unlock()

	if !evict {
		item.base().clearGroup(g)
	}
	for _, l := range ls {
		l.OnItemRemoved(item, g)
	}
	return true
}

// Items returns the group's items in the order they were added.
func (g *Group) Items() []Item {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.items)
}

func (g *Group) ItemCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.items)
}

func (g *Group) ContainsItem(item Item) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.itemIndex[item.SerialID()]
	return ok
}

// ClearItems removes all of the group's items, notifying listeners of
// each removal.
func (g *Group) ClearItems() {
	for _, item := range g.Items() {
		g.RemoveItem(item)
	}
}

///////////////////////////////////////////////////////////////////////////
// Child groups

// AddGroup adds child as a child group of g. A child that already has a
// different parent is first removed from it. Adding g to itself or to
// one of its descendants would create a cycle and panics.
func (g *Group) AddGroup(child *Group) bool {
	if child == nil {
		panic("mapitem: AddGroup called with nil group")
	}
	if child.IsAncestorOf(g) {
		panic(fmt.Sprintf("mapitem: adding group %q to %q would create a cycle", child.Name(), g.Name()))
	}

	if old := child.Parent(); old == g {
		return false
	} else if old != nil {
		old.RemoveGroup(child)
	}

	g.mu.Lock()
	g.groups = append(g.groups, child)
	ls := slices.Clone(g.groupListeners)
	g.mu.Unlock()

	child.mu.Lock()
	child.parent = g
	child.mu.Unlock()

	for _, l := range ls {
		l.OnGroupAdded(child, g)
	}
	return true
}

// AddNewGroup creates a child group with the given name and adds it to g.
func (g *Group) AddNewGroup(name string) *Group {
	c := NewGroup(name, g.lg)
	g.AddGroup(c)
	return c
}

func (g *Group) RemoveGroup(child *Group) bool {
	g.mu.Lock()
	idx := slices.Index(g.groups, child)
	if idx == -1 {
		g.mu.Unlock()
		return false
	}
	g.groups = slices.Delete(g.groups, idx, idx+1)
	ls := slices.Clone(g.groupListeners)
	g.mu.Unlock()

	child.mu.Lock()
	if child.parent == g {
		child.parent = nil
	}
	child.mu.Unlock()

	for _, l := range ls {
		l.OnGroupRemoved(child, g)
	}
	return true
}

// Groups returns the group's children in the order they were added.
func (g *Group) Groups() []*Group {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.groups)
}

func (g *Group) GroupCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.groups)
}

func (g *Group) ClearGroups() {
	for _, c := range g.Groups() {
		g.RemoveGroup(c)
	}
}

// Dispose disposes all of the items in the subtree rooted at g and
// detaches g from its parent.
func (g *Group) Dispose() {
	for _, c := range g.Groups() {
		c.Dispose()
	}
	for _, item := range g.Items() {
		item.Dispose()
	}
	if p := g.Parent(); p != nil {
		p.RemoveGroup(g)
	}
}

///////////////////////////////////////////////////////////////////////////
// Listeners

// AddItemListListener registers l; registering the same listener twice is
// rejected and logged.
func (g *Group) AddItemListListener(l ItemListListener) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if slices.Contains(g.itemListeners, l) {
		g.lg.Warn("item list listener already registered", slog.String("group", g.name),
			slog.String("listener", fmt.Sprintf("%T", l)))
		return false
	}
	g.itemListeners = append(g.itemListeners, l)
	return true
}

func (g *Group) RemoveItemListListener(l ItemListListener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.itemListeners = slices.DeleteFunc(g.itemListeners, func(il ItemListListener) bool { return il == l })
}

func (g *Group) AddGroupListListener(l GroupListListener) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if slices.Contains(g.groupListeners, l) {
		g.lg.Warn("group list listener already registered", slog.String("group", g.name),
			slog.String("listener", fmt.Sprintf("%T", l)))
		return false
	}
	g.groupListeners = append(g.groupListeners, l)
	return true
}

func (g *Group) RemoveGroupListListener(l GroupListListener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.groupListeners = slices.DeleteFunc(g.groupListeners, func(gl GroupListListener) bool { return gl == l })
}

func (g *Group) LogValue() slog.Value {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slog.GroupValue(
		slog.String("name", g.name),
		slog.Int64("serial", int64(g.serial)),
		slog.Int("items", len(g.items)),
		slog.Int("groups", len(g.groups)))
}

func (g *Group) String() string {
	return fmt.Sprintf("group %q (#%d)", g.Name(), g.serial)
}
