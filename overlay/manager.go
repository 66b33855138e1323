// overlay/manager.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package overlay

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"
)

// Hierarchy change actions.
const (
	ActionAddOverlay    = "addOverlay"
	ActionRemoveOverlay = "removeOverlay"
)

// HierarchyChange is sent to hierarchy listeners when an overlay is
// added to or removed from the manager.
type HierarchyChange struct {
	Action    string
	OverlayID string
}

// HierarchyListener is implemented by components that present the
// overlay hierarchy (e.g., an overlay list) and must refresh when it
// changes. Notifications are delivered synchronously with no locks held.
type HierarchyListener interface {
	OnHierarchyChanged(c HierarchyChange)
}

// Manager is a registry of overlays keyed by identifier. Each overlay's
// group is merged into the manager's root group while it is registered.
// Overlays may be registered at the top level or under one of the
// well-known parent buckets, which are themselves created on first use.
type Manager struct {
	lg   *log.Logger
	root *mapitem.Group

	mu        sync.Mutex
	overlays  []Overlay // top level, ordered
	parents   map[string]*Parent
	listeners []HierarchyListener
}

// NewManager returns a manager that merges overlay groups into root.
func NewManager(root *mapitem.Group, lg *log.Logger) *Manager {
	if root == nil {
		panic("overlay: NewManager called with nil root group")
	}
	return &Manager{
		lg:      lg,
		root:    root,
		parents: make(map[string]*Parent),
	}
}

// lookup finds a registered overlay by identifier, at the top level
// first and then one level into the parent buckets. m.mu must be held.
func (m *Manager) lookup(id string) (o Overlay, parent *Parent, ok bool) {
	if i := slices.IndexFunc(m.overlays, func(o Overlay) bool { return o.Identifier() == id }); i != -1 {
		return m.overlays[i], nil, true
	}
	for _, name := range ParentNames() {
		if p, ok := m.parents[name]; ok {
			if o, ok := p.find(id); ok {
				return o, p, true
			}
		}
	}
	return nil, nil, false
}

// AddOverlay registers o at the top level. It returns false, leaving the
// registry unchanged, if an overlay with the same identifier is already
// registered anywhere in the manager.
func (m *Manager) AddOverlay(o Overlay) bool {
	if o == nil {
		panic("overlay: AddOverlay called with nil overlay")
	}

	m.mu.Lock()
	if _, _, ok := m.lookup(o.Identifier()); ok {
		m.mu.Unlock()
		m.lg.Warn("overlay already registered", slog.String("id", o.Identifier()))
		return false
	}
	m.overlays = append(m.overlays, o)
	sortOverlays(m.overlays)
	m.mu.Unlock()

	if g := o.RootGroup(); g != nil {
		m.root.AddGroup(g)
	}

	m.lg.Info("added overlay", slog.String("id", o.Identifier()), slog.String("name", o.Name()))
	m.notify(HierarchyChange{Action: ActionAddOverlay, OverlayID: o.Identifier()})
	return true
}

// AddOverlayToParent registers o under the named parent bucket, which
// is created if necessary. It returns false if o's identifier is already
// registered or if the bucket can't be created because another overlay
// has taken its identifier.
func (m *Manager) AddOverlayToParent(parent string, o Overlay) bool {
	if o == nil {
		panic("overlay: AddOverlayToParent called with nil overlay")
	}
	p := m.Parent(parent)
	if p == nil {
		return false
	}

	m.mu.Lock()
	if m.parents[parent] != p {
		// The bucket was removed after we looked it up.
		m.mu.Unlock()
		m.lg.Warn("parent bucket removed", slog.String("id", o.Identifier()), slog.String("parent", parent))
		return false
	}
	if _, _, ok := m.lookup(o.Identifier()); ok {
		m.mu.Unlock()
		m.lg.Warn("overlay already registered", slog.String("id", o.Identifier()), slog.String("parent", parent))
		return false
	}
	p.add(o)
	m.mu.Unlock()

	p.merge(o)

	m.lg.Info("added overlay", slog.String("id", o.Identifier()), slog.String("parent", parent))
	m.notify(HierarchyChange{Action: ActionAddOverlay, OverlayID: o.Identifier()})
	return true
}

// Parent returns the named parent bucket, creating and registering it
// if it does not yet exist. Only the well-known bucket names may be
// used. It returns nil if a different overlay is registered under the
// bucket's identifier.
func (m *Manager) Parent(name string) *Parent {
	order, ok := parentOrder[name]
	if !ok {
		panic(fmt.Sprintf("overlay: %q is not a parent bucket", name))
	}

	m.mu.Lock()
	if p, ok := m.parents[name]; ok {
		m.mu.Unlock()
		return p
	}
	if _, _, ok := m.lookup(name); ok {
		m.mu.Unlock()
		m.lg.Warn("parent bucket identifier already in use", slog.String("parent", name))
		return nil
	}
	p := newParent(name, order, mapitem.NewGroup(name, m.lg))
	m.parents[name] = p
	m.overlays = append(m.overlays, p)
	sortOverlays(m.overlays)
	m.mu.Unlock()

	m.root.AddGroup(p.RootGroup())

	m.lg.Info("added parent bucket", slog.String("id", name))
	m.notify(HierarchyChange{Action: ActionAddOverlay, OverlayID: name})
	return p
}

// RemoveOverlay unregisters the overlay with the given identifier,
// looking at the top level first and then in the parent buckets. Its
// group is removed from the tree. It returns false if no such overlay is
// registered.
func (m *Manager) RemoveOverlay(id string) bool {
	m.mu.Lock()
	o, parent, ok := m.lookup(id)
	if !ok {
		m.mu.Unlock()
		return false
	}
	if parent != nil {
		parent.remove(id)
	} else {
		m.overlays = slices.DeleteFunc(m.overlays, func(ov Overlay) bool { return ov.Identifier() == id })
		if p, ok := o.(*Parent); ok && m.parents[p.name] == p {
			delete(m.parents, p.name)
		}
	}
	m.mu.Unlock()

	if parent != nil {
		parent.unmerge(o)
	} else if g := o.RootGroup(); g != nil && g.Parent() == m.root {
		m.root.RemoveGroup(g)
	}

	m.lg.Info("removed overlay", slog.String("id", id))
	m.notify(HierarchyChange{Action: ActionRemoveOverlay, OverlayID: id})
	return true
}

// GetOverlay returns the registered overlay with the given identifier.
func (m *Manager) GetOverlay(id string) (Overlay, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, _, ok := m.lookup(id)
	return o, ok
}

// Overlays returns the top-level overlays, including parent buckets, in
// display order.
func (m *Manager) Overlays() []Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.overlays)
}

// Len returns the number of registered overlays, not counting parent
// buckets.
func (m *Manager) Len() int {
	n := 0
	for _, o := range m.Overlays() {
		if p, ok := o.(*Parent); ok {
			n += len(p.Children())
		} else {
			n++
		}
	}
	return n
}

// DeepFindItem searches each overlay, in display order, and returns the
// first matching item.
func (m *Manager) DeepFindItem(meta map[string]string) (mapitem.Item, bool) {
	for _, o := range m.Overlays() {
		if q := o.Query(); q != nil {
			if item, ok := q.DeepFindItem(meta); ok {
				return item, true
			}
		}
	}
	return nil, false
}

// DeepFindClosestItem returns the matching item nearest to p across all
// overlays.
func (m *Manager) DeepFindClosestItem(p geo.Point, thresholdMeters float64, meta map[string]string) (mapitem.Item, bool) {
	return closest(m.Overlays(), p, thresholdMeters, meta)
}

func (m *Manager) AddHierarchyListener(l HierarchyListener) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.Contains(m.listeners, l) {
		m.lg.Warn("hierarchy listener already registered", slog.String("listener", fmt.Sprintf("%T", l)))
		return false
	}
	m.listeners = append(m.listeners, l)
	return true
}

func (m *Manager) RemoveHierarchyListener(l HierarchyListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = slices.DeleteFunc(m.listeners, func(hl HierarchyListener) bool { return hl == l })
}

func (m *Manager) notify(c HierarchyChange) {
	m.mu.Lock()
	ls := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, l := range ls {
		l.OnHierarchyChanged(c)
	}
}

func (m *Manager) LogValue() slog.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.overlays))
	for i, o := range m.overlays {
		ids[i] = o.Identifier()
	}
	return slog.GroupValue(slog.Any("overlays", ids), slog.Int("parents", len(m.parents)))
}
