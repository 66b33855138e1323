// overlay/overlay.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package overlay manages the named overlays that contribute groups of
// items to the map and answer queries about them.
package overlay

import (
	"log/slog"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/mapitem"
)

// Overlay is the capability set that the Manager needs from an overlay.
// RootGroup and Query may both return nil: an overlay need not
// contribute items to the tree, nor support queries.
type Overlay interface {
	Identifier() string
	Name() string
	RootGroup() *mapitem.Group
	Query() Query
}

// Ordered may be implemented by overlays that want a specific position
// in the manager's listing; lower values come first. Overlays that don't
// implement it are placed after all of those that do.
type Ordered interface {
	Order() int
}

// DefaultOrder is the order of overlays that do not implement Ordered.
const DefaultOrder = 1000

func orderOf(o Overlay) int {
	if ord, ok := o.(Ordered); ok {
		return ord.Order()
	}
	return DefaultOrder
}

// Query finds items contributed by an overlay. Meta is a set of
// metadata key/value pairs that a matching item must all carry as
// string metadata; an empty set matches any item.
type Query interface {
	DeepFindItem(meta map[string]string) (mapitem.Item, bool)
	// DeepFindClosestItem returns the matching item whose center is
	// nearest to p and no farther than thresholdMeters from it; a
	// threshold of zero or less means no limit.
	DeepFindClosestItem(p geo.Point, thresholdMeters float64, meta map[string]string) (mapitem.Item, bool)
}

// GroupOverlay is an overlay backed by a single group of items.
type GroupOverlay struct {
	id, name string
	order    int
	group    *mapitem.Group
}

// NewGroupOverlay returns an overlay that contributes g. If g is nil, a
// new group named name is created.
func NewGroupOverlay(id, name string, g *mapitem.Group, order int) *GroupOverlay {
	if g == nil {
		g = mapitem.NewGroup(name, nil)
	}
	return &GroupOverlay{id: id, name: name, order: order, group: g}
}

func (o *GroupOverlay) Identifier() string        { return o.id }
func (o *GroupOverlay) Name() string              { return o.name }
func (o *GroupOverlay) Order() int                { return o.order }
func (o *GroupOverlay) RootGroup() *mapitem.Group { return o.group }
func (o *GroupOverlay) Query() Query              { return GroupQuery{o.group} }

func (o *GroupOverlay) LogValue() slog.Value {
	return slog.GroupValue(slog.String("id", o.id), slog.String("name", o.name), slog.Int("order", o.order))
}
