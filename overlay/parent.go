// overlay/parent.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package overlay

import (
	"slices"
	"sync"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/mapitem"
)

// Well-known parent buckets, in display order.
const (
	AlertsParent  = "alerts"
	MarkersParent = "markers"
	ShapesParent  = "shapes"
	LayersParent  = "layers"
	MiscParent    = "misc"
)

var parentOrder = map[string]int{
	AlertsParent:  0,
	MarkersParent: 1,
	ShapesParent:  2,
	LayersParent:  3,
	MiscParent:    4,
}

// ParentNames returns the names of the well-known parent buckets in
// display order.
func ParentNames() []string {
	return []string{AlertsParent, MarkersParent, ShapesParent, LayersParent, MiscParent}
}

// Parent is an overlay that groups other overlays. Its children's groups
// are merged under its own group and its query searches all of them.
type Parent struct {
	name  string
	order int
	group *mapitem.Group

	mu       sync.Mutex
	children []Overlay
}

func newParent(name string, order int, g *mapitem.Group) *Parent {
	return &Parent{name: name, order: order, group: g}
}

func (p *Parent) Identifier() string        { return p.name }
func (p *Parent) Name() string              { return p.name }
func (p *Parent) Order() int                { return p.order }
func (p *Parent) RootGroup() *mapitem.Group { return p.group }
func (p *Parent) Query() Query              { return parentQuery{p} }

// Children returns the parent's overlays, ordered.
func (p *Parent) Children() []Overlay {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.children)
}

func (p *Parent) find(id string) (Overlay, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := slices.IndexFunc(p.children, func(o Overlay) bool { return o.Identifier() == id }); i != -1 {
		return p.children[i], true
	}
	return nil, false
}

// add registers o as a child; its group is merged separately by merge
// so that tree notifications are not sent with the manager locked.
func (p *Parent) add(o Overlay) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children = append(p.children, o)
	sortOverlays(p.children)
}

func (p *Parent) merge(o Overlay) {
	if g := o.RootGroup(); g != nil {
		p.group.AddGroup(g)
	}
}

func (p *Parent) unmerge(o Overlay) {
	if g := o.RootGroup(); g != nil && g.Parent() == p.group {
		p.group.RemoveGroup(g)
	}
}

func (p *Parent) remove(id string) (Overlay, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.IndexFunc(p.children, func(o Overlay) bool { return o.Identifier() == id })
	if i == -1 {
		return nil, false
	}
	o := p.children[i]
	p.children = slices.Delete(p.children, i, i+1)
	return o, true
}

type parentQuery struct {
	p *Parent
}

func (q parentQuery) DeepFindItem(meta map[string]string) (mapitem.Item, bool) {
	for _, o := range q.p.Children() {
		if oq := o.Query(); oq != nil {
			if item, ok := oq.DeepFindItem(meta); ok {
				return item, true
			}
		}
	}
	return nil, false
}

func (q parentQuery) DeepFindClosestItem(pt geo.Point, thresholdMeters float64, meta map[string]string) (mapitem.Item, bool) {
	return closest(q.p.Children(), pt, thresholdMeters, meta)
}

// closest returns the nearest match across all of the overlays.
func closest(overlays []Overlay, pt geo.Point, thresholdMeters float64, meta map[string]string) (mapitem.Item, bool) {
	var best mapitem.Item
	var bestDist float64
	for _, o := range overlays {
		oq := o.Query()
		if oq == nil {
			continue
		}
		item, ok := oq.DeepFindClosestItem(pt, thresholdMeters, meta)
		if !ok {
			continue
		}
		c, _ := item.Center()
		if d := pt.DistanceMeters(c); best == nil || d < bestDist {
			best, bestDist = item, d
		}
	}
	return best, best != nil
}

func sortOverlays(o []Overlay) {
	slices.SortStableFunc(o, func(a, b Overlay) int {
		return orderOf(a) - orderOf(b)
	})
}
