// mapitem/kinds.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapitem

import (
	"slices"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/log"
)

///////////////////////////////////////////////////////////////////////////
// Point

// Point is a single-position item: a marker, a unit, a waypoint, ...
type Point struct {
	*itemBase
	point geo.Point
}

var _ Item = (*Point)(nil)

// NewPoint returns a new Point item; if uid is empty, a random one is
// generated.
func NewPoint(uid string, p geo.Point, lg *log.Logger) *Point {
	pt := &Point{point: p}
	pt.itemBase = newItemBase(pt, KindPoint, uid, lg)
	return pt
}

func (p *Point) Point() geo.Point {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.point
}

func (p *Point) SetPoint(pt geo.Point) {
	p.mu.Lock()
	p.point = pt
	p.mu.Unlock()

	p.notify(ChangeGeometry)
}

func (p *Point) Bounds() (geo.Bounds, bool) {
	return geo.BoundsOf([]geo.Point{p.Point()})
}

func (p *Point) Center() (geo.Point, bool) {
	return p.Point(), true
}

///////////////////////////////////////////////////////////////////////////
// Polyline and MultiPoint

// pointList is the geometry shared by Polyline and MultiPoint.
type pointList struct {
	b   *itemBase
	pts []geo.Point
}

func (pl *pointList) Points() []geo.Point {
	pl.b.mu.RLock()
	defer pl.b.mu.RUnlock()
	return slices.Clone(pl.pts)
}

func (pl *pointList) NumPoints() int {
	pl.b.mu.RLock()
	defer pl.b.mu.RUnlock()
	return len(pl.pts)
}

func (pl *pointList) SetPoints(pts []geo.Point) {
	pl.b.mu.Lock()
	pl.pts = slices.Clone(pts)
	pl.b.mu.Unlock()

	pl.b.notify(ChangeGeometry)
}

func (pl *pointList) Bounds() (geo.Bounds, bool) {
	return geo.BoundsOf(pl.Points())
}

func (pl *pointList) Center() (geo.Point, bool) {
	b, ok := pl.Bounds()
	if !ok {
		return geo.Point{}, false
	}
	return b.Center(), true
}

// Polyline is a sequence of connected points; if it is closed, it
// describes a shape (a polygon, a range ring, a sensor footprint, ...).
type Polyline struct {
	*itemBase
	pointList
	closed bool
}

var _ Item = (*Polyline)(nil)

func NewPolyline(uid string, pts []geo.Point, closed bool, lg *log.Logger) *Polyline {
	pl := &Polyline{closed: closed}
	pl.itemBase = newItemBase(pl, KindPolyline, uid, lg)
	pl.pointList = pointList{b: pl.itemBase, pts: slices.Clone(pts)}
	return pl
}

func (pl *Polyline) Closed() bool {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.closed
}

func (pl *Polyline) SetClosed(closed bool) {
	if pl.update(func() bool { changed := pl.closed != closed; pl.closed = closed; return changed }) {
		pl.notify(ChangeGeometry)
	}
}

// LengthMeters returns the length of the polyline, including the closing
// segment if it is closed.
func (pl *Polyline) LengthMeters() float64 {
	pts := pl.Points()
	var d float64
	for i := 1; i < len(pts); i++ {
		d += pts[i-1].DistanceMeters(pts[i])
	}
	if pl.Closed() && len(pts) > 2 {
		d += pts[len(pts)-1].DistanceMeters(pts[0])
	}
	return d
}

// MultiPoint is a set of unconnected positions that are managed as a
// single item (e.g., a sensor's detections).
type MultiPoint struct {
	*itemBase
	pointList
}

var _ Item = (*MultiPoint)(nil)

func NewMultiPoint(uid string, pts []geo.Point, lg *log.Logger) *MultiPoint {
	mp := &MultiPoint{}
	mp.itemBase = newItemBase(mp, KindMultiPoint, uid, lg)
	mp.pointList = pointList{b: mp.itemBase, pts: slices.Clone(pts)}
	return mp
}

///////////////////////////////////////////////////////////////////////////
// Composite

// Composite is an item made of other items, e.g. a sensor marker together
// with its field-of-view wedge. The children are not members of any
// group; the composite as a whole is.
type Composite struct {
	*itemBase
	children []Item
}

var _ Item = (*Composite)(nil)

func NewComposite(uid string, children []Item, lg *log.Logger) *Composite {
	c := &Composite{children: slices.Clone(children)}
	c.itemBase = newItemBase(c, KindComposite, uid, lg)
	return c
}

func (c *Composite) Children() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.children)
}

func (c *Composite) AddChild(item Item) {
	c.mu.Lock()
	c.children = append(c.children, item)
	c.mu.Unlock()

	c.notify(ChangeGeometry)
}

func (c *Composite) RemoveChild(item Item) bool {
	c.mu.Lock()
	n := len(c.children)
	c.children = slices.DeleteFunc(c.children, func(ch Item) bool { return ch == item })
	removed := len(c.children) != n
	c.mu.Unlock()

	if removed {
		c.notify(ChangeGeometry)
	}
	return removed
}

func (c *Composite) Bounds() (geo.Bounds, bool) {
	var b geo.Bounds
	found := false
	for _, ch := range c.Children() {
		if cb, ok := ch.Bounds(); ok {
			if !found {
				b, found = cb, true
			} else {
				b = b.Union(cb)
			}
		}
	}
	return b, found
}

func (c *Composite) Center() (geo.Point, bool) {
	b, ok := c.Bounds()
	if !ok {
		return geo.Point{}, false
	}
	return b.Center(), true
}

// Dispose disposes the composite's children along with the composite.
func (c *Composite) Dispose() {
	for _, ch := range c.Children() {
		ch.Dispose()
	}
	c.itemBase.Dispose()
}
