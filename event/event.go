// event/event.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package event provides the map's event bus: immutable events, a
// dispatcher with scoped listener frames and per-item listeners, and a
// forwarder that turns group tree mutations into events.
package event

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/mapitem"

	"github.com/brunoga/deep"
)

// ScreenPoint is a position in screen space, in pixels.
type ScreenPoint struct {
	X, Y float64
}

// Event describes a single occurrence on the map. Events are immutable
// once built and may be shared freely between listeners.
type Event struct {
	typ      Type
	item     mapitem.Item
	group    *mapitem.Group
	point    *ScreenPoint
	geoPoint *geo.Point
	scale    float64
	extras   map[string]any
	source   string
}

func (e Event) Type() Type            { return e.typ }
func (e Event) Item() mapitem.Item    { return e.item }
func (e Event) Group() *mapitem.Group { return e.group }
func (e Event) Scale() float64        { return e.scale }
func (e Event) Source() string        { return e.source }

// Point returns the screen position associated with the event, if any.
func (e Event) Point() (ScreenPoint, bool) {
	if e.point == nil {
		return ScreenPoint{}, false
	}
	return *e.point, true
}

func (e Event) GeoPoint() (geo.Point, bool) {
	if e.geoPoint == nil {
		return geo.Point{}, false
	}
	return *e.geoPoint, true
}

// Extras returns a copy of the event's extras; modifying it has no
// effect on the event.
func (e Event) Extras() map[string]any {
	return copyExtras(e.extras)
}

// Extra returns a single extra value.
func (e Event) Extra(key string) (any, bool) {
	v, ok := e.extras[key]
	return v, ok
}

func (e Event) String() string {
	s := e.typ.String()
	if e.item != nil {
		s += " " + e.item.UID()
	}
	if e.group != nil {
		s += fmt.Sprintf(" in %q", e.group.Name())
	}
	return s
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.typ.String())}
	if e.item != nil {
		attrs = append(attrs, slog.Any("item", e.item))
	}
	if e.group != nil {
		attrs = append(attrs, slog.String("group", e.group.Name()))
	}
	if e.point != nil {
		attrs = append(attrs, slog.Float64("x", e.point.X), slog.Float64("y", e.point.Y))
	}
	if e.geoPoint != nil {
		attrs = append(attrs, slog.Any("geo", *e.geoPoint))
	}
	if e.scale != 0 {
		attrs = append(attrs, slog.Float64("scale", e.scale))
	}
	if e.source != "" {
		attrs = append(attrs, slog.String("source", e.source))
	}
	return slog.GroupValue(attrs...)
}

///////////////////////////////////////////////////////////////////////////
// Builder

// Builder accumulates the fields of an Event. Build copies everything
// mutable, so a Builder may be reused after Build is called.
type Builder struct {
	e Event
}

func NewBuilder(t Type) *Builder {
	return &Builder{e: Event{typ: t}}
}

func (b *Builder) Item(item mapitem.Item) *Builder {
	b.e.item = item
	return b
}

func (b *Builder) Group(g *mapitem.Group) *Builder {
	b.e.group = g
	return b
}

func (b *Builder) Point(x, y float64) *Builder {
	b.e.point = &ScreenPoint{X: x, Y: y}
	return b
}

func (b *Builder) GeoPoint(p geo.Point) *Builder {
	b.e.geoPoint = &p
	return b
}

func (b *Builder) Scale(s float64) *Builder {
	b.e.scale = s
	return b
}

// Extras replaces the builder's extras with a copy of m.
func (b *Builder) Extras(m map[string]any) *Builder {
	b.e.extras = copyExtras(m)
	return b
}

// Extra sets a single extra value.
func (b *Builder) Extra(key string, v any) *Builder {
	if b.e.extras == nil {
		b.e.extras = make(map[string]any)
	}
	b.e.extras[key] = v
	return b
}

// Source records the component that originated the event.
func (b *Builder) Source(s string) *Builder {
	b.e.source = s
	return b
}

func (b *Builder) Build() Event {
	e := b.e
	if e.point != nil {
		p := *e.point
		e.point = &p
	}
	if e.geoPoint != nil {
		p := *e.geoPoint
		e.geoPoint = &p
	}
	e.extras = copyExtras(e.extras)
	return e
}

func copyExtras(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c, err := deep.Copy(m)
	if err != nil {
		// Values deep can't copy (funcs, channels) are shared.
		return maps.Clone(m)
	}
	return c
}
