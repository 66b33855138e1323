// mapitem/record.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapitem

import (
	"errors"
	"fmt"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/metadata"
)

var ErrUnknownItemKind = errors.New("unknown item kind")

// Record is the serializable form of an item; it is used both for the
// sqlite store and for whole-tree snapshots.
type Record struct {
	UID       string      `msgpack:"uid"`
	Kind      Kind        `msgpack:"kind"`
	Type      string      `msgpack:"type,omitempty"`
	Title     string      `msgpack:"title,omitempty"`
	Visible   bool        `msgpack:"visible"`
	GroupPath []string    `msgpack:"path,omitempty"`
	Points    []geo.Point `msgpack:"pts,omitempty"`
	Closed    bool        `msgpack:"closed,omitempty"`
	Children  []Record    `msgpack:"children,omitempty"`
	Meta      []byte      `msgpack:"meta,omitempty"`
}

// ToRecord captures the current state of item. The group transfer flag
// is transient and is never recorded.
func ToRecord(item Item) (Record, error) {
	entries := item.Entries()
	delete(entries, TransferKey)
	meta, err := metadata.MarshalEntries(entries)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", item.UID(), err)
	}

	r := Record{
		UID:     item.UID(),
		Kind:    item.Kind(),
		Type:    item.Type(),
		Title:   item.Title(),
		Visible: item.Visible(),
		Meta:    meta,
	}
	if g := item.Group(); g != nil {
		r.GroupPath = g.Path()
	}

	switch it := item.(type) {
	case *Point:
		r.Points = []geo.Point{it.Point()}
	case *Polyline:
		r.Points = it.Points()
		r.Closed = it.Closed()
	case *MultiPoint:
		r.Points = it.Points()
	case *Composite:
		for _, ch := range it.Children() {
			cr, err := ToRecord(ch)
			if err != nil {
				return Record{}, err
			}
			r.Children = append(r.Children, cr)
		}
	}
	return r, nil
}

// FromRecord creates a new item from r; the item is not added to any
// group.
func FromRecord(r Record, lg *log.Logger) (Item, error) {
	var item Item
	switch r.Kind {
	case KindPoint:
		if len(r.Points) != 1 {
			return nil, fmt.Errorf("%s: point record has %d points", r.UID, len(r.Points))
		}
		item = NewPoint(r.UID, r.Points[0], lg)
	case KindPolyline:
		item = NewPolyline(r.UID, r.Points, r.Closed, lg)
	case KindMultiPoint:
		item = NewMultiPoint(r.UID, r.Points, lg)
	case KindComposite:
		var children []Item
		for _, cr := range r.Children {
			ch, err := FromRecord(cr, lg)
			if err != nil {
				return nil, err
			}
			children = append(children, ch)
		}
		item = NewComposite(r.UID, children, lg)
	default:
		return nil, fmt.Errorf("%s: %d: %w", r.UID, int(r.Kind), ErrUnknownItemKind)
	}

	item.SetType(r.Type)
	item.SetTitle(r.Title)
	item.SetVisible(r.Visible)
	if len(r.Meta) > 0 {
		if err := metadata.Unmarshal(r.Meta, item); err != nil {
			return nil, fmt.Errorf("%s: %w", r.UID, err)
		}
	}
	return item, nil
}
