// event/types.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package event

import "fmt"

// Type identifies the kind of occurrence an Event describes.
type Type int

const (
	MapClick Type = iota
	MapConfirmedClick
	MapLongPress
	MapDoubleTap
	MapPress
	MapRelease
	MapScroll
	MapScale
	MapRotate
	MapTilt
	MapMoved
	MapSettled

	ItemAdded
	ItemRemoved
	ItemRefresh
	ItemPersist
	ItemImported
	ItemShared
	ItemClick
	ItemLongPress
	ItemDoubleTap
	ItemPress
	ItemRelease
	ItemDragStarted
	ItemDragContinued
	ItemDragDropped
	ItemGroupChanged

	GroupAdded
	GroupRemoved

	NumTypes
)

var typeNames = [...]string{
	"map_click", "map_confirmed_click", "map_long_press", "map_double_tap", "map_press",
	"map_release", "map_scroll", "map_scale", "map_rotate", "map_tilt", "map_moved",
	"map_settled",
	"item_added", "item_removed", "item_refresh", "item_persist", "item_imported",
	"item_shared", "item_click", "item_long_press", "item_double_tap", "item_press",
	"item_release", "item_drag_started", "item_drag_continued", "item_drag_dropped",
	"item_group_changed",
	"group_added", "group_removed",
}

func (t Type) String() string {
	if t < 0 || t >= NumTypes {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t is one of the defined event types.
func (t Type) Valid() bool {
	return t >= 0 && t < NumTypes
}

// Types returns the full event vocabulary in declaration order.
func Types() []Type {
	t := make([]Type, NumTypes)
	for i := range t {
		t[i] = Type(i)
	}
	return t
}

// ParseType returns the Type with the given name.
func ParseType(s string) (Type, bool) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), true
		}
	}
	return 0, false
}
