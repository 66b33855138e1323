// control/control.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package control carries out the commands that other components send
// to the map: deleting groups and items, and moving the camera.
package control

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"
)

// Actions understood by Handler.Handle.
const (
	ActionDeleteGroup = "delete_group"
	ActionDeleteItem  = "delete_item"
	ActionFocus       = "focus"
)

// Camera is the renderer's view controller.
type Camera interface {
	PanTo(p geo.Point, snap bool)
	ZoomTo(scale float64, snap bool)
	ZoomBy(factor float64, about geo.Point, snap bool)
}

// DeleteGroup identifies a group by serial id or, failing that, UID.
type DeleteGroup struct {
	Serial mapitem.SerialID // 0 if not given
	UID    string
}

// DeleteItem identifies an item by serial id or, failing that, by a
// metadata key and value.
type DeleteItem struct {
	Serial    mapitem.SerialID // 0 if not given
	MetaKey   string
	MetaValue string
}

// Focus moves the camera to a point or to an item.
type Focus struct {
	Point            *geo.Point
	ItemUID          string
	Snap             bool
	AdjustForTerrain bool
	// Scale is the map scale to zoom to; 0 leaves it unchanged.
	Scale float64
	// ZoomBy is a factor to zoom by about the focus point; 0 means no
	// relative zoom.
	ZoomBy float64
}

// Handler carries out commands against a group tree.
type Handler struct {
	Root      *mapitem.Group
	Camera    Camera              // may be nil
	Elevation geo.ElevationSource // may be nil
	Log       *log.Logger
}

// Handle parses params for the given action and carries it out.
// Commands whose target cannot be found do nothing and return nil.
func (h *Handler) Handle(action string, params map[string]string) error {
	h.Log.Debug("control command", slog.String("action", action), slog.Any("params", params))

	switch action {
	case ActionDeleteGroup:
		cmd, err := ParseDeleteGroup(params)
		if err != nil {
			return err
		}
		h.DeleteGroup(cmd)
		return nil

	case ActionDeleteItem:
		cmd, err := ParseDeleteItem(params)
		if err != nil {
			return err
		}
		h.DeleteItem(cmd)
		return nil

	case ActionFocus:
		cmd, err := ParseFocus(params)
		if err != nil {
			return err
		}
		return h.Focus(cmd)

	default:
		return fmt.Errorf("%s: %w", action, ErrUnknownAction)
	}
}

// DeleteGroup disposes of the identified group and everything in it. It
// returns false if no group matches. The root group is never deleted.
func (h *Handler) DeleteGroup(cmd DeleteGroup) bool {
	var g *mapitem.Group
	var ok bool
	if cmd.Serial != 0 {
		g, ok = h.Root.DeepFindGroupSerial(cmd.Serial)
	} else if cmd.UID != "" {
		g, ok = h.Root.DeepFindGroupUID(cmd.UID)
	}
	if !ok || g == h.Root {
		h.Log.Debug("delete_group: no matching group", slog.Any("cmd", cmd))
		return false
	}

	h.Log.Info("deleting group", slog.Any("group", g))
	g.Dispose()
	return true
}

// DeleteItem disposes of the identified item, returning false if no
// item matches.
func (h *Handler) DeleteItem(cmd DeleteItem) bool {
	var item mapitem.Item
	var ok bool
	if cmd.Serial != 0 {
		item, ok = h.Root.DeepFindItem(cmd.Serial)
	} else if cmd.MetaKey != "" {
		item, ok = h.Root.DeepFindItemByMeta(cmd.MetaKey, cmd.MetaValue)
	}
	if !ok {
		h.Log.Debug("delete_item: no matching item", slog.Any("cmd", cmd))
		return false
	}

	h.Log.Info("deleting item", slog.Any("item", item))
	item.Dispose()
	return true
}

// Focus pans the camera to the command's point or to the center of its
// item, optionally adjusting the point's altitude to the terrain, and
// then applies any zoom.
func (h *Handler) Focus(cmd Focus) error {
	if h.Camera == nil {
		return ErrNoCamera
	}

	var p geo.Point
	switch {
	case cmd.Point != nil:
		p = *cmd.Point
	case cmd.ItemUID != "":
		item, ok := h.Root.DeepFindUID(cmd.ItemUID)
		if !ok {
			h.Log.Debug("focus: no matching item", slog.String("uid", cmd.ItemUID))
			return nil
		}
		if p, ok = item.Center(); !ok {
			h.Log.Debug("focus: item has no geometry", slog.Any("item", item))
			return nil
		}
	default:
		return ErrNoFocusTarget
	}

	if cmd.AdjustForTerrain && h.Elevation != nil {
		if elev, ok := h.Elevation.Elevation(p.Lat, p.Lon); ok {
			p.Alt = elev
		}
	}

	h.Camera.PanTo(p, cmd.Snap)
	if cmd.Scale != 0 {
		h.Camera.ZoomTo(cmd.Scale, cmd.Snap)
	}
	if cmd.ZoomBy != 0 {
		h.Camera.ZoomBy(cmd.ZoomBy, p, cmd.Snap)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Parameter parsing

func ParseDeleteGroup(params map[string]string) (DeleteGroup, error) {
	serial, err := parseSerial(params)
	return DeleteGroup{Serial: serial, UID: params["uid"]}, err
}

func ParseDeleteItem(params map[string]string) (DeleteItem, error) {
	serial, err := parseSerial(params)
	return DeleteItem{Serial: serial, MetaKey: params["key"], MetaValue: params["value"]}, err
}

// ParseFocus parses a focus command. The point is given as "lat,lon" or
// "lat,lon,alt"; snap and terrain default to false and scale and zoomBy
// to 0.
func ParseFocus(params map[string]string) (Focus, error) {
	var f Focus
	var err error

	if s, ok := params["point"]; ok {
		p, err := parsePoint(s)
		if err != nil {
			return f, err
		}
		f.Point = &p
	}
	f.ItemUID = params["uid"]

	if f.Snap, err = parseBool(params, "snap"); err != nil {
		return f, err
	}
	if f.AdjustForTerrain, err = parseBool(params, "terrain"); err != nil {
		return f, err
	}
	if f.Scale, err = parseFloat(params, "scale"); err != nil {
		return f, err
	}
	if f.ZoomBy, err = parseFloat(params, "zoomBy"); err != nil {
		return f, err
	}
	return f, nil
}

func parseSerial(params map[string]string) (mapitem.SerialID, error) {
	s, ok := params["serial"]
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("serial %q: %w", s, ErrBadParameter)
	}
	return mapitem.SerialID(v), nil
}

func parseBool(params map[string]string, key string) (bool, error) {
	s, ok := params[key]
	if !ok {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s %q: %w", key, s, ErrBadParameter)
	}
	return v, nil
}

func parseFloat(params map[string]string, key string) (float64, error) {
	s, ok := params[key]
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, s, ErrBadParameter)
	}
	return v, nil
}

func parsePoint(s string) (geo.Point, error) {
	f := strings.Split(s, ",")
	if len(f) != 2 && len(f) != 3 {
		return geo.Point{}, fmt.Errorf("point %q: %w", s, ErrBadParameter)
	}

	var v [3]float64
	for i, fs := range f {
		var err error
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(fs), 64); err != nil {
			return geo.Point{}, fmt.Errorf("point %q: %w", s, ErrBadParameter)
		}
	}

	p := geo.NewPoint(v[0], v[1])
	if len(f) == 3 {
		p.Alt = v[2]
	}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("point %q: %w", s, ErrBadParameter)
	}
	return p, nil
}
