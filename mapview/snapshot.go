// mapview/snapshot.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapview

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tacmap/mapcore/mapitem"
	"github.com/tacmap/mapcore/util"

	"github.com/dustin/go-humanize"
)

// Snapshot is the saved form of a view's group tree.
type Snapshot struct {
	Saved  time.Time
	Groups [][]string // paths of all groups, so empty ones are restored
	Items  []mapitem.Record
}

// SaveSnapshot writes the view's group tree to path.
func (v *MapView) SaveSnapshot(path string) error {
	snap := Snapshot{Saved: time.Now()}

	v.root.DeepForEachGroup(func(g *mapitem.Group) bool {
		if g != v.root {
			snap.Groups = append(snap.Groups, g.Path())
		}
		return true
	})

	var err error
	v.root.DeepForEachItem(func(item mapitem.Item) bool {
		var r mapitem.Record
		if r, err = mapitem.ToRecord(item); err != nil {
			return false
		}
		snap.Items = append(snap.Items, r)
		return true
	})
	if err != nil {
		return err
	}

	if err := util.StoreObject(path, snap); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	v.lg.Info("saved snapshot", slog.String("path", path), slog.Int("items", len(snap.Items)))
	return nil
}

// LoadSnapshot adds the groups and items saved in the snapshot at path
// to the view's tree. Items whose UID is already present are skipped.
// It returns the number of items added.
func (v *MapView) LoadSnapshot(path string) (int, error) {
	var snap Snapshot
	mtime, err := util.RetrieveObject(path, &snap)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	for _, p := range snap.Groups {
		v.root.FindOrCreatePath(p...)
	}

	n := 0
	for _, r := range snap.Items {
		if _, ok := v.FindItem(r.UID); ok {
			v.lg.Debug("skipping snapshot item already present", slog.String("uid", r.UID))
			continue
		}
		item, err := mapitem.FromRecord(r, v.lg)
		if err != nil {
			return n, err
		}
		v.root.FindOrCreatePath(r.GroupPath...).AddItem(item)
		n++
	}

	v.lg.Info("loaded snapshot", slog.String("path", path), slog.Int("items", n),
		slog.String("age", humanize.Time(mtime)))
	return n, nil
}
