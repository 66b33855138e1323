// mapview/mapview_test.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapview

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/tacmap/mapcore/event"
	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/mapitem"
	"github.com/tacmap/mapcore/overlay"
	"github.com/tacmap/mapcore/store"
)

func TestViewsAreIndependent(t *testing.T) {
	a, b := New(Options{Name: "a"}), New(Options{Name: "b"})
	defer a.Dispose()
	defer b.Dispose()

	var seenA, seenB int
	a.Dispatcher().AddListener(event.ItemAdded, event.NewListener(func(event.Event) { seenA++ }))
	b.Dispatcher().AddListener(event.ItemAdded, event.NewListener(func(event.Event) { seenB++ }))

	a.Root().AddItem(mapitem.NewPoint("", geo.NewPoint(1, 1), nil))
	if seenA != 1 || seenB != 0 {
		t.Errorf("expected events only in view a, got %d %d", seenA, seenB)
	}

	a.AddLocationSearch(ItemSearch{Root: a.Root()})
	if len(b.Search("")) != 0 {
		t.Errorf("expected search registries to be separate")
	}
}

func TestFindItemCache(t *testing.T) {
	v := New(Options{CacheSize: 8})
	defer v.Dispose()

	g := v.Root().AddNewGroup("markers")
	p := mapitem.NewPoint("p1", geo.NewPoint(1, 1), nil)
	g.AddItem(p)

	if item, ok := v.FindItem("p1"); !ok || item != mapitem.Item(p) {
		t.Fatalf("expected to find p1")
	}
	if _, ok := v.cache.Get("p1"); !ok {
		t.Errorf("expected p1 to be cached")
	}

	g.RemoveItem(p)
	if _, ok := v.cache.Get("p1"); ok {
		t.Errorf("expected removal to evict p1 from the cache")
	}
	if _, ok := v.FindItem("p1"); ok {
		t.Errorf("expected removed item not to be found")
	}

	// An item moved out of the tree without an event is still not
	// returned from the cache.
	g.AddItem(p)
	v.FindItem("p1")
	detached := mapitem.NewGroup("detached", nil)
	v.Dispatcher().Ignore(event.ItemRemoved)
	detached.AddItem(p)
	v.Dispatcher().Allow(event.ItemRemoved)
	if _, ok := v.FindItem("p1"); ok {
		t.Errorf("expected item outside the tree not to be found")
	}
}

func TestSearch(t *testing.T) {
	v := New(Options{})
	defer v.Dispose()

	for _, title := range []string{"Alpha Base", "Bravo OP", "alpha relay"} {
		p := mapitem.NewPoint("", geo.NewPoint(1, 2), nil)
		p.SetTitle(title)
		v.Root().AddItem(p)
	}
	s := ItemSearch{Root: v.Root()}
	if !v.AddLocationSearch(s) || v.AddLocationSearch(s) {
		t.Errorf("unexpected AddLocationSearch results")
	}

	var titles []string
	for _, r := range v.Search("ALPHA") {
		titles = append(titles, r.Title)
	}
	if !slices.Equal(titles, []string{"Alpha Base", "alpha relay"}) {
		t.Errorf("unexpected results %v", titles)
	}

	v.RemoveLocationSearch(s)
	if len(v.Search("alpha")) != 0 {
		t.Errorf("expected no results after removing the search")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "view.msgpack.zst")

	src := New(Options{Name: "src"})
	defer src.Dispose()
	src.Root().FindOrCreatePath("overlays", "empty")
	shapes := src.Root().FindOrCreatePath("overlays", "shapes")
	pl := mapitem.NewPolyline("fence", []geo.Point{geo.NewPoint(0, 0), geo.NewPoint(0, 1), geo.NewPoint(1, 1)}, true, nil)
	pl.SetTitle("Fence")
	pl.SetString("color", "#ff0000")
	shapes.AddItem(pl)
	src.Root().AddItem(mapitem.NewPoint("home", geo.NewPoint(5, 5), nil))

	if err := src.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	dst := New(Options{Name: "dst"})
	defer dst.Dispose()
	var added []string
	dst.Dispatcher().AddListener(event.ItemAdded, event.NewListener(func(e event.Event) {
		added = append(added, e.Item().UID())
	}))

	n, err := dst.LoadSnapshot(path)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 items, got %d (%v)", n, err)
	}
	if _, ok := dst.Root().DeepFindGroup("empty"); !ok {
		t.Errorf("expected empty group to be restored")
	}
	item, ok := dst.FindItem("fence")
	if !ok || item.Title() != "Fence" || item.GetString("color", "") != "#ff0000" {
		t.Fatalf("expected fence with its metadata")
	}
	if !slices.Equal(item.Group().Path(), []string{"overlays", "shapes"}) {
		t.Errorf("unexpected path %v", item.Group().Path())
	}
	if !slices.Equal(added, []string{"home", "fence"}) {
		t.Errorf("expected loading to dispatch item_added events, got %v", added)
	}

	// Loading again adds nothing.
	if n, err := dst.LoadSnapshot(path); err != nil || n != 0 {
		t.Errorf("expected reload to skip existing items, got %d (%v)", n, err)
	}
}

func TestAttachStoreAndDispose(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	v := New(Options{})
	if n, err := v.AttachStore(ctx, s); err != nil || n != 0 {
		t.Fatalf("AttachStore: %d %v", n, err)
	}
	v.Root().AddItem(mapitem.NewPoint("saved", geo.NewPoint(1, 1), nil))
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("expected the new item to be persisted")
	}

	v.Dispose()
	v.Dispose()
	if !v.Disposed() {
		t.Errorf("expected view to be disposed")
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("expected disposal of the view not to delete stored items, %d remain", n)
	}

	w := New(Options{})
	defer w.Dispose()
	if n, err := w.AttachStore(ctx, s); err != nil || n != 1 {
		t.Errorf("expected stored item to load into a new view, got %d (%v)", n, err)
	}
}

func TestDump(t *testing.T) {
	v := New(Options{Name: "debug"})
	defer v.Dispose()
	v.Overlays().AddOverlay(overlay.NewGroupOverlay("tracks", "Tracks", nil, 0))
	v.Layers().AddLayerBin("imagery", nil)

	d := v.Dump()
	for _, s := range []string{"debug", "tracks", "imagery"} {
		if !strings.Contains(d, s) {
			t.Errorf("expected dump to mention %q: %s", s, d)
		}
	}
}
