// overlay/manager_test.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package overlay

import (
	gomath "math"
	"slices"
	"testing"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/mapitem"
)

type hierarchyLog struct {
	changes []HierarchyChange
}

func (h *hierarchyLog) OnHierarchyChanged(c HierarchyChange) {
	h.changes = append(h.changes, c)
}

func ids(overlays []Overlay) []string {
	var s []string
	for _, o := range overlays {
		s = append(s, o.Identifier())
	}
	return s
}

func TestAddOverlayRejectsDuplicates(t *testing.T) {
	root := mapitem.NewGroup("root", nil)
	m := NewManager(root, nil)
	var h hierarchyLog
	m.AddHierarchyListener(&h)

	foo := NewGroupOverlay("foo", "Foo", nil, 10)
	if !m.AddOverlay(foo) {
		t.Fatalf("expected first add to succeed")
	}
	other := NewGroupOverlay("foo", "Other Foo", nil, 5)
	if m.AddOverlay(other) {
		t.Errorf("expected second add with the same identifier to fail")
	}

	if o, ok := m.GetOverlay("foo"); !ok || o != Overlay(foo) {
		t.Errorf("expected original overlay to remain registered")
	}
	if n := m.Len(); n != 1 {
		t.Errorf("expected exactly one overlay, got %d", n)
	}
	if foo.RootGroup().Parent() != root || other.RootGroup().Parent() != nil {
		t.Errorf("expected only the registered overlay's group to be merged")
	}

	expected := []HierarchyChange{{Action: ActionAddOverlay, OverlayID: "foo"}}
	if !slices.Equal(h.changes, expected) {
		t.Errorf("expected %v, got %v", expected, h.changes)
	}
}

func TestRemoveOverlay(t *testing.T) {
	root := mapitem.NewGroup("root", nil)
	m := NewManager(root, nil)
	var h hierarchyLog
	m.AddHierarchyListener(&h)

	top := NewGroupOverlay("top", "Top", nil, 0)
	nested := NewGroupOverlay("nested", "Nested", nil, 0)
	m.AddOverlay(top)
	m.AddOverlayToParent(ShapesParent, nested)

	if nested.RootGroup().Parent() != m.Parent(ShapesParent).RootGroup() {
		t.Errorf("expected nested overlay's group under the shapes bucket")
	}

	if !m.RemoveOverlay("nested") {
		t.Errorf("expected overlay in a parent bucket to be removed")
	}
	if !m.RemoveOverlay("top") {
		t.Errorf("expected top-level overlay to be removed")
	}
	if m.RemoveOverlay("top") {
		t.Errorf("expected second removal to fail")
	}
	if top.RootGroup().Parent() != nil || nested.RootGroup().Parent() != nil {
		t.Errorf("expected removed overlays' groups to be unmerged")
	}

	expected := []HierarchyChange{
		{ActionAddOverlay, "top"},
		{ActionAddOverlay, ShapesParent},
		{ActionAddOverlay, "nested"},
		{ActionRemoveOverlay, "nested"},
		{ActionRemoveOverlay, "top"},
	}
	if !slices.Equal(h.changes, expected) {
		t.Errorf("expected %v, got %v", expected, h.changes)
	}
}

func TestParentBucketsOrdered(t *testing.T) {
	m := NewManager(mapitem.NewGroup("root", nil), nil)

	m.AddOverlay(NewGroupOverlay("unordered", "Unordered", nil, DefaultOrder))
	m.Parent(MiscParent)
	m.Parent(AlertsParent)
	m.Parent(MarkersParent)
	if m.Parent(MarkersParent) != m.Parent(MarkersParent) {
		t.Errorf("expected parent buckets to be created once")
	}

	expected := []string{AlertsParent, MarkersParent, MiscParent, "unordered"}
	if got := ids(m.Overlays()); !slices.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for unknown bucket")
		}
	}()
	m.Parent("weather")
}

func TestDuplicateAcrossParents(t *testing.T) {
	m := NewManager(mapitem.NewGroup("root", nil), nil)
	m.AddOverlayToParent(MarkersParent, NewGroupOverlay("x", "X", nil, 0))
	if m.AddOverlayToParent(ShapesParent, NewGroupOverlay("x", "X", nil, 0)) {
		t.Errorf("expected identifier to be unique across parents")
	}
	if m.AddOverlay(NewGroupOverlay("x", "X", nil, 0)) {
		t.Errorf("expected identifier to be unique across levels")
	}
}

func TestParentBucketIdentifierTaken(t *testing.T) {
	root := mapitem.NewGroup("root", nil)
	m := NewManager(root, nil)

	if !m.AddOverlay(NewGroupOverlay(MarkersParent, "Markers", nil, 0)) {
		t.Fatalf("expected top-level overlay to be added")
	}
	if p := m.Parent(MarkersParent); p != nil {
		t.Errorf("expected no bucket when its identifier is taken")
	}

	friendly := NewGroupOverlay("friendly", "Friendly", nil, 0)
	if m.AddOverlayToParent(MarkersParent, friendly) {
		t.Errorf("expected add to an unavailable bucket to fail")
	}
	if _, ok := m.GetOverlay("friendly"); ok {
		t.Errorf("expected friendly not to be registered")
	}
	if root.IsAncestorOf(friendly.RootGroup()) {
		t.Errorf("expected friendly's group to stay out of the tree")
	}

	// Once the identifier is free, the bucket can be created and used.
	m.RemoveOverlay(MarkersParent)
	if !m.AddOverlayToParent(MarkersParent, friendly) {
		t.Fatalf("expected add to succeed after the identifier was freed")
	}
	if !root.IsAncestorOf(friendly.RootGroup()) {
		t.Errorf("expected friendly's group in the tree")
	}
}

func TestClosestItemAtHighLatitude(t *testing.T) {
	g := mapitem.NewGroup("g", nil)
	q := GroupQuery{g}

	for _, lat := range []float64{0, 45, 70, -70, 80} {
		p := geo.NewPoint(lat, 10)
		// Due east of p, just inside the threshold.
		dLon := 0.0037 * gomath.Cos(70*gomath.Pi/180) / gomath.Cos(lat*gomath.Pi/180)
		item := mapitem.NewPoint("", geo.NewPoint(lat, 10+dLon), nil)
		g.AddItem(item)

		d := p.DistanceMeters(geo.NewPoint(lat, 10+dLon))
		if found, ok := q.DeepFindClosestItem(p, 150, nil); !ok || found != item {
			t.Errorf("lat %f: expected item %.1fm away to be found within 150m", lat, d)
		}
		item.Dispose()
	}
}

func TestDeepFind(t *testing.T) {
	m := NewManager(mapitem.NewGroup("root", nil), nil)

	hostile := NewGroupOverlay("hostile", "Hostile", nil, 1)
	friendly := NewGroupOverlay("friendly", "Friendly", nil, 0)
	m.AddOverlayToParent(MarkersParent, hostile)
	m.AddOverlayToParent(MarkersParent, friendly)
	m.AddOverlay(&legacyAdapter{lo: LegacyOverlay{ID: "empty", Name: "No group"}})

	near := mapitem.NewPoint("near", geo.NewPoint(38.8895, -77.0353), nil)
	near.SetString("affiliation", "hostile")
	far := mapitem.NewPoint("far", geo.NewPoint(38.9, -77.0), nil)
	far.SetString("affiliation", "hostile")
	hostile.RootGroup().AddItem(far)
	hostile.RootGroup().AddItem(near)
	friend := mapitem.NewPoint("friend", geo.NewPoint(38.8896, -77.0353), nil)
	friend.SetString("affiliation", "friendly")
	friendly.RootGroup().AddItem(friend)

	if item, ok := m.DeepFindItem(map[string]string{"affiliation": "friendly"}); !ok || item.UID() != "friend" {
		t.Errorf("expected to find friend, got %v", item)
	}
	if _, ok := m.DeepFindItem(map[string]string{"affiliation": "unknown"}); ok {
		t.Errorf("expected no match")
	}

	p := geo.NewPoint(38.8895, -77.0354)
	if item, ok := m.DeepFindClosestItem(p, 100, map[string]string{"affiliation": "hostile"}); !ok || item.UID() != "near" {
		t.Errorf("expected near, got %v", item)
	}
	if item, ok := m.DeepFindClosestItem(p, 100, nil); !ok || item.UID() != "near" {
		t.Errorf("expected near with no metadata filter, got %v", item)
	}
	if _, ok := m.DeepFindClosestItem(geo.NewPoint(0, 0), 100, nil); ok {
		t.Errorf("expected nothing within 100m of 0,0")
	}
	if item, ok := m.DeepFindClosestItem(geo.NewPoint(38.9, -77.0), 0, nil); !ok || item.UID() != "far" {
		t.Errorf("expected far with unlimited threshold, got %v", item)
	}
}

type fakeProvider struct {
	listeners []LegacyListener
}

func (p *fakeProvider) AddLegacyListener(l LegacyListener) { p.listeners = append(p.listeners, l) }
func (p *fakeProvider) RemoveLegacyListener(l LegacyListener) {
	p.listeners = slices.DeleteFunc(p.listeners, func(pl LegacyListener) bool { return pl == l })
}

func (p *fakeProvider) publish(o LegacyOverlay) {
	for _, l := range p.listeners {
		l.OnCache(o)
	}
}

func (p *fakeProvider) retract(id string) {
	for _, l := range p.listeners {
		l.OnUncache(id)
	}
}

func TestLegacyBridge(t *testing.T) {
	root := mapitem.NewGroup("root", nil)
	m := NewManager(root, nil)
	m.AddOverlay(NewGroupOverlay("native", "Native", nil, 0))

	b := NewLegacyBridge(m, nil)
	var p fakeProvider
	b.Connect(&p)
	b.Connect(&p)
	if len(p.listeners) != 1 {
		t.Fatalf("expected a single subscription, got %d", len(p.listeners))
	}

	g := mapitem.NewGroup("tracks", nil)
	p.publish(LegacyOverlay{ID: "tracks", Name: "Tracks", Group: g})
	p.publish(LegacyOverlay{ID: "routes", Name: "Routes", Parent: LayersParent})
	p.publish(LegacyOverlay{ID: "native", Name: "Imposter"})

	if !slices.Equal(b.Cached(), []string{"routes", "tracks"}) {
		t.Errorf("unexpected cached overlays %v", b.Cached())
	}
	if g.Parent() != root {
		t.Errorf("expected legacy overlay's group to be merged into the tree")
	}
	if o, ok := m.GetOverlay("native"); !ok || o.Name() != "Native" {
		t.Errorf("expected native overlay to be untouched")
	}

	p.retract("tracks")
	p.retract("native") // not the bridge's to remove
	if _, ok := m.GetOverlay("tracks"); ok {
		t.Errorf("expected tracks to be removed")
	}
	if _, ok := m.GetOverlay("native"); !ok {
		t.Errorf("expected native overlay to survive a legacy uncache")
	}

	b.Close()
	if _, ok := m.GetOverlay("routes"); ok || len(p.listeners) != 0 {
		t.Errorf("expected Close to unregister everything")
	}
}
