// event/dispatcher_test.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package event

import (
	"bytes"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// counter is a Listener that records the types of the events it sees.
type counter struct {
	mu    sync.Mutex
	types []Type
}

func (c *counter) OnMapEvent(e Event) {
	c.mu.Lock()
	c.types = append(c.types, e.Type())
	c.mu.Unlock()
}

func (c *counter) count(t Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ct := range c.types {
		if ct == t {
			n++
		}
	}
	return n
}

func (c *counter) all() []Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.types)
}

func dispatch(d *Dispatcher, t Type) {
	d.Dispatch(NewBuilder(t).Build())
}

func TestTypes(t *testing.T) {
	types := Types()
	if len(types) != int(NumTypes) || len(typeNames) != int(NumTypes) {
		t.Fatalf("type names out of sync with types: %d %d %d", len(types), len(typeNames), NumTypes)
	}
	for _, ty := range types {
		if p, ok := ParseType(ty.String()); !ok || p != ty {
			t.Errorf("%s: did not parse back", ty)
		}
	}
	if _, ok := ParseType("bogus"); ok {
		t.Errorf("expected bogus type not to parse")
	}
	if s := Type(1000).String(); s != "Type(1000)" {
		t.Errorf("unexpected string for invalid type %q", s)
	}
}

func TestBuilderCopies(t *testing.T) {
	extras := map[string]any{"tags": []string{"a", "b"}}
	b := NewBuilder(MapClick).Point(10, 20).GeoPoint(geo.NewPoint(1, 2)).Scale(0.5).Extras(extras)
	e := b.Build()

	extras["tags"].([]string)[0] = "changed"
	extras["new"] = 1
	b.Point(99, 99).Extra("late", true)

	if p, ok := e.Point(); !ok || p.X != 10 || p.Y != 20 {
		t.Errorf("expected builder changes not to affect built event, got %v", p)
	}
	got := e.Extras()
	if tags := got["tags"].([]string); tags[0] != "a" {
		t.Errorf("expected extras to be deep-copied, got %v", tags)
	}
	if _, ok := got["new"]; ok {
		t.Errorf("unexpected extra from caller's map")
	}
	if _, ok := e.Extra("late"); ok {
		t.Errorf("unexpected extra set after Build")
	}

	got["tags"].([]string)[1] = "mutated"
	if tags, _ := e.Extra("tags"); tags.([]string)[1] != "b" {
		t.Errorf("expected Extras to return a copy")
	}
	if g, ok := e.GeoPoint(); !ok || g.Lat != 1 {
		t.Errorf("unexpected geo point %v", g)
	}
	if e.Scale() != 0.5 {
		t.Errorf("unexpected scale %f", e.Scale())
	}

	empty := NewBuilder(MapMoved).Build()
	if _, ok := empty.Point(); ok {
		t.Errorf("expected no point")
	}
	if empty.Extras() != nil {
		t.Errorf("expected nil extras")
	}
}

func TestDispatchOrderAndDuplicates(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var order []string
	a := NewListener(func(Event) { order = append(order, "a") })
	b := NewListener(func(Event) { order = append(order, "b") })

	if !d.AddListener(ItemAdded, a) || !d.AddListener(ItemAdded, b) {
		t.Fatalf("expected listeners to be added")
	}
	if d.AddListener(ItemAdded, a) {
		t.Errorf("expected duplicate registration to be rejected")
	}
	dispatch(d, ItemAdded)
	dispatch(d, ItemRemoved)

	if !slices.Equal(order, []string{"a", "b"}) {
		t.Errorf("expected a then b exactly once, got %v", order)
	}

	if !d.RemoveListener(ItemAdded, a) || d.RemoveListener(ItemAdded, a) {
		t.Errorf("unexpected RemoveListener results")
	}
	if d.ListenerCount(ItemAdded) != 1 {
		t.Errorf("expected one listener remaining")
	}
}

func TestDuplicateRegistrationIsLogged(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(log.NewWriter(&buf, "warn"), nil)
	var c counter
	d.AddListener(MapClick, &c)
	d.AddListener(MapClick, &c)
	if !strings.Contains(buf.String(), "already registered") {
		t.Errorf("expected duplicate registration to be logged, got %q", buf.String())
	}
}

func TestPushPopRestoresFrame(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var outer, modal counter
	d.AddListener(MapClick, &outer)

	d.PushListeners()
	d.RemoveListener(MapClick, &outer)
	d.AddListener(MapClick, &modal)
	d.Ignore(MapLongPress)
	d.PushListeners()
	if d.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", d.Depth())
	}
	dispatch(d, MapClick)

	d.PopListeners()
	d.PopListeners()
	if d.PopListeners() {
		t.Errorf("expected base frame not to be popped")
	}
	dispatch(d, MapClick)

	if outer.count(MapClick) != 1 || modal.count(MapClick) != 1 {
		t.Errorf("expected one click each, got outer %d modal %d", outer.count(MapClick), modal.count(MapClick))
	}
	if d.Ignored(MapLongPress) || d.HasListener(MapLongPress) {
		t.Errorf("expected ignore flag to be discarded with the frame")
	}
	if !d.HasListener(MapClick) || d.ListenerCount(MapClick) != 1 {
		t.Errorf("expected only the outer listener after popping")
	}
}

func TestBaseListenersSurviveScopes(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var persist counter

	d.PushListeners()
	if !d.AddListenerToBase(ItemPersist, &persist) {
		t.Fatalf("expected base registration to succeed")
	}
	if d.AddListenerToBase(ItemPersist, &persist) {
		t.Errorf("expected duplicate base registration to be rejected")
	}
	dispatch(d, ItemPersist) // active in the pushed frame too
	d.PopListeners()
	dispatch(d, ItemPersist)

	d.PushListeners()
	d.PushListeners()
	dispatch(d, ItemPersist)

	if !d.RemoveListenerFromBase(ItemPersist, &persist) {
		t.Errorf("expected base removal to succeed")
	}
	dispatch(d, ItemPersist)
	d.PopListeners()
	d.PopListeners()
	dispatch(d, ItemPersist)

	if n := persist.count(ItemPersist); n != 3 {
		t.Errorf("expected 3 deliveries, got %d", n)
	}
}

func TestIgnoreAllow(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var c counter
	d.AddListener(ItemImported, &c)

	d.Ignore(ItemImported)
	if !d.Ignored(ItemImported) || !d.HasListener(ItemImported) {
		t.Errorf("expected ignored type to keep its listener")
	}
	dispatch(d, ItemImported)
	d.Allow(ItemImported)
	dispatch(d, ItemImported)

	if n := c.count(ItemImported); n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}
}

func TestAddListenerAll(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var c counter
	d.AddListenerAll(&c)
	for _, ty := range Types() {
		dispatch(d, ty)
	}
	if got := c.all(); !slices.Equal(got, Types()) {
		t.Errorf("expected every type once, got %v", got)
	}

	d.RemoveListenerAll(&c)
	for _, ty := range Types() {
		if d.HasListener(ty) {
			t.Errorf("%s: expected no listeners", ty)
		}
	}
}

func TestListenerPanicIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	var buf bytes.Buffer
	d := NewDispatcher(log.NewWriter(&buf, "info"), m)

	var c counter
	d.AddListener(MapClick, NewListener(func(Event) { panic("bad plugin") }))
	d.AddListener(MapClick, &c)

	dispatch(d, MapClick)
	dispatch(d, MapClick)

	if n := c.count(MapClick); n != 2 {
		t.Errorf("expected later listener to still be called, got %d", n)
	}
	if !strings.Contains(buf.String(), "bad plugin") {
		t.Errorf("expected panic to be logged")
	}
	if v := testutil.ToFloat64(m.failures.WithLabelValues("map_click")); v != 2 {
		t.Errorf("expected 2 failures, got %f", v)
	}
	if v := testutil.ToFloat64(m.dispatched.WithLabelValues("map_click")); v != 2 {
		t.Errorf("expected 2 dispatches, got %f", v)
	}

	d.PushListeners()
	if v := testutil.ToFloat64(m.depth); v != 1 {
		t.Errorf("expected depth gauge 1, got %f", v)
	}
}

func TestItemListeners(t *testing.T) {
	d := NewDispatcher(nil, nil)
	p := mapitem.NewPoint("", geo.NewPoint(1, 1), nil)
	other := mapitem.NewPoint("", geo.NewPoint(2, 2), nil)

	var c counter
	if !d.AddItemListener(p, &c) {
		t.Fatalf("expected item listener to be added")
	}
	if d.AddItemListener(p, &c) {
		t.Errorf("expected duplicate item listener to be rejected")
	}

	// Item listeners are independent of the global frames and of
	// ignore flags.
	d.PushListeners()
	d.Ignore(ItemClick)
	d.Dispatch(NewBuilder(ItemClick).Item(p).Build())
	d.Dispatch(NewBuilder(ItemClick).Item(other).Build())
	d.PopListeners()

	if n := c.count(ItemClick); n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}

	p.Dispose()
	if n := d.ItemListenerCount(p); n != 0 {
		t.Errorf("expected dispose to drop item listeners, %d remain", n)
	}
	if d.AddItemListener(p, &c) {
		t.Errorf("expected registration against disposed item to fail")
	}

	d.AddItemListener(other, &c)
	if !d.RemoveItemListener(other, &c) || d.RemoveItemListener(other, &c) {
		t.Errorf("unexpected RemoveItemListener results")
	}
}

func TestListenerMayRegisterDuringDispatch(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var late counter
	d.AddListener(MapClick, NewListener(func(Event) {
		d.AddListener(MapClick, &late)
		d.PushListeners()
	}))

	dispatch(d, MapClick)
	if late.count(MapClick) != 0 {
		t.Errorf("listener added during dispatch should not see the current event")
	}
	d.PopListeners()
	dispatch(d, MapClick)
	if late.count(MapClick) != 1 {
		t.Errorf("expected late listener to receive later events")
	}
}

func TestClear(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var c counter
	d.AddListener(MapClick, &c)
	d.PushListeners()
	d.Clear()
	if d.Depth() != 0 || d.HasListener(MapClick) {
		t.Errorf("expected Clear to reset the dispatcher")
	}
}

func TestConcurrentDispatch(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var c counter
	d.AddListener(MapMoved, &c)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				dispatch(d, MapMoved)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				l := NewListener(func(Event) {})
				d.AddListener(MapMoved, l)
				d.RemoveListener(MapMoved, l)
			}
		}()
	}
	wg.Wait()
	if n := c.count(MapMoved); n != 400 {
		t.Errorf("expected 400 deliveries, got %d", n)
	}
}
