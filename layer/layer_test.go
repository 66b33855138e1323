// layer/layer_test.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package layer

import (
	"slices"
	"testing"
)

type activeLog struct {
	names []string
}

func (a *activeLog) OnActiveLayerChanged(owner, active Layer) {
	a.names = append(a.names, owner.Name()+":"+nameOf(active))
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", what)
		}
	}()
	fn()
}

func TestStackLayer(t *testing.T) {
	x, y, z := NewLayer("x"), NewLayer("y"), NewLayer("z")
	s := NewStackLayer("stack", x, nil)
	var a activeLog
	s.AddActiveListener(&a)

	if s.Size() != 1 || s.Active() != x {
		t.Errorf("expected base layer active with size 1")
	}
	s.Push(y)
	s.Push(z)
	if s.Size() != 3 || s.Active() != z {
		t.Errorf("expected z active with size 3, got %s size %d", nameOf(s.Active()), s.Size())
	}
	if got := s.Layers(); !slices.Equal(got, []Layer{x, y, z}) {
		t.Errorf("unexpected layers %v", got)
	}

	if p := s.Pop(); p != z {
		t.Errorf("expected z to be popped, got %s", nameOf(p))
	}
	s.Pop()
	if s.Active() != x || s.Size() != 1 {
		t.Errorf("expected x restored exactly")
	}
	expectPanic(t, "third pop", func() { s.Pop() })

	expected := []string{"stack:y", "stack:z", "stack:y", "stack:x"}
	if !slices.Equal(a.names, expected) {
		t.Errorf("expected %v, got %v", expected, a.names)
	}
}

func TestCardLayerCycles(t *testing.T) {
	c := NewCardLayer("deck", nil)
	var a activeLog
	c.AddActiveListener(&a)

	if c.Active() != nil {
		t.Errorf("expected empty deck to have no active card")
	}
	c.Next() // no-op on an empty deck

	for _, n := range []string{"A", "B", "C"} {
		if !c.Add(NewLayer(n)) {
			t.Fatalf("%s: expected add to succeed", n)
		}
	}
	if c.Add(NewLayer("B")) {
		t.Errorf("expected duplicate card name to be rejected")
	}
	if c.Active().Name() != "A" {
		t.Errorf("expected first card to be shown")
	}

	var seen []string
	for range 3 {
		c.Next()
		seen = append(seen, c.Active().Name())
	}
	if !slices.Equal(seen, []string{"B", "C", "A"}) {
		t.Errorf("unexpected cycle %v", seen)
	}
	c.Previous()
	if c.Active().Name() != "C" {
		t.Errorf("expected previous from A to wrap to C, got %s", c.Active().Name())
	}

	if !slices.Equal(c.Names(), []string{"A", "B", "C"}) || c.Len() != 3 {
		t.Errorf("unexpected deck %v", c.Names())
	}

	expected := []string{"deck:A", "deck:B", "deck:C", "deck:A", "deck:C"}
	if !slices.Equal(a.names, expected) {
		t.Errorf("expected %v, got %v", expected, a.names)
	}
}

func TestCardLayerShowAndRemove(t *testing.T) {
	c := NewCardLayer("deck", nil)
	c.Add(NewLayer("A"))
	c.Add(NewLayer("B"))
	var a activeLog
	c.AddActiveListener(&a)

	c.Show("A")       // already active
	c.Show("missing") // unknown
	c.Show("B")
	if c.Active().Name() != "B" {
		t.Errorf("expected B to be shown")
	}

	// Removing the active card leaves nothing shown.
	if !c.Remove("B") || c.Remove("B") {
		t.Errorf("unexpected Remove results")
	}
	if c.Active() != nil {
		t.Errorf("expected no active card after removing it")
	}
	if _, ok := c.Card("B"); ok {
		t.Errorf("expected B to be gone")
	}

	c.Next()
	if c.Active().Name() != "A" {
		t.Errorf("expected Next with nothing shown to show the first card")
	}

	expected := []string{"deck:B", "deck:", "deck:A"}
	if !slices.Equal(a.names, expected) {
		t.Errorf("expected %v, got %v", expected, a.names)
	}
}

func TestLayerBinLayer(t *testing.T) {
	b := NewLayerBinLayer("bins", nil)
	base := NewLayer("imagery")
	s := b.AddLayerBin("base", base)
	b.AddLayerBin("tools", nil)

	expectPanic(t, "duplicate bin", func() { b.AddLayerBin("base", nil) })
	expectPanic(t, "AddLayer", func() { b.AddLayer(NewLayer("x")) })
	expectPanic(t, "RemoveLayer", func() { b.RemoveLayer(base) })

	if !slices.Equal(b.Bins(), []string{"base", "tools"}) {
		t.Errorf("unexpected bins %v", b.Bins())
	}

	overlay := NewLayer("elevation")
	if !b.PushBin("base", overlay) || s.Active() != overlay {
		t.Errorf("expected push to delegate to the bin")
	}
	if b.PushBin("missing", overlay) {
		t.Errorf("expected push to an unknown bin to fail")
	}
	if l, ok := b.PopBin("base"); !ok || l != overlay || s.Active() != base {
		t.Errorf("expected pop to restore the base layer")
	}
	if _, ok := b.PopBin("missing"); ok {
		t.Errorf("expected pop of unknown bin to fail")
	}
	expectPanic(t, "pop of empty bin", func() { b.PopBin("tools") })

	if bin, ok := b.Bin("tools"); !ok || bin.Active() != nil {
		t.Errorf("expected tools bin with no active layer")
	}
}
