// layer/layer.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package layer provides the primitives used to choose which of several
// map layers is active: stacks with undo-style push and pop, decks of
// cards that are cycled through, and named bins of stacks.
package layer

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/log"
)

type Layer interface {
	Name() string
}

type basicLayer struct {
	name string
}

func (l *basicLayer) Name() string   { return l.name }
func (l *basicLayer) String() string { return l.name }

// NewLayer returns a Layer that has nothing but a name.
func NewLayer(name string) Layer {
	return &basicLayer{name: name}
}

// ActiveListener is notified after the active layer of a compositing
// layer changes; active is nil if no layer is active.
type ActiveListener interface {
	OnActiveLayerChanged(owner, active Layer)
}

// listeners is the active-layer listener list shared by the compositing
// layers.
type listeners struct {
	mu sync.Mutex
	ls []ActiveListener
	lg *log.Logger
}

func (l *listeners) add(al ActiveListener) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if slices.Contains(l.ls, al) {
		l.lg.Warn("active layer listener already registered", slog.String("listener", fmt.Sprintf("%T", al)))
		return false
	}
	l.ls = append(l.ls, al)
	return true
}

func (l *listeners) remove(al ActiveListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ls = slices.DeleteFunc(l.ls, func(a ActiveListener) bool { return a == al })
}

func (l *listeners) notify(owner, active Layer) {
	l.mu.Lock()
	ls := slices.Clone(l.ls)
	l.mu.Unlock()

	for _, al := range ls {
		al.OnActiveLayerChanged(owner, active)
	}
}

func nameOf(l Layer) string {
	if l == nil {
		return ""
	}
	return l.Name()
}
