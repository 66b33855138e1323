// overlay/legacy.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package overlay

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"
)

// LegacyOverlay is an overlay as published by older providers, which
// announce overlays by pushing them rather than registering them.
type LegacyOverlay struct {
	ID     string
	Name   string
	Group  *mapitem.Group
	Parent string // optional parent bucket
}

// LegacyListener receives cache and uncache notifications from a
// LegacyProvider.
type LegacyListener interface {
	OnCache(o LegacyOverlay)
	OnUncache(id string)
}

// LegacyProvider is a source of pushed overlays.
type LegacyProvider interface {
	AddLegacyListener(l LegacyListener)
	RemoveLegacyListener(l LegacyListener)
}

type legacyAdapter struct {
	lo LegacyOverlay
}

func (a *legacyAdapter) Identifier() string        { return a.lo.ID }
func (a *legacyAdapter) Name() string              { return a.lo.Name }
func (a *legacyAdapter) RootGroup() *mapitem.Group { return a.lo.Group }

func (a *legacyAdapter) Query() Query {
	if a.lo.Group == nil {
		return nil
	}
	return GroupQuery{a.lo.Group}
}

// LegacyBridge registers the overlays pushed by legacy providers with a
// Manager, so that they appear alongside natively registered overlays.
type LegacyBridge struct {
	m  *Manager
	lg *log.Logger

	mu        sync.Mutex
	cached    map[string]struct{}
	providers []LegacyProvider
}

func NewLegacyBridge(m *Manager, lg *log.Logger) *LegacyBridge {
	return &LegacyBridge{m: m, lg: lg, cached: make(map[string]struct{})}
}

// Connect starts listening to p.
func (b *LegacyBridge) Connect(p LegacyProvider) {
	b.mu.Lock()
	if slices.Contains(b.providers, p) {
		b.mu.Unlock()
		return
	}
	b.providers = append(b.providers, p)
	b.mu.Unlock()

	p.AddLegacyListener(b)
}

// Close disconnects from all providers and unregisters every overlay
// that the bridge registered.
func (b *LegacyBridge) Close() {
	b.mu.Lock()
	providers := b.providers
	b.providers = nil
	ids := slices.Sorted(maps.Keys(b.cached))
	b.mu.Unlock()

	for _, p := range providers {
		p.RemoveLegacyListener(b)
	}
	for _, id := range ids {
		b.OnUncache(id)
	}
}

// OnCache registers o with the manager.
func (b *LegacyBridge) OnCache(o LegacyOverlay) {
	a := &legacyAdapter{lo: o}
	var ok bool
	if o.Parent != "" {
		ok = b.m.AddOverlayToParent(o.Parent, a)
	} else {
		ok = b.m.AddOverlay(a)
	}
	if !ok {
		return
	}

	b.mu.Lock()
	b.cached[o.ID] = struct{}{}
	b.mu.Unlock()
	b.lg.Debug("cached legacy overlay", slog.String("id", o.ID))
}

// OnUncache unregisters the overlay with the given identifier, provided
// that it was registered through the bridge.
func (b *LegacyBridge) OnUncache(id string) {
	b.mu.Lock()
	_, ok := b.cached[id]
	delete(b.cached, id)
	b.mu.Unlock()

	if !ok {
		b.lg.Warn("uncache of unknown legacy overlay", slog.String("id", id))
		return
	}
	b.m.RemoveOverlay(id)
}

// Cached returns the identifiers of the overlays registered through the
// bridge.
func (b *LegacyBridge) Cached() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.cached))
}
