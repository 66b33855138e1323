// layer/bin.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package layer

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/log"

	"github.com/iancoleman/orderedmap"
)

// LayerBinLayer is a registry of named StackLayers. All composition goes
// through the bins: layers cannot be added to or removed from the
// LayerBinLayer itself.
type LayerBinLayer struct {
	name string
	lg   *log.Logger

	mu   sync.Mutex
	bins *orderedmap.OrderedMap // name -> *StackLayer
}

func NewLayerBinLayer(name string, lg *log.Logger) *LayerBinLayer {
	return &LayerBinLayer{name: name, lg: lg, bins: orderedmap.New()}
}

func (b *LayerBinLayer) Name() string { return b.name }

// AddLayerBin creates a bin whose active layer is base. Adding a bin with
// a name that is already in use panics.
func (b *LayerBinLayer) AddLayerBin(name string, base Layer) *StackLayer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.bins.Get(name); ok {
		panic(fmt.Sprintf("layer: bin %q already exists in %q", name, b.name))
	}
	s := NewStackLayer(name, base, b.lg)
	b.bins.Set(name, s)
	return s
}

func (b *LayerBinLayer) Bin(name string) (*StackLayer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.bins.Get(name); ok {
		return v.(*StackLayer), true
	}
	return nil, false
}

// Bins returns the names of the bins in the order they were added.
func (b *LayerBinLayer) Bins() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.bins.Keys())
}

// PushBin pushes l onto the named bin. It returns false if there is no
// such bin.
func (b *LayerBinLayer) PushBin(name string, l Layer) bool {
	s, ok := b.Bin(name)
	if !ok {
		b.lg.Warn("push to unknown layer bin", slog.String("bin", name), slog.String("layer", nameOf(l)))
		return false
	}
	s.Push(l)
	return true
}

// PopBin pops the named bin, returning the layer that was active in it.
// As with StackLayer.Pop, popping a bin with nothing saved panics.
func (b *LayerBinLayer) PopBin(name string) (Layer, bool) {
	s, ok := b.Bin(name)
	if !ok {
		b.lg.Warn("pop of unknown layer bin", slog.String("bin", name))
		return nil, false
	}
	return s.Pop(), true
}

// AddLayer is not supported; layers must be added through a bin.
func (b *LayerBinLayer) AddLayer(l Layer) {
	panic(fmt.Sprintf("layer: AddLayer(%q) is not supported on %q; use PushBin", nameOf(l), b.name))
}

// RemoveLayer is not supported; layers must be removed through a bin.
func (b *LayerBinLayer) RemoveLayer(l Layer) {
	panic(fmt.Sprintf("layer: RemoveLayer(%q) is not supported on %q; use PopBin", nameOf(l), b.name))
}
