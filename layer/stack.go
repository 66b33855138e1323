// layer/stack.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package layer

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/log"
)

// StackLayer has one active layer and a stack of the layers that were
// active before it. Push saves the active layer and replaces it; Pop
// restores the most recently saved one.
type StackLayer struct {
	name string
	lg   *log.Logger
	obs  listeners

	mu     sync.Mutex
	active Layer
	saved  []Layer
}

// NewStackLayer returns a stack whose active layer is base, which may be
// nil.
func NewStackLayer(name string, base Layer, lg *log.Logger) *StackLayer {
	return &StackLayer{name: name, lg: lg, obs: listeners{lg: lg}, active: base}
}

func (s *StackLayer) Name() string { return s.name }

func (s *StackLayer) Push(l Layer) {
	s.mu.Lock()
	s.saved = append(s.saved, s.active)
	s.active = l
	s.mu.Unlock()

	s.lg.Debug("pushed layer", slog.String("stack", s.name), slog.String("layer", nameOf(l)))
	s.obs.notify(s, l)
}

// Pop makes the most recently saved layer active again and returns the
// layer that was active. Popping a stack with nothing saved is a usage
// error and panics.
func (s *StackLayer) Pop() Layer {
	s.mu.Lock()
	if len(s.saved) == 0 {
		s.mu.Unlock()
		panic(fmt.Sprintf("layer: Pop called on empty stack %q", s.name))
	}
	popped := s.active
	s.active = s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
	active := s.active
	s.mu.Unlock()

	s.lg.Debug("popped layer", slog.String("stack", s.name), slog.String("layer", nameOf(popped)))
	s.obs.notify(s, active)
	return popped
}

func (s *StackLayer) Active() Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Size returns the number of saved layers plus one for the active slot.
func (s *StackLayer) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved) + 1
}

// Layers returns the saved layers, oldest first, followed by the active
// one.
func (s *StackLayer) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(slices.Clone(s.saved), s.active)
}

func (s *StackLayer) AddActiveListener(l ActiveListener) bool { return s.obs.add(l) }
func (s *StackLayer) RemoveActiveListener(l ActiveListener)   { s.obs.remove(l) }
