// layer/card.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package layer

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/tacmap/mapcore/log"

	"github.com/iancoleman/orderedmap"
)

// CardLayer is a deck of named layers, kept in the order they were
// added, of which at most one is shown at a time.
type CardLayer struct {
	name string
	lg   *log.Logger
	obs  listeners

	mu     sync.Mutex
	cards  *orderedmap.OrderedMap // name -> Layer
	active string                 // "" if no card is shown
}

func NewCardLayer(name string, lg *log.Logger) *CardLayer {
	return &CardLayer{name: name, lg: lg, obs: listeners{lg: lg}, cards: orderedmap.New()}
}

func (c *CardLayer) Name() string { return c.name }

// Add adds l to the end of the deck under its name. The first card added
// to an empty deck is shown. Adding a card whose name is already in the
// deck is rejected.
func (c *CardLayer) Add(l Layer) bool {
	name := l.Name()

	c.mu.Lock()
	if _, ok := c.cards.Get(name); ok {
		c.mu.Unlock()
		c.lg.Warn("card already in deck", slog.String("deck", c.name), slog.String("card", name))
		return false
	}
	c.cards.Set(name, l)
	shown := c.active == "" && len(c.cards.Keys()) == 1
	if shown {
		c.active = name
	}
	c.mu.Unlock()

	if shown {
		c.obs.notify(c, l)
	}
	return true
}

// Remove removes the named card. If it was shown, no card is shown
// afterward.
func (c *CardLayer) Remove(name string) bool {
	c.mu.Lock()
	if _, ok := c.cards.Get(name); !ok {
		c.mu.Unlock()
		return false
	}
	c.cards.Delete(name)
	wasActive := c.active == name
	if wasActive {
		c.active = ""
	}
	c.mu.Unlock()

	if wasActive {
		c.obs.notify(c, nil)
	}
	return true
}

// Show shows the named card; it does nothing if the name is unknown or
// the card is already shown.
func (c *CardLayer) Show(name string) {
	c.mu.Lock()
	v, ok := c.cards.Get(name)
	if !ok || c.active == name {
		c.mu.Unlock()
		return
	}
	c.active = name
	c.mu.Unlock()

	c.obs.notify(c, v.(Layer))
}

// Next shows the card after the current one, wrapping around from the
// last card to the first. If no card is shown, the first one is.
func (c *CardLayer) Next() {
	c.step(1)
}

// Previous shows the card before the current one, wrapping around from
// the first card to the last. If no card is shown, the last one is.
func (c *CardLayer) Previous() {
	c.step(-1)
}

func (c *CardLayer) step(dir int) {
	c.mu.Lock()
	keys := c.cards.Keys()
	if len(keys) == 0 {
		c.mu.Unlock()
		return
	}

	var next int
	if i := slices.Index(keys, c.active); i == -1 {
		if dir > 0 {
			next = 0
		} else {
			next = len(keys) - 1
		}
	} else {
		next = (i + dir + len(keys)) % len(keys)
	}
	name := keys[next]
	c.mu.Unlock()

	c.Show(name)
}

// Active returns the card being shown, or nil.
func (c *CardLayer) Active() Layer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.cards.Get(c.active); ok {
		return v.(Layer)
	}
	return nil
}

// Card returns the named card.
func (c *CardLayer) Card(name string) (Layer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.cards.Get(name); ok {
		return v.(Layer), true
	}
	return nil, false
}

// Names returns the names of the cards in deck order.
func (c *CardLayer) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cards.Keys())
}

func (c *CardLayer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cards.Keys())
}

func (c *CardLayer) AddActiveListener(l ActiveListener) bool { return c.obs.add(l) }
func (c *CardLayer) RemoveActiveListener(l ActiveListener)   { c.obs.remove(l) }
