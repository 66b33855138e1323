// store/persister.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"context"
	"log/slog"

	"github.com/tacmap/mapcore/event"
	"github.com/tacmap/mapcore/log"
)

var persistedTypes = []event.Type{event.ItemAdded, event.ItemPersist, event.ItemGroupChanged, event.ItemRemoved}

// Persister keeps a Store in sync with the map by listening for item
// events. It registers in the dispatcher's base frame so that it keeps
// working while modal listener scopes are pushed.
type Persister struct {
	s  *Store
	lg *log.Logger
}

func NewPersister(s *Store, lg *log.Logger) *Persister {
	return &Persister{s: s, lg: lg}
}

func (p *Persister) Register(d *event.Dispatcher) {
	for _, t := range persistedTypes {
		d.AddListenerToBase(t, p)
	}
}

func (p *Persister) Unregister(d *event.Dispatcher) {
	for _, t := range persistedTypes {
		d.RemoveListenerFromBase(t, p)
	}
}

func (p *Persister) OnMapEvent(e event.Event) {
	item := e.Item()
	if item == nil {
		return
	}

	var err error
	switch e.Type() {
	case event.ItemAdded, event.ItemPersist, event.ItemGroupChanged:
		err = p.s.Save(context.Background(), item)
	case event.ItemRemoved:
		err = p.s.Delete(context.Background(), item.UID())
	}
	if err != nil {
		p.lg.Error("unable to persist item", slog.Any("event", e), slog.Any("error", err))
	}
}
