// metadata/map.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package metadata

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/util"
)

// Map is the standard Holder implementation; it is safe for concurrent
// use.
type Map struct {
	accessors

	mu      sync.RWMutex
	entries map[string]Value
	lg      *log.Logger
}

var _ Holder = (*Map)(nil)

func NewMap(lg *log.Logger) *Map {
	m := &Map{
		entries: make(map[string]Value),
		lg:      lg,
	}
	m.accessors = accessors{s: m, lg: lg}
	return m
}

func (m *Map) Entry(key string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	if !ok {
		return Value{}, false
	}
	return v.clone(m.lg), true
}

func (m *Map) SetEntry(key string, v Value) {
	if !v.Valid() {
		m.lg.Warn("ignoring invalid metadata value", slog.String("key", key), slog.Any("value", v))
		return
	}
	v = v.clone(m.lg)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = v
}

func (m *Map) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[key]
	return ok
}

// KindOf returns the kind of the value stored for key.
func (m *Map) KindOf(key string) (Kind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	return v.Kind, ok
}

func (m *Map) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return util.SortedMapKeys(m.entries)
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Map) Entries() map[string]Value {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := make(map[string]Value, len(m.entries))
	for k, v := range m.entries {
		c[k] = v.clone(m.lg)
	}
	return c
}

func (m *Map) SetMetaData(entries map[string]Value) {
	c := m.validCopy(entries)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = c
}

func (m *Map) CopyMetaData(entries map[string]Value) {
	c := m.validCopy(entries)

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range c {
		m.entries[k] = v
	}
}

func (m *Map) validCopy(entries map[string]Value) map[string]Value {
	c := make(map[string]Value, len(entries))
	for k, v := range entries {
		if !v.Valid() {
			m.lg.Warn("ignoring invalid metadata value", slog.String("key", k), slog.Any("value", v))
			continue
		}
		c[k] = v.clone(m.lg)
	}
	return c
}

func (m *Map) LogValue() slog.Value {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := util.SortedMapKeys(m.entries)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, m.entries[k]))
	}
	return slog.GroupValue(attrs...)
}

///////////////////////////////////////////////////////////////////////////
// Filtered

// filtered is a view of another Holder that only exposes the keys
// accepted by allow. Writes of rejected keys are dropped.
type filtered struct {
	accessors
	h     Holder
	allow func(key string) bool
}

// Filter returns a Holder that reads and writes through to h but only
// exposes the keys for which allow returns true. No data is copied.
func Filter(h Holder, allow func(key string) bool, lg *log.Logger) Holder {
	f := &filtered{h: h, allow: allow}
	f.accessors = accessors{s: f, lg: lg}
	return f
}

// Prefixed returns a filtered view of h that exposes only keys with the
// given prefix.
func Prefixed(h Holder, prefix string, lg *log.Logger) Holder {
	return Filter(h, func(key string) bool { return strings.HasPrefix(key, prefix) }, lg)
}

func (f *filtered) Entry(key string) (Value, bool) {
	if !f.allow(key) {
		return Value{}, false
	}
	return f.h.Entry(key)
}

func (f *filtered) SetEntry(key string, v Value) {
	if f.allow(key) {
		f.h.SetEntry(key, v)
	} else {
		f.lg.Debug("dropping write to filtered metadata key", slog.String("key", key))
	}
}

func (f *filtered) Has(key string) bool {
	return f.allow(key) && f.h.Has(key)
}

func (f *filtered) Remove(key string) {
	if f.allow(key) {
		f.h.Remove(key)
	}
}

func (f *filtered) Keys() []string {
	return slices.DeleteFunc(f.h.Keys(), func(k string) bool { return !f.allow(k) })
}

func (f *filtered) Len() int {
	return len(f.Keys())
}

func (f *filtered) Entries() map[string]Value {
	e := f.h.Entries()
	for k := range e {
		if !f.allow(k) {
			delete(e, k)
		}
	}
	return e
}

// SetMetaData replaces only the values visible through the filter; keys
// that the filter hides are left untouched in the underlying holder.
func (f *filtered) SetMetaData(entries map[string]Value) {
	for _, k := range f.Keys() {
		if _, ok := entries[k]; !ok {
			f.h.Remove(k)
		}
	}
	f.CopyMetaData(entries)
}

func (f *filtered) CopyMetaData(entries map[string]Value) {
	c := make(map[string]Value, len(entries))
	for k, v := range entries {
		if f.allow(k) {
			c[k] = v
		}
	}
	f.h.CopyMetaData(c)
}
