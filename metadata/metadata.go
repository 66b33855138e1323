// metadata/metadata.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package metadata implements the typed key/value attribute store that is
// attached to every map item and group.
//
// Each stored value has a Kind. Typed getters take a fallback that is
// returned both when the key is absent and when the stored value is of a
// different kind; the latter case is logged but is never an error for the
// caller.
package metadata

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/tacmap/mapcore/log"

	"github.com/brunoga/deep"
)

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDouble
	KindLong
	KindBool
	KindStringList
	KindIntArray
	// KindSerializable values are opaque to the holder but must be
	// encodable with msgpack so that they can be persisted.
	KindSerializable
	// KindObject values are opaque in-process objects; they are never
	// persisted.
	KindObject
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindLong:
		return "long"
	case KindBool:
		return "bool"
	case KindStringList:
		return "string-list"
	case KindIntArray:
		return "int-array"
	case KindSerializable:
		return "serializable"
	case KindObject:
		return "object"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a single stored metadata value along with its kind.
type Value struct {
	Kind Kind
	V    any
}

func String(s string) Value            { return Value{KindString, s} }
func Int(i int) Value                  { return Value{KindInt, i} }
func Double(d float64) Value           { return Value{KindDouble, d} }
func Long(l int64) Value               { return Value{KindLong, l} }
func Bool(b bool) Value                { return Value{KindBool, b} }
func StringList(s []string) Value      { return Value{KindStringList, slices.Clone(s)} }
func IntArray(a []int) Value           { return Value{KindIntArray, slices.Clone(a)} }
func Serializable(v any) Value         { return Value{KindSerializable, v} }
func Object(v any) Value               { return Value{KindObject, v} }
func NestedMap(m map[string]any) Value { return Value{KindMap, copyMap(m, nil)} }

// Valid reports whether v.V has the Go type that corresponds to v.Kind.
func (v Value) Valid() bool {
	switch v.Kind {
	case KindString:
		_, ok := v.V.(string)
		return ok
	case KindInt:
		_, ok := v.V.(int)
		return ok
	case KindDouble:
		_, ok := v.V.(float64)
		return ok
	case KindLong:
		_, ok := v.V.(int64)
		return ok
	case KindBool:
		_, ok := v.V.(bool)
		return ok
	case KindStringList:
		_, ok := v.V.([]string)
		return ok
	case KindIntArray:
		_, ok := v.V.([]int)
		return ok
	case KindMap:
		_, ok := v.V.(map[string]any)
		return ok
	case KindSerializable, KindObject:
		return true
	default:
		return false
	}
}

func (v Value) LogValue() slog.Value {
	if v.Kind == KindObject {
		return slog.GroupValue(slog.String("kind", v.Kind.String()),
			slog.String("type", fmt.Sprintf("%T", v.V)))
	}
	return slog.GroupValue(slog.String("kind", v.Kind.String()), slog.Any("value", v.V))
}

// clone returns a copy of v that shares no mutable storage with it.
// Serializable and object values are opaque and are returned as is.
func (v Value) clone(lg *log.Logger) Value {
	switch v.Kind {
	case KindStringList:
		return Value{v.Kind, slices.Clone(v.V.([]string))}
	case KindIntArray:
		return Value{v.Kind, slices.Clone(v.V.([]int))}
	case KindMap:
		return Value{v.Kind, copyMap(v.V.(map[string]any), lg)}
	default:
		return v
	}
}

func copyMap(m map[string]any, lg *log.Logger) map[string]any {
	if m == nil {
		return nil
	}
	c, err := deep.Copy(m)
	if err != nil {
		// Values that deep can't handle (e.g., channels) are shared
		// rather than copied, but the map itself is still private.
		lg.Warn("unable to deep copy metadata map", slog.Any("error", err))
		return maps.Clone(m)
	}
	return c
}

///////////////////////////////////////////////////////////////////////////
// Holder

// Store is the minimal interface that a metadata container provides;
// Entry must return a value that does not alias the container's storage.
type Store interface {
	Entry(key string) (Value, bool)
	SetEntry(key string, v Value)
}

// Holder is implemented by everything that carries metadata.
type Holder interface {
	Store

	Has(key string) bool
	Remove(key string)
	Keys() []string
	Len() int

	// Entries returns a copy of all of the holder's values.
	Entries() map[string]Value
	// SetMetaData replaces all of the holder's values with the given ones.
	SetMetaData(entries map[string]Value)
	// CopyMetaData merges the given values into the holder, overwriting
	// existing values with the same keys.
	CopyMetaData(entries map[string]Value)

	GetString(key, fallback string) string
	SetString(key, s string)
	GetInt(key string, fallback int) int
	SetInt(key string, i int)
	GetDouble(key string, fallback float64) float64
	SetDouble(key string, d float64)
	GetLong(key string, fallback int64) int64
	SetLong(key string, l int64)
	GetBool(key string, fallback bool) bool
	SetBool(key string, b bool)
	GetStringList(key string, fallback []string) []string
	SetStringList(key string, s []string)
	GetIntArray(key string, fallback []int) []int
	SetIntArray(key string, a []int)
	GetSerializable(key string, fallback any) any
	SetSerializable(key string, v any)
	GetObject(key string, fallback any) any
	SetObject(key string, v any)
	GetMap(key string, fallback map[string]any) map[string]any
	SetMap(key string, m map[string]any)
}

// accessors implements the typed getters and setters of Holder on top of
// a Store.
type accessors struct {
	s  Store
	lg *log.Logger
}

func get[T any](a accessors, key string, kind Kind, fallback T) T {
	v, ok := a.s.Entry(key)
	if !ok {
		return fallback
	}
	if v.Kind != kind {
		a.lg.Warn("metadata kind mismatch", slog.String("key", key),
			slog.String("requested", kind.String()), slog.String("stored", v.Kind.String()))
		return fallback
	}
	t, ok := v.V.(T)
	if !ok {
		a.lg.Warn("metadata value has unexpected type", slog.String("key", key),
			slog.String("kind", kind.String()), slog.String("type", fmt.Sprintf("%T", v.V)))
		return fallback
	}
	return t
}

func (a accessors) GetString(key, fallback string) string {
	return get(a, key, KindString, fallback)
}

func (a accessors) SetString(key, s string) { a.s.SetEntry(key, String(s)) }

func (a accessors) GetInt(key string, fallback int) int {
	return get(a, key, KindInt, fallback)
}

func (a accessors) SetInt(key string, i int) { a.s.SetEntry(key, Int(i)) }

func (a accessors) GetDouble(key string, fallback float64) float64 {
	return get(a, key, KindDouble, fallback)
}

func (a accessors) SetDouble(key string, d float64) { a.s.SetEntry(key, Double(d)) }

func (a accessors) GetLong(key string, fallback int64) int64 {
	return get(a, key, KindLong, fallback)
}

func (a accessors) SetLong(key string, l int64) { a.s.SetEntry(key, Long(l)) }

func (a accessors) GetBool(key string, fallback bool) bool {
	return get(a, key, KindBool, fallback)
}

func (a accessors) SetBool(key string, b bool) { a.s.SetEntry(key, Bool(b)) }

func (a accessors) GetStringList(key string, fallback []string) []string {
	return get(a, key, KindStringList, fallback)
}

func (a accessors) SetStringList(key string, s []string) { a.s.SetEntry(key, StringList(s)) }

func (a accessors) GetIntArray(key string, fallback []int) []int {
	return get(a, key, KindIntArray, fallback)
}

func (a accessors) SetIntArray(key string, arr []int) { a.s.SetEntry(key, IntArray(arr)) }

func (a accessors) GetSerializable(key string, fallback any) any {
	return get(a, key, KindSerializable, fallback)
}

func (a accessors) SetSerializable(key string, v any) { a.s.SetEntry(key, Serializable(v)) }

func (a accessors) GetObject(key string, fallback any) any {
	return get(a, key, KindObject, fallback)
}

func (a accessors) SetObject(key string, v any) { a.s.SetEntry(key, Object(v)) }

func (a accessors) GetMap(key string, fallback map[string]any) map[string]any {
	return get(a, key, KindMap, fallback)
}

func (a accessors) SetMap(key string, m map[string]any) { a.s.SetEntry(key, NestedMap(m)) }
