// metadata/codec.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package metadata

import (
	"errors"
	"fmt"

	"github.com/tacmap/mapcore/util"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownKind = errors.New("unknown metadata kind")

type wireEntry struct {
	Key  string             `msgpack:"k"`
	Kind Kind               `msgpack:"t"`
	Raw  msgpack.RawMessage `msgpack:"v"`
}

// Marshal encodes all of the persistable values in h using msgpack.
// KindObject values are skipped.
func Marshal(h Holder) ([]byte, error) {
	return MarshalEntries(h.Entries())
}

func MarshalEntries(entries map[string]Value) ([]byte, error) {
	wire := make([]wireEntry, 0, len(entries))
	for _, k := range util.SortedMapKeys(entries) {
		v := entries[k]
		if v.Kind == KindObject {
			continue
		}
		raw, err := msgpack.Marshal(v.V)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		wire = append(wire, wireEntry{Key: k, Kind: v.Kind, Raw: raw})
	}
	return msgpack.Marshal(wire)
}

// UnmarshalEntries decodes values previously encoded with Marshal.
func UnmarshalEntries(b []byte) (map[string]Value, error) {
	var wire []wireEntry
	if err := msgpack.Unmarshal(b, &wire); err != nil {
		return nil, err
	}

	entries := make(map[string]Value, len(wire))
	for _, w := range wire {
		v, err := decodeValue(w.Kind, w.Raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.Key, err)
		}
		entries[w.Key] = v
	}
	return entries, nil
}

// Unmarshal decodes b and replaces the contents of h with the result.
func Unmarshal(b []byte, h Holder) error {
	entries, err := UnmarshalEntries(b)
	if err != nil {
		return err
	}
	h.SetMetaData(entries)
	return nil
}

func decodeValue(kind Kind, raw msgpack.RawMessage) (Value, error) {
	switch kind {
	case KindString:
		return decodeAs[string](kind, raw)
	case KindInt:
		return decodeAs[int](kind, raw)
	case KindDouble:
		return decodeAs[float64](kind, raw)
	case KindLong:
		return decodeAs[int64](kind, raw)
	case KindBool:
		return decodeAs[bool](kind, raw)
	case KindStringList:
		return decodeAs[[]string](kind, raw)
	case KindIntArray:
		return decodeAs[[]int](kind, raw)
	case KindMap:
		return decodeAs[map[string]any](kind, raw)
	case KindSerializable:
		return decodeAs[any](kind, raw)
	default:
		return Value{}, fmt.Errorf("%d: %w", int(kind), ErrUnknownKind)
	}
}

func decodeAs[T any](kind Kind, raw msgpack.RawMessage) (Value, error) {
	var t T
	if err := msgpack.Unmarshal(raw, &t); err != nil {
		return Value{}, err
	}
	return Value{Kind: kind, V: t}, nil
}
