// metadata/metadata_test.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package metadata

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/tacmap/mapcore/log"
)

func TestTypedRoundTrip(t *testing.T) {
	m := NewMap(nil)

	m.SetString("callsign", "ALPHA-1")
	m.SetInt("count", 42)
	m.SetDouble("heading", 271.5)
	m.SetLong("lastUpdate", 1_700_000_000_000)
	m.SetBool("editable", true)
	m.SetStringList("tags", []string{"hostile", "armor"})
	m.SetIntArray("colors", []int{0xff0000, 0x00ff00})
	m.SetSerializable("extra", []byte{1, 2, 3})
	obj := &struct{ n int }{7}
	m.SetObject("handle", obj)

	if s := m.GetString("callsign", ""); s != "ALPHA-1" {
		t.Errorf("expected ALPHA-1, got %q", s)
	}
	if i := m.GetInt("count", 0); i != 42 {
		t.Errorf("expected 42, got %d", i)
	}
	if d := m.GetDouble("heading", 0); d != 271.5 {
		t.Errorf("expected 271.5, got %f", d)
	}
	if l := m.GetLong("lastUpdate", 0); l != 1_700_000_000_000 {
		t.Errorf("expected long value, got %d", l)
	}
	if !m.GetBool("editable", false) {
		t.Errorf("expected editable")
	}
	if tags := m.GetStringList("tags", nil); !slices.Equal(tags, []string{"hostile", "armor"}) {
		t.Errorf("unexpected tags %v", tags)
	}
	if c := m.GetIntArray("colors", nil); !slices.Equal(c, []int{0xff0000, 0x00ff00}) {
		t.Errorf("unexpected colors %v", c)
	}
	if b, ok := m.GetSerializable("extra", nil).([]byte); !ok || !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("unexpected serializable %v", b)
	}
	if o := m.GetObject("handle", nil); o != obj {
		t.Errorf("expected the same object back")
	}
}

func TestMismatchReturnsFallback(t *testing.T) {
	var buf bytes.Buffer
	m := NewMap(log.NewWriter(&buf, "warn"))

	m.SetString("speed", "fast")
	m.SetInt("count", 3)

	if v := m.GetInt("speed", -1); v != -1 {
		t.Errorf("expected fallback -1, got %d", v)
	}
	if v := m.GetDouble("count", 1.5); v != 1.5 {
		t.Errorf("expected fallback 1.5, got %f", v)
	}
	if v := m.GetLong("count", 9); v != 9 {
		t.Errorf("int must not be read as long; got %d", v)
	}
	if v := m.GetStringList("speed", []string{"x"}); !slices.Equal(v, []string{"x"}) {
		t.Errorf("expected fallback list, got %v", v)
	}
	if v := m.GetString("missing", "dflt"); v != "dflt" {
		t.Errorf("expected fallback for absent key, got %q", v)
	}

	if !strings.Contains(buf.String(), "metadata kind mismatch") {
		t.Errorf("expected mismatch to be logged, got %q", buf.String())
	}
}

func TestGetMapReturnsCopy(t *testing.T) {
	m := NewMap(nil)
	orig := map[string]any{
		"name":  "route",
		"legs":  []any{"a", "b"},
		"inner": map[string]any{"speed": 12},
	}
	m.SetMap("props", orig)

	// Mutating the map we passed in must not affect what was stored.
	orig["name"] = "changed"

	got := m.GetMap("props", nil)
	if got["name"] != "route" {
		t.Errorf("expected stored copy, got %v", got["name"])
	}

	got["name"] = "mutated"
	got["inner"].(map[string]any)["speed"] = 99
	got["legs"].([]any)[0] = "z"

	again := m.GetMap("props", nil)
	if again["name"] != "route" {
		t.Errorf("top-level mutation leaked: %v", again["name"])
	}
	if again["inner"].(map[string]any)["speed"] != 12 {
		t.Errorf("nested mutation leaked: %v", again["inner"])
	}
	if again["legs"].([]any)[0] != "a" {
		t.Errorf("nested slice mutation leaked: %v", again["legs"])
	}
}

func TestListsAreCopied(t *testing.T) {
	m := NewMap(nil)
	tags := []string{"a", "b"}
	m.SetStringList("tags", tags)
	tags[0] = "z"

	got := m.GetStringList("tags", nil)
	got[1] = "y"

	if again := m.GetStringList("tags", nil); !slices.Equal(again, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", again)
	}
}

func TestSetAndCopyMetaData(t *testing.T) {
	m := NewMap(nil)
	m.SetString("a", "1")
	m.SetString("b", "2")

	m.CopyMetaData(map[string]Value{"b": Int(3), "c": Bool(true)})
	if keys := m.Keys(); !slices.Equal(keys, []string{"a", "b", "c"}) {
		t.Errorf("expected merged keys, got %v", keys)
	}
	if m.GetInt("b", 0) != 3 {
		t.Errorf("expected b overwritten")
	}

	m.SetMetaData(map[string]Value{"z": String("only")})
	if keys := m.Keys(); !slices.Equal(keys, []string{"z"}) {
		t.Errorf("expected replaced keys, got %v", keys)
	}

	// Invalid values are dropped rather than stored.
	m.CopyMetaData(map[string]Value{"bad": {Kind: KindInt, V: "nope"}})
	if m.Has("bad") {
		t.Errorf("expected invalid value to be rejected")
	}
}

func TestFilter(t *testing.T) {
	m := NewMap(nil)
	m.SetString("style.color", "red")
	m.SetString("style.width", "2")
	m.SetString("callsign", "BRAVO")

	f := Prefixed(m, "style.", nil)
	if keys := f.Keys(); !slices.Equal(keys, []string{"style.color", "style.width"}) {
		t.Errorf("unexpected filtered keys %v", keys)
	}
	if f.Has("callsign") || f.GetString("callsign", "hidden") != "hidden" {
		t.Errorf("expected callsign to be hidden")
	}

	m.SetString("style", "short")
	m.SetString("style.", "bare")
	if f.Has("style") || !f.Has("style.") {
		t.Errorf("expected only keys starting with the full prefix")
	}
	m.Remove("style")
	m.Remove("style.")

	// Writes go through to the underlying holder.
	f.SetString("style.color", "blue")
	if m.GetString("style.color", "") != "blue" {
		t.Errorf("expected write-through")
	}
	f.SetString("callsign", "CHARLIE")
	if m.GetString("callsign", "") != "BRAVO" {
		t.Errorf("expected write of hidden key to be dropped")
	}

	f.SetMetaData(map[string]Value{"style.dash": Bool(true)})
	if m.Has("style.color") || !m.Has("style.dash") || !m.Has("callsign") {
		t.Errorf("unexpected result of filtered replace: %v", m.Keys())
	}
}

func TestCodec(t *testing.T) {
	m := NewMap(nil)
	m.SetString("callsign", "DELTA")
	m.SetInt("count", 5)
	m.SetLong("time", 1234567890123)
	m.SetDouble("ce", 4.5)
	m.SetBool("archived", false)
	m.SetStringList("tags", []string{"x"})
	m.SetIntArray("ids", []int{1, 2})
	m.SetMap("props", map[string]any{"k": "v"})
	m.SetObject("handle", &struct{}{})

	b, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	out := NewMap(nil)
	out.SetString("stale", "x")
	if err := Unmarshal(b, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if out.Has("stale") {
		t.Errorf("expected Unmarshal to replace existing values")
	}
	if out.Has("handle") {
		t.Errorf("object values should not be persisted")
	}
	for key, kind := range map[string]Kind{"callsign": KindString, "count": KindInt, "time": KindLong,
		"ce": KindDouble, "archived": KindBool, "tags": KindStringList, "ids": KindIntArray, "props": KindMap} {
		if k, ok := out.KindOf(key); !ok || k != kind {
			t.Errorf("%s: expected kind %s, got %s (present %v)", key, kind, k, ok)
		}
	}
	if out.GetInt("count", 0) != 5 || out.GetLong("time", 0) != 1234567890123 {
		t.Errorf("numeric values did not survive the round trip")
	}
	if out.GetMap("props", nil)["k"] != "v" {
		t.Errorf("nested map did not survive the round trip")
	}
}
