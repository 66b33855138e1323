// log/log_test.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWriter(&buf, "warn")

	lg.Debug("debug")
	lg.Info("info")
	lg.Warn("warning", slog.Int("n", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %s", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "warning" || rec["n"] != float64(3) {
		t.Errorf("unexpected record %v", rec)
	}
	if _, ok := rec["callstack"]; !ok {
		t.Errorf("record has no callstack: %v", rec)
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWriter(&buf, "debug").With(slog.String("view", "map"))
	lg.Infof("%d items", 12)

	if !strings.Contains(buf.String(), `"view":"map"`) || !strings.Contains(buf.String(), `"msg":"12 items"`) {
		t.Errorf("unexpected output %s", buf.String())
	}
}

func TestNilLogger(t *testing.T) {
	var lg *Logger
	lg.Debug("discarded")
	lg.Info("discarded")
	if lg.With(slog.Int("a", 1)) != nil {
		t.Error("With on nil logger should return nil")
	}
}

func TestCallstack(t *testing.T) {
	fr := Callstack(nil)
	if len(fr) == 0 {
		t.Fatal("empty callstack")
	}
	for _, f := range fr {
		if f.File == "" || f.Line == 0 {
			t.Errorf("incomplete frame %v", f)
		}
	}
}
