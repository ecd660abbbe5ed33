package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "", "warn", "error"} {
		if _, err := ParseLevel(name); err != nil {
			t.Fatalf("ParseLevel(%q): %v", name, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewRejectsFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConsoleHandlerWritesNameAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	off := false
	logger, err := New(Options{Level: "debug", Name: "BianchiPower", Writer: &buf, Color: &off})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.WithGroup("mesh").Debug("painted", "nmesh", 64, "note", "two words")

	line := buf.String()
	for _, want := range []string{"DEBUG", "[BianchiPower]", "painted", "mesh.nmesh=64", `mesh.note="two words"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q does not contain %q", line, want)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("unexpected color codes in %q", line)
	}
}

func TestLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "error", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Error("shown")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFollowerOnlyLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Follower: true, Writer: &buf, Name: "BianchiPower"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("debug")
	logger.With("rank", 1).Info("info")
	logger.Warn("warn")
	logger.Error("failed", "rank", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "failed") {
		t.Fatalf("follower output = %q", buf.String())
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Name: "BianchiPower", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("done", "rows", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["level"] != "info" || rec[FieldLogger] != "BianchiPower" || rec["rows"] != 3.0 {
		t.Fatalf("unexpected record %v", rec)
	}
	if _, ok := rec["ts"]; !ok {
		t.Fatalf("missing ts in %v", rec)
	}
}
