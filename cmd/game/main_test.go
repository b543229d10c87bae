package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomz197/patchtyper/internal/catalog"
)

func TestPrintThreatsDefaultCatalog(t *testing.T) {
	var buf bytes.Buffer
	if err := printThreats(&buf, ""); err != nil {
		t.Fatalf("printThreats failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := catalog.Default().Templates()
	if len(lines) != len(want)+1 {
		t.Fatalf("expected a header and %d rows, got %d lines", len(want), len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("unexpected header %q", lines[0])
	}
	for i, tmpl := range want {
		if !strings.HasPrefix(lines[i+1], tmpl.ID) || !strings.Contains(lines[i+1], tmpl.Fix) {
			t.Errorf("row %d: expected %s with fix %q, got %q", i, tmpl.ID, tmpl.Fix, lines[i+1])
		}
	}
}

func TestPrintThreatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threats.json")
	doc := `{"threats": [
		{"id": "worm", "name": "Worm", "fix": "segment network", "severity": "critical", "damage": 40, "min_level": 2, "points": 30}
	]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	var buf bytes.Buffer
	if err := printThreats(&buf, path); err != nil {
		t.Fatalf("printThreats failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"worm", "Worm", "critical", "segment network"} {
		if !strings.Contains(out, want) {
			t.Errorf("table is missing %q:\n%s", want, out)
		}
	}

	if err := printThreats(&buf, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing catalog")
	}
}
