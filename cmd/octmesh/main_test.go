package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettings(t *testing.T) {
	const config = `{
	// cell sizes in millimetres
	maxCellSize: 4,
	boundaryCellSize: 1,
	extractor: "tet",
	patchTypes: {inlet: "patch", outlet: "patch",},
}`
	path := filepath.Join(t.TempDir(), "mesh.json5")
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := loadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.MaxCellSize != 4 || s.BoundaryCellSize != 1 || s.Extractor != "tet" || len(s.PatchTypes) != 2 {
		t.Errorf("unexpected settings %+v", s)
	}
	if !s.Morph {
		t.Error("defaults not applied")
	}
	if err := s.Validate(); err != nil {
		t.Error(err)
	}

	if err := os.WriteFile(path, []byte(`{maxCellSize: 1, extrator: "tet"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSettings(path); err == nil {
		t.Error("misspelled key accepted")
	}
}
