//go:build mcut

package native

import (
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
)

func mustNew(t *testing.T) *Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func TestCutCubeWithSheet(t *testing.T) {
	k := mustNew(t)
	src, err := kernel.Cube("cube", 5)
	if err != nil {
		t.Fatal(err)
	}
	sheet, err := kernel.FromBuffers("sheet", []float64{
		-10, 1, -20,
		10, 1, -20,
		10, 1, 20,
		-10, 1, 20,
	}, []uint32{0, 1, 2, 0, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := kernel.DefaultConfig()
	cfg.RequireThroughCuts = true

	meshes, err := k.Cut(src, sheet, cfg)
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("got %d components, want 2", len(meshes))
	}
	for _, m := range meshes {
		if err := m.Validate(); err != nil {
			t.Errorf("%s: %v", m.Name, err)
		}
	}
}

func TestCutRejectsEmptyMesh(t *testing.T) {
	k := mustNew(t)
	src, _ := kernel.Cube("cube", 5)
	if _, err := k.Cut(src, kernel.NewMesh("empty"), kernel.DefaultConfig()); err == nil {
		t.Fatal("expected error for empty cut mesh")
	}
}
