package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/geom"
)

func TestBox(t *testing.T) {
	b := &Builder{Cells: 16}
	box, err := b.Box(10, 6, 4)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	mesh, err := b.ToMesh("box", box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// Welding shares vertices between neighbouring triangles.
	if mesh.VertexCount() >= mesh.IndexCount() {
		t.Errorf("vertex count %d not below index count %d", mesh.VertexCount(), mesh.IndexCount())
	}
	min, max := mesh.BoundingBox()
	want := [3]float64{5, 3, 2}
	for i := 0; i < 3; i++ {
		if math.Abs(max[i]-want[i]) > 1 || math.Abs(min[i]+want[i]) > 1 {
			t.Errorf("axis %d: bounds [%v, %v], want about ±%v", i, min[i], max[i], want[i])
		}
	}
}

func TestSphereIsClosed(t *testing.T) {
	b := &Builder{Cells: 24}
	s, err := b.Sphere(5)
	if err != nil {
		t.Fatalf("Sphere: %v", err)
	}
	mesh, err := b.ToMesh("sphere", s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		if r := mesh.Vertex(i).Len(); math.Abs(r-5) > 0.5 {
			t.Fatalf("vertex %d at radius %v", i, r)
		}
	}
	t.Logf("sphere: %d vertices, %d faces, manifold=%v", mesh.VertexCount(), mesh.FaceCount(), mesh.IsManifold())
}

func TestDifference(t *testing.T) {
	b := &Builder{Cells: 20}
	box, err := b.Box(10, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	hole, err := b.Cylinder(20, 2)
	if err != nil {
		t.Fatal(err)
	}
	diff := b.Difference(box, hole)
	mesh, err := b.ToMesh("drilled", diff)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	boxMesh, err := b.ToMesh("box", box)
	if err != nil {
		t.Fatal(err)
	}
	if mesh.FaceCount() <= boxMesh.FaceCount() {
		t.Errorf("drilled box has %d faces, plain box %d", mesh.FaceCount(), boxMesh.FaceCount())
	}
}

func TestTranslateAndBounds(t *testing.T) {
	b := New()
	box, err := b.Box(2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	moved := b.Translate(box, 10, 0, 0)
	min, max := moved.BoundingBox()
	if min[0] < 8.9 || max[0] > 11.1 {
		t.Errorf("translated bounds x = [%v, %v], want [9, 11]", min[0], max[0])
	}
	rot := b.Rotate(box, 0, 0, 45)
	_, rmax := rot.BoundingBox()
	if rmax[0] < 1.2 {
		t.Errorf("rotated bounds x max = %v, want about %v", rmax[0], math.Sqrt2)
	}
}

func TestInvalidShapes(t *testing.T) {
	b := New()
	if _, err := b.Sphere(-1); err == nil {
		t.Error("expected error for negative radius")
	}
	if _, err := b.Cylinder(-1, 1); err == nil {
		t.Error("expected error for negative height")
	}
}

func TestWelder(t *testing.T) {
	w := newWelder(1e-6, 64)
	a := w.addUnique(geom.V(0, 0, 0))
	b := w.addUnique(geom.V(1e-8, 0, 0))
	c := w.addUnique(geom.V(1, 0, 0))
	if a != b {
		t.Errorf("close points not welded: %d, %d", a, b)
	}
	if a == c {
		t.Error("distant points welded")
	}
	if len(w.verts) != 2 {
		t.Errorf("welder holds %d vertices, want 2", len(w.verts))
	}
}
