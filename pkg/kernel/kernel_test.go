package kernel

import (
	"errors"
	"testing"
)

// --- Mesh store tests ---

func TestMeshSetIndicesDefaultsToTriangles(t *testing.T) {
	m := NewMesh("tri")
	if err := m.SetPositions64([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0}); err != nil {
		t.Fatalf("SetPositions64: %v", err)
	}
	if err := m.SetIndices([]uint32{0, 1, 2, 1, 3, 2}); err != nil {
		t.Fatalf("SetIndices: %v", err)
	}
	if got := m.FaceSizes(); len(got) != 2 || got[0] != 3 || got[1] != 3 {
		t.Errorf("FaceSizes() = %v, want [3 3]", got)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestMeshValidation(t *testing.T) {
	square := []float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
	tests := []struct {
		name      string
		positions []float64
		indices   []uint32
		sizes     []uint32
		wantErr   error
	}{
		{"valid quad", square, []uint32{0, 1, 2, 3}, []uint32{4}, nil},
		{"valid triangles", square, []uint32{0, 1, 2, 0, 2, 3}, nil, nil},
		{"index out of range", square, []uint32{0, 1, 4}, nil, ErrInvalidValue},
		{"face size below 3", square, []uint32{0, 1, 2, 3}, []uint32{2, 2}, ErrInvalidValue},
		{"face size sum mismatch", square, []uint32{0, 1, 2, 3}, []uint32{3}, ErrInvalidValue},
		{"ragged positions", []float64{0, 0}, nil, nil, ErrInvalidValue},
		{"implicit triangles ragged", square, []uint32{0, 1, 2, 3}, nil, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBuffers(tt.name, tt.positions, tt.indices, tt.sizes)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMeshRoundTrip(t *testing.T) {
	pos := []float64{0.1, 0.2, 0.3, 1e-7, 3, 4, 5, 6, 7.25, 8, 9, 10}
	idx := []uint32{0, 1, 2, 3, 0, 2, 3}
	sizes := []uint32{4, 3}
	m, err := FromBuffers("rt", pos, idx, sizes)
	if err != nil {
		t.Fatalf("FromBuffers: %v", err)
	}
	gotPos, gotIdx, gotSizes, err := m.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	for i := range pos {
		if gotPos[i] != pos[i] {
			t.Errorf("position %d = %v, want %v", i, gotPos[i], pos[i])
		}
	}
	for i := range idx {
		if gotIdx[i] != idx[i] {
			t.Errorf("index %d = %d, want %d", i, gotIdx[i], idx[i])
		}
	}
	for i := range sizes {
		if gotSizes[i] != sizes[i] {
			t.Errorf("face size %d = %d, want %d", i, gotSizes[i], sizes[i])
		}
	}
	// Mutating the export must not touch the mesh.
	gotPos[0] = 99
	if m.Positions()[0] != 0.1 {
		t.Error("Export returned an aliased buffer")
	}
}

func TestMeshPositions32(t *testing.T) {
	m := NewMesh("f32")
	in := []float32{0.1, 0.2, 0.3}
	if err := m.SetPositions32(in); err != nil {
		t.Fatalf("SetPositions32: %v", err)
	}
	out := m.Positions32()
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Positions32()[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestMeshRelease(t *testing.T) {
	m, err := Cube("c", 1)
	if err != nil {
		t.Fatalf("Cube: %v", err)
	}
	m.Release()
	m.Release() // second release is a no-op
	if !m.Released() {
		t.Fatal("Released() = false after Release")
	}
	if err := m.SetIndices([]uint32{0, 1, 2}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetIndices after release: %v, want ErrInvalidValue", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Validate after release: %v, want ErrInvalidValue", err)
	}
}

func TestValidateViewNilAndReleased(t *testing.T) {
	var typed *Mesh
	if err := ValidateView(typed); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("typed nil: %v, want ErrInvalidValue", err)
	}
	if len(typed.Positions()) != 0 || typed.Released() {
		t.Error("nil mesh accessors should read as empty")
	}
	m, err := Cube("c", 1)
	if err != nil {
		t.Fatalf("Cube: %v", err)
	}
	m.Release()
	if err := ValidateView(m); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("released: %v, want ErrInvalidValue", err)
	}
}

func TestMeshOutOfMemory(t *testing.T) {
	if err := checkSize("huge", MaxElements+1); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("checkSize = %v, want ErrOutOfMemory", err)
	}
}

func TestPrimitives(t *testing.T) {
	cube, err := Cube("cube", 5)
	if err != nil {
		t.Fatalf("Cube: %v", err)
	}
	if cube.VertexCount() != 8 || cube.FaceCount() != 6 {
		t.Errorf("cube has %d vertices, %d faces", cube.VertexCount(), cube.FaceCount())
	}
	if !cube.IsManifold() {
		t.Error("cube should be manifold")
	}
	min, max := cube.BoundingBox()
	if min != [3]float64{-5, -5, -5} || max != [3]float64{5, 5, 5} {
		t.Errorf("cube bounds %v..%v", min, max)
	}

	plane, err := Plane("plane", [3]float64{0, 1, 0}, 10, 1)
	if err != nil {
		t.Fatalf("Plane: %v", err)
	}
	if plane.FaceCount() != 2 || plane.IsManifold() {
		t.Errorf("plane: %d faces, manifold=%v", plane.FaceCount(), plane.IsManifold())
	}

	prism, err := Prism("prism", 2, 3, 6)
	if err != nil {
		t.Fatalf("Prism: %v", err)
	}
	if prism.VertexCount() != 12 || prism.FaceCount() != 8 || !prism.IsManifold() {
		t.Errorf("prism: %d vertices, %d faces, manifold=%v",
			prism.VertexCount(), prism.FaceCount(), prism.IsManifold())
	}
	tris, err := prism.Triangulated()
	if err != nil {
		t.Fatalf("Triangulated: %v", err)
	}
	// 2 hexagons -> 4 triangles each, 6 quads -> 2 each.
	if len(tris) != 3*(4+4+12) {
		t.Errorf("prism triangulated to %d indices", len(tris))
	}
}

// --- Flags and config tests ---

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		wantErr bool
	}{
		{"double with defaults", VertexArrayDouble | FilterFragmentLocationAbove, false},
		{"float", VertexArrayFloat | FilterAll &^ FilterFragmentLocationUndef | RequireThroughCuts, false},
		{"no precision", FilterAll, true},
		{"both precisions", VertexArrayFloat | VertexArrayDouble, true},
		{"through cuts with undefined", VertexArrayDouble | RequireThroughCuts | FilterFragmentLocationUndef, true},
		{"unknown bit", VertexArrayDouble | 1<<20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConfig(tt.flags)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Fatalf("err = %v, want ErrInvalidValue", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConfig: %v", err)
			}
			if got := c.Flags(); got != tt.flags {
				t.Errorf("round trip: %v, want %v", got, tt.flags)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"vertex-array-double", "REQUIRE_THROUGH_CUTS", "filter-all"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	want := VertexArrayDouble | RequireThroughCuts | FilterAll
	if f != want {
		t.Errorf("ParseFlags = %v, want %v", f, want)
	}
	if _, err := ParseFlags([]string{"nope"}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unknown flag: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}
	want := VertexArrayDouble | FilterFragmentLocationAbove | FilterFragmentLocationBelow | FilterFragmentSealingNone
	if c.Flags() != want {
		t.Errorf("DefaultConfig().Flags() = %v, want %v", c.Flags(), want)
	}
	if c.Attempts() != DefaultMaxPerturbAttempts {
		t.Errorf("Attempts() = %d", c.Attempts())
	}
}

func TestFilterBitKinds(t *testing.T) {
	tests := []struct {
		f                    Filter
		location, sealing, fragment bool
	}{
		{Filter{}, false, false, false},
		{Filter{Above: true}, true, false, true},
		{Filter{SealInside: true}, false, true, true},
		{Filter{Undefined: true, SealNone: true}, true, true, true},
		{Filter{PatchInside: true, SeamCut: true}, false, false, false},
	}
	for _, tt := range tests {
		if got := tt.f.AnyLocation(); got != tt.location {
			t.Errorf("%+v AnyLocation() = %v", tt.f, got)
		}
		if got := tt.f.AnySealing(); got != tt.sealing {
			t.Errorf("%+v AnySealing() = %v", tt.f, got)
		}
		if got := tt.f.AnyFragment(); got != tt.fragment {
			t.Errorf("%+v AnyFragment() = %v", tt.f, got)
		}
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusSuccess},
		{ErrInvalidValue, StatusInvalidValue},
		{ErrOutOfMemory, StatusOutOfMemory},
		{ErrInvalidOperation, StatusInvalidOperation},
		{errors.New("other"), StatusInvalidOperation},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestComponentTypeMask(t *testing.T) {
	m := MaskFragment | MaskSeam
	if !m.Has(ComponentFragment) || !m.Has(ComponentSeam) || m.Has(ComponentPatch) || m.Has(ComponentInput) {
		t.Errorf("mask %b selects the wrong types", m)
	}
}
