package kernel

import (
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/google/uuid"
)

// Unmapped marks an output vertex or face that has no origin in either
// input mesh (for example a vertex created on the intersection curve).
const Unmapped = -1

// Compile-time interface check.
var _ MeshView = (*Mesh)(nil)

// Mesh is an owned polygon mesh. All arrays are flat: positions has 3
// floats per vertex, indices holds the vertices of every face back to back
// and faceSizes gives each face's vertex count. The face-size array is
// always present; a mesh built from indices alone is a triangle mesh.
//
// The zero value is an empty, usable mesh.
type Mesh struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	positions     []float64
	indices       []uint32
	faceSizes     []uint32
	explicitFaces bool
	released      bool
}

// NewMesh returns an empty mesh with a fresh handle ID.
func NewMesh(name string) *Mesh {
	return &Mesh{ID: uuid.New(), Name: name}
}

// FromBuffers builds a validated mesh from flat buffers. A nil faceSizes
// means every face is a triangle. The buffers are copied.
func FromBuffers(name string, positions []float64, indices, faceSizes []uint32) (*Mesh, error) {
	m := NewMesh(name)
	if err := m.SetPositions64(positions); err != nil {
		return nil, err
	}
	if faceSizes != nil {
		if err := m.SetFaceSizes(faceSizes); err != nil {
			return nil, err
		}
	}
	if err := m.SetIndices(indices); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mesh) usable(op string) error {
	if m == nil {
		return fmt.Errorf("%s: nil mesh: %w", op, ErrInvalidValue)
	}
	if m.released {
		return fmt.Errorf("%s: mesh %s already released: %w", op, m.ID, ErrInvalidValue)
	}
	return nil
}

// SetPositions32 replaces the vertex positions from a float32 buffer.
// Values are widened to float64 without loss.
func (m *Mesh) SetPositions32(p []float32) error {
	if err := m.usable("set positions"); err != nil {
		return err
	}
	if len(p)%3 != 0 {
		return fmt.Errorf("set positions: length %d is not a multiple of 3: %w", len(p), ErrInvalidValue)
	}
	if err := checkSize("set positions", len(p)); err != nil {
		return err
	}
	m.positions = make([]float64, len(p))
	for i, v := range p {
		m.positions[i] = float64(v)
	}
	return nil
}

// SetPositions64 replaces the vertex positions.
func (m *Mesh) SetPositions64(p []float64) error {
	if err := m.usable("set positions"); err != nil {
		return err
	}
	if len(p)%3 != 0 {
		return fmt.Errorf("set positions: length %d is not a multiple of 3: %w", len(p), ErrInvalidValue)
	}
	if err := checkSize("set positions", len(p)); err != nil {
		return err
	}
	m.positions = append([]float64(nil), p...)
	return nil
}

// SetIndices replaces the face vertex references. Unless face sizes were
// set explicitly, every face is taken to be a triangle.
func (m *Mesh) SetIndices(idx []uint32) error {
	if err := m.usable("set indices"); err != nil {
		return err
	}
	if err := checkSize("set indices", len(idx)); err != nil {
		return err
	}
	if !m.explicitFaces {
		if len(idx)%3 != 0 {
			return fmt.Errorf("set indices: %d indices do not form triangles: %w", len(idx), ErrInvalidValue)
		}
		m.faceSizes = make([]uint32, len(idx)/3)
		for i := range m.faceSizes {
			m.faceSizes[i] = 3
		}
	}
	m.indices = append([]uint32(nil), idx...)
	return nil
}

// SetFaceSizes replaces the per-face vertex counts. Every size must be at
// least 3.
func (m *Mesh) SetFaceSizes(sizes []uint32) error {
	if err := m.usable("set face sizes"); err != nil {
		return err
	}
	if err := checkSize("set face sizes", len(sizes)); err != nil {
		return err
	}
	for i, s := range sizes {
		if s < 3 {
			return fmt.Errorf("set face sizes: face %d has %d vertices: %w", i, s, ErrInvalidValue)
		}
	}
	m.faceSizes = append([]uint32(nil), sizes...)
	m.explicitFaces = true
	return nil
}

// Positions returns the borrowed position buffer. The buffer accessors are
// nil-safe so a nil *Mesh behind a MeshView reads as empty.
func (m *Mesh) Positions() []float64 {
	if m == nil {
		return nil
	}
	return m.positions
}

// Indices returns the borrowed index buffer.
func (m *Mesh) Indices() []uint32 {
	if m == nil {
		return nil
	}
	return m.indices
}

// FaceSizes returns the borrowed face-size buffer.
func (m *Mesh) FaceSizes() []uint32 {
	if m == nil {
		return nil
	}
	return m.faceSizes
}

// Export returns copies of the three buffers in the layout they were set.
func (m *Mesh) Export() (positions []float64, indices, faceSizes []uint32, err error) {
	if err := m.usable("export"); err != nil {
		return nil, nil, nil, err
	}
	return append([]float64(nil), m.positions...),
		append([]uint32(nil), m.indices...),
		append([]uint32(nil), m.faceSizes...), nil
}

// Positions32 returns the positions narrowed to float32.
func (m *Mesh) Positions32() []float32 {
	pos := m.Positions()
	out := make([]float32, len(pos))
	for i, v := range pos {
		out[i] = float32(v)
	}
	return out
}

// Validate checks the mesh invariants: every index addresses a vertex,
// every face has at least 3 vertices and the face sizes add up to the
// index count.
func (m *Mesh) Validate() error {
	return ValidateView(m)
}

// ValidateView checks the mesh invariants of any view. A *Mesh that is nil
// or released fails with ErrInvalidValue.
func ValidateView(v MeshView) error {
	if v == nil {
		return fmt.Errorf("validate: nil mesh: %w", ErrInvalidValue)
	}
	if m, ok := v.(*Mesh); ok {
		if err := m.usable("validate"); err != nil {
			return err
		}
	}
	pos, idx, sizes := v.Positions(), v.Indices(), v.FaceSizes()
	if len(pos)%3 != 0 {
		return fmt.Errorf("validate: position length %d is not a multiple of 3: %w", len(pos), ErrInvalidValue)
	}
	nv := uint32(len(pos) / 3)
	for i, ix := range idx {
		if ix >= nv {
			return fmt.Errorf("validate: index %d = %d out of range [0,%d): %w", i, ix, nv, ErrInvalidValue)
		}
	}
	total := 0
	for i, s := range sizes {
		if s < 3 {
			return fmt.Errorf("validate: face %d has %d vertices: %w", i, s, ErrInvalidValue)
		}
		total += int(s)
	}
	if total != len(idx) {
		return fmt.Errorf("validate: face sizes sum to %d, have %d indices: %w", total, len(idx), ErrInvalidValue)
	}
	return nil
}

// Release drops the mesh buffers. Further use fails with ErrInvalidValue.
// Releasing twice is a no-op.
func (m *Mesh) Release() {
	if m == nil || m.released {
		return
	}
	m.positions, m.indices, m.faceSizes = nil, nil, nil
	m.released = true
}

// Released reports whether Release has been called.
func (m *Mesh) Released() bool {
	return m != nil && m.released
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.positions) / 3
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	return len(m.faceSizes)
}

// IndexCount returns the length of the index buffer.
func (m *Mesh) IndexCount() int {
	return len(m.indices)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.positions) == 0
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) geom.Vec {
	return geom.FromFlat(m.positions, i)
}

// Faces splits the index buffer into one slice per face. The slices alias
// the mesh's index buffer.
func (m *Mesh) Faces() [][]uint32 {
	return SplitFaces(m.indices, m.faceSizes)
}

// SplitFaces cuts a concatenated index buffer into faces.
func SplitFaces(indices, faceSizes []uint32) [][]uint32 {
	faces := make([][]uint32, len(faceSizes))
	off := 0
	for i, s := range faceSizes {
		faces[i] = indices[off : off+int(s)]
		off += int(s)
	}
	return faces
}

// BoundingBox returns the axis-aligned bounding box.
func (m *Mesh) BoundingBox() (min, max [3]float64) {
	b := geom.EmptyBox()
	for i := 0; i < m.VertexCount(); i++ {
		b = geom.Include(b, m.Vertex(i))
	}
	return [3]float64{b.Min.X, b.Min.Y, b.Min.Z}, [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
}

// Clone returns an independent copy with a new handle ID.
func (m *Mesh) Clone() *Mesh {
	c := NewMesh(m.Name)
	c.positions = append([]float64(nil), m.positions...)
	c.indices = append([]uint32(nil), m.indices...)
	c.faceSizes = append([]uint32(nil), m.faceSizes...)
	c.explicitFaces = m.explicitFaces
	return c
}

// Triangulated returns the mesh's triangle list: three indices per
// triangle, with polygons split by ear clipping.
func (m *Mesh) Triangulated() ([]uint32, error) {
	return TriangulateView(m)
}

// TriangulateView splits every face of a view into triangles.
func TriangulateView(v MeshView) ([]uint32, error) {
	pos := v.Positions()
	out := make([]uint32, 0, len(v.Indices()))
	for fi, face := range SplitFaces(v.Indices(), v.FaceSizes()) {
		if len(face) == 3 {
			out = append(out, face...)
			continue
		}
		pts := make([]geom.Vec, len(face))
		for j, ix := range face {
			pts[j] = geom.FromFlat(pos, int(ix))
		}
		tris, err := geom.TriangulatePolygon(pts)
		if err != nil {
			return nil, fmt.Errorf("triangulate face %d: %w", fi, err)
		}
		for _, t := range tris {
			out = append(out, face[t])
		}
	}
	return out, nil
}

// IsManifold reports whether every edge is used by exactly two faces, once
// in each direction.
func (m *Mesh) IsManifold() bool {
	directed := make(map[[2]uint32]int)
	for _, face := range m.Faces() {
		for j := range face {
			a, b := face[j], face[(j+1)%len(face)]
			directed[[2]uint32{a, b}]++
		}
	}
	for e, n := range directed {
		if n != 1 || directed[[2]uint32{e[1], e[0]}] != 1 {
			return false
		}
	}
	return len(directed) > 0
}
