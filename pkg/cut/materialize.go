package cut

import (
	"fmt"
	"sort"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ kernel.MeshView = (*Component)(nil)

// Component is one connected component produced by a dispatch. It owns
// compact copies of its buffers: only the vertices its faces reference,
// ordered by input vertex id and then by creation order on the cut path.
//
// Location and Sealing are meaningful for fragments, PatchLocation for
// patches and Origin for seams and input echoes.
type Component struct {
	ID            uuid.UUID
	Type          kernel.ComponentType
	Location      kernel.FragmentLocation
	Sealing       kernel.SealType
	PatchLocation kernel.PatchLocation
	Origin        kernel.Origin

	positions    []float64
	indices      []uint32
	faceSizes    []uint32
	seamVertices []uint32
	vertexMap    []int
	faceMap      []int
	hasVertexMap bool
	hasFaceMap   bool
	released     bool
}

// materialize compacts p into a Component.
func materialize(p *part, verts []geom.Vec, nIn int, cfg kernel.Config) (*Component, error) {
	seen := make(map[int]bool)
	nIdx := 0
	for _, face := range p.faces {
		nIdx += len(face)
		for _, v := range face {
			seen[v] = true
		}
	}
	if 3*len(seen) > kernel.MaxElements || nIdx > kernel.MaxElements {
		return nil, fmt.Errorf("component with %d vertices and %d indices: %w", len(seen), nIdx, kernel.ErrOutOfMemory)
	}
	gids := make([]int, 0, len(seen))
	for v := range seen {
		gids = append(gids, v)
	}
	sort.Ints(gids)

	c := &Component{
		ID:            uuid.New(),
		Type:          p.typ,
		Location:      p.loc,
		Sealing:       p.seal,
		PatchLocation: p.patch,
		Origin:        p.origin,
		positions:     make([]float64, 0, 3*len(gids)),
		indices:       make([]uint32, 0, nIdx),
		faceSizes:     make([]uint32, 0, len(p.faces)),
		hasVertexMap:  cfg.IncludeVertexMap,
		hasFaceMap:    cfg.IncludeFaceMap,
	}
	local := make(map[int]uint32, len(gids))
	for i, g := range gids {
		local[g] = uint32(i)
		v := verts[g]
		c.positions = append(c.positions, v[0], v[1], v[2])
		if g >= nIn {
			c.seamVertices = append(c.seamVertices, uint32(i))
		}
		if cfg.IncludeVertexMap {
			if g < nIn {
				c.vertexMap = append(c.vertexMap, g)
			} else {
				c.vertexMap = append(c.vertexMap, kernel.Unmapped)
			}
		}
	}
	for _, face := range p.faces {
		for _, v := range face {
			c.indices = append(c.indices, local[v])
		}
		c.faceSizes = append(c.faceSizes, uint32(len(face)))
	}
	if cfg.IncludeFaceMap {
		c.faceMap = append([]int(nil), p.origins...)
	}
	return c, nil
}

// Name describes the component, e.g. "fragment-above-none" or "seam-cut".
func (c *Component) Name() string {
	switch c.Type {
	case kernel.ComponentFragment:
		return fmt.Sprintf("fragment-%s-%s", c.Location, c.Sealing)
	case kernel.ComponentPatch:
		return fmt.Sprintf("patch-%s", c.PatchLocation)
	default:
		return fmt.Sprintf("%s-%s", c.Type, c.Origin)
	}
}

// Positions returns the borrowed position buffer.
func (c *Component) Positions() []float64 { return c.positions }

// Indices returns the borrowed index buffer.
func (c *Component) Indices() []uint32 { return c.indices }

// FaceSizes returns the borrowed face-size buffer.
func (c *Component) FaceSizes() []uint32 { return c.faceSizes }

// VertexCount returns the number of vertices.
func (c *Component) VertexCount() int { return len(c.positions) / 3 }

// FaceCount returns the number of faces.
func (c *Component) FaceCount() int { return len(c.faceSizes) }

// Mesh returns an owned copy of the component geometry.
func (c *Component) Mesh() (*kernel.Mesh, error) {
	if c.released {
		return nil, fmt.Errorf("component %s: released: %w", c.ID, kernel.ErrInvalidValue)
	}
	return kernel.FromBuffers(c.Name(), c.positions, c.indices, c.faceSizes)
}

// SeamVertices returns the local ids of the vertices on the cut path.
func (c *Component) SeamVertices() []uint32 {
	return append([]uint32(nil), c.seamVertices...)
}

// VertexMap returns, for each vertex, its id in the combined input
// numbering (source vertices first, then cut vertices) or kernel.Unmapped
// for vertices created on the cut path.
func (c *Component) VertexMap() ([]int, error) {
	if !c.hasVertexMap {
		return nil, fmt.Errorf("vertex map not requested at dispatch: %w", kernel.ErrInvalidValue)
	}
	return append([]int(nil), c.vertexMap...), nil
}

// FaceMap returns, for each face, the input face it came from: source face
// i is i and cut face j is the source face count plus j.
func (c *Component) FaceMap() ([]int, error) {
	if !c.hasFaceMap {
		return nil, fmt.Errorf("face map not requested at dispatch: %w", kernel.ErrInvalidValue)
	}
	return append([]int(nil), c.faceMap...), nil
}

// Triangulation returns three local vertex ids per triangle.
func (c *Component) Triangulation() ([]uint32, error) {
	if c.released {
		return nil, fmt.Errorf("component %s: released: %w", c.ID, kernel.ErrInvalidValue)
	}
	return kernel.TriangulateView(c)
}

func (c *Component) release() {
	c.positions, c.indices, c.faceSizes = nil, nil, nil
	c.seamVertices, c.vertexMap, c.faceMap = nil, nil, nil
	c.released = true
}

// Released reports whether the owning context has released the component.
func (c *Component) Released() bool {
	return c.released
}
