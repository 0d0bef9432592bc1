package cut

import (
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
)

// polyMesh is a private copy of one bound input mesh.
type polyMesh struct {
	pos   []geom.Vec
	faces [][]int
}

// snapshot copies a view into working form. With float32 precision every
// coordinate is rounded to float32 first, so the solve sees exactly what a
// float32 buffer would hold.
func snapshot(v kernel.MeshView, prec kernel.Precision) (polyMesh, error) {
	if err := kernel.ValidateView(v); err != nil {
		return polyMesh{}, err
	}
	raw := v.Positions()
	pm := polyMesh{pos: make([]geom.Vec, len(raw)/3)}
	for i := range pm.pos {
		p := geom.FromFlat(raw, i)
		if prec == kernel.PrecisionFloat32 {
			p = geom.V(float64(float32(p[0])), float64(float32(p[1])), float64(float32(p[2])))
		}
		pm.pos[i] = p
	}
	for _, f := range kernel.SplitFaces(v.Indices(), v.FaceSizes()) {
		face := make([]int, len(f))
		for j, ix := range f {
			face[j] = int(ix)
		}
		pm.faces = append(pm.faces, face)
	}
	if len(pm.faces) == 0 {
		return polyMesh{}, fmt.Errorf("mesh has no faces: %w", kernel.ErrInvalidValue)
	}
	return pm, nil
}

// triMesh is the internal triangulation of a polyMesh. Vertex ids are in
// the solver's global numbering.
type triMesh struct {
	tris     [][3]int
	parent   []int // polygon each triangle came from
	firstTri []int // first triangle of each polygon; len(faces)+1 entries
	boxes    []sdf.Box3
}

// triangulate splits every polygon of pm into triangles, offsetting vertex
// ids by base.
func triangulate(pm polyMesh, pos []geom.Vec, base int) (*triMesh, error) {
	tm := &triMesh{firstTri: make([]int, 0, len(pm.faces)+1)}
	for fi, face := range pm.faces {
		tm.firstTri = append(tm.firstTri, len(tm.tris))
		pts := make([]geom.Vec, len(face))
		for j, v := range face {
			pts[j] = pos[base+v]
		}
		idx, err := geom.TriangulatePolygon(pts)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w: %w", fi, kernel.ErrInvalidValue, err)
		}
		for k := 0; k < len(idx); k += 3 {
			t := [3]int{base + face[idx[k]], base + face[idx[k+1]], base + face[idx[k+2]]}
			tm.tris = append(tm.tris, t)
			tm.parent = append(tm.parent, fi)
			tm.boxes = append(tm.boxes, geom.BoxOf(pos[t[0]], pos[t[1]], pos[t[2]]))
		}
	}
	tm.firstTri = append(tm.firstTri, len(tm.tris))
	return tm, nil
}

// edgeKey is an undirected edge between two global vertex ids, smaller id
// first.
type edgeKey [2]int

func mkEdge(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}
