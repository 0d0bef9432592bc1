package cut

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/kerf/pkg/geom"
)

// splitMesh is one input mesh after reconnection: every face touched by
// the intersection curve has been re-triangulated so the curve runs along
// mesh edges.
type splitMesh struct {
	faces  [][]int // global vertex ids, original winding
	parent []int   // input polygon of each face

	// seams holds the edges lying on the intersection curve. seamLeft
	// gives, for each seam edge lo->hi, which side of the other mesh the
	// faces to its left are on: +1 along the other mesh's normals, -1
	// against them.
	seams    map[edgeKey]bool
	seamLeft map[edgeKey]int
}

// reconnect builds the split form of mesh m.
func (s *solver) reconnect(m int) (*splitMesh, error) {
	tm := s.meshes[m]
	pm := s.src
	base := 0
	if m == meshCut {
		pm, base = s.cut, s.nSrc
	}

	sm := &splitMesh{
		seams:    make(map[edgeKey]bool),
		seamLeft: make(map[edgeKey]int),
	}
	for fi, face := range pm.faces {
		first, last := tm.firstTri[fi], tm.firstTri[fi+1]
		touched := false
		for ti := first; ti < last; ti++ {
			if s.touched(m, ti) {
				touched = true
				break
			}
		}
		if !touched {
			poly := make([]int, len(face))
			for j, v := range face {
				poly[j] = base + v
			}
			sm.faces = append(sm.faces, poly)
			sm.parent = append(sm.parent, fi)
			continue
		}
		for ti := first; ti < last; ti++ {
			if !s.touched(m, ti) {
				t := tm.tris[ti]
				sm.faces = append(sm.faces, []int{t[0], t[1], t[2]})
				sm.parent = append(sm.parent, fi)
				continue
			}
			sub, err := s.retriangulate(m, ti, sm)
			if err != nil {
				return nil, fmt.Errorf("%s face %d: %w", meshName(m), fi, err)
			}
			for _, t := range sub {
				sm.faces = append(sm.faces, []int{t[0], t[1], t[2]})
				sm.parent = append(sm.parent, fi)
			}
		}
	}
	return sm, nil
}

func (s *solver) touched(m, ti int) bool {
	if len(s.triSegs[m][ti]) > 0 || len(s.facePts[m][ti]) > 0 {
		return true
	}
	t := s.meshes[m].tris[ti]
	for k := 0; k < 3; k++ {
		if len(s.edgePts[m][mkEdge(t[k], t[(k+1)%3])]) > 0 {
			return true
		}
	}
	return false
}

// retriangulate splits triangle ti of mesh m along its intersection
// segments and returns the sub-triangles in global ids. Seam edges and
// their sides are recorded in sm.
func (s *solver) retriangulate(m, ti int, sm *splitMesh) ([][3]int, error) {
	t := s.meshes[m].tris[ti]
	corner := [3]geom.Vec{s.verts[t[0]], s.verts[t[1]], s.verts[t[2]]}
	pr := geom.NewProjector(geom.TriangleNormal(corner[0], corner[1], corner[2]))
	c := newCDT([3]geom.Vec2{pr.Project(corner[0]), pr.Project(corner[1]), pr.Project(corner[2])}, t)

	local := map[int]int{t[0]: 0, t[1]: 1, t[2]: 2}

	// Boundary points split the edges they lie on, in order along the edge.
	for k := 0; k < 3; k++ {
		a, b := t[k], t[(k+1)%3]
		e := mkEdge(a, b)
		pts := append([]int(nil), s.edgePts[m][e]...)
		sort.Slice(pts, func(i, j int) bool {
			pi, pj := s.ivParam(pts[i]), s.ivParam(pts[j])
			if e[0] != a {
				pi, pj = -pi, -pj
			}
			if pi != pj {
				return pi < pj
			}
			return pts[i] < pts[j]
		})
		prev := local[a]
		for _, g := range pts {
			p := c.addPoint(pr.Project(s.verts[g]), g)
			local[g] = p
			if err := c.splitBoundary(prev, local[b], p); err != nil {
				return nil, err
			}
			prev = p
		}
	}

	inner := append([]int(nil), s.facePts[m][ti]...)
	sort.Ints(inner)
	for _, g := range inner {
		p := c.addPoint(pr.Project(s.verts[g]), g)
		local[g] = p
		if err := c.insertInterior(p); err != nil {
			return nil, err
		}
	}

	for _, si := range s.triSegs[m][ti] {
		seg := s.segs[si]
		if err := c.insertConstraint(local[seg.a], local[seg.b]); err != nil {
			return nil, err
		}
		e := mkEdge(seg.a, seg.b)
		left, err := seamSide(c, local[e[0]], local[e[1]], seg.side[m])
		if err != nil {
			return nil, err
		}
		sm.seams[e] = true
		sm.seamLeft[e] = left
	}

	out := make([][3]int, len(c.tris))
	for i, tr := range c.tris {
		out[i] = [3]int{c.gid[tr[0]], c.gid[tr[1]], c.gid[tr[2]]}
	}
	return out, nil
}

// seamSide returns the side (relative to the other mesh's triangle) of the
// region left of u->w. side holds the side of each corner; corners are
// local vertices 0..2.
func seamSide(c *cdt, u, w int, side [3]int) (int, error) {
	pu, pw := c.pts[u], c.pts[w]
	d := pw.Sub(pu)
	best, bestMag := -1, 0.0
	for k := 0; k < 3; k++ {
		q := c.pts[k].Sub(pu)
		if mag := math.Abs(d[0]*q[1] - d[1]*q[0]); mag > bestMag {
			best, bestMag = k, mag
		}
	}
	if best < 0 {
		return 0, degenerate("intersection segment is parallel to its whole face")
	}
	o := c.orient(u, w, best)
	if o == 0 {
		return 0, degenerate("face corner lies on the intersection line")
	}
	return o * side[best], nil
}

// faceHasDirected reports whether the face walks the edge a->b.
func faceHasDirected(face []int, a, b int) bool {
	for j := range face {
		if face[j] == a && face[(j+1)%len(face)] == b {
			return true
		}
	}
	return false
}

// seamSign returns the side of the other mesh that face f is on, judged
// from seam edge e.
func (sm *splitMesh) seamSign(f int, e edgeKey) int {
	if faceHasDirected(sm.faces[f], e[0], e[1]) {
		return sm.seamLeft[e]
	}
	return -sm.seamLeft[e]
}

// faceCount is used by the materializer to offset cut face ids.
func (pm polyMesh) faceCount() int {
	return len(pm.faces)
}
