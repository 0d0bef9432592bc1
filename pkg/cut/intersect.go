package cut

import (
	"fmt"
	"sort"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
)

const (
	meshSource = 0
	meshCut    = 1
)

// ivKey identifies an intersection vertex combinatorially: the edge of one
// mesh and the triangle of the other mesh it passes through. Both faces
// around the edge see the same key, so they share the vertex.
type ivKey struct {
	mesh int // mesh owning the edge
	edge edgeKey
	tri  int // triangle of the other mesh
}

type ivInfo struct {
	key ivKey
	t   float64 // parameter along key.edge, from edge[0] to edge[1]
}

// segment is one piece of the intersection curve: the crossing of a source
// triangle with a cut triangle.
type segment struct {
	a, b int    // global ids of the two intersection vertices
	tri  [2]int // triangle index in the source and in the cut mesh
	// side[m][k] is the orientation of corner k of tri[m] relative to the
	// plane of the other triangle.
	side [2][3]int
}

// solver holds one attempt at cutting src with cut.
type solver struct {
	src, cut polyMesh
	nSrc     int // source vertex count; cut vertices follow
	nIn      int // total input vertex count; intersection vertices follow

	verts  []geom.Vec
	meshes [2]*triMesh

	ivs     []ivInfo
	ivIndex map[ivKey]int
	segs    []segment

	triSegs [2]map[int][]int     // triangle -> segment indices
	edgePts [2]map[edgeKey][]int // mesh edge -> intersection vertices on it
	facePts [2]map[int][]int     // mesh triangle -> intersection vertices inside it
}

func newSolver(src, cut polyMesh, cutPos []geom.Vec) (*solver, error) {
	s := &solver{
		src:     src,
		cut:     cut,
		nSrc:    len(src.pos),
		nIn:     len(src.pos) + len(cutPos),
		ivIndex: make(map[ivKey]int),
	}
	s.verts = make([]geom.Vec, 0, s.nIn)
	s.verts = append(s.verts, src.pos...)
	s.verts = append(s.verts, cutPos...)
	for m := 0; m < 2; m++ {
		s.triSegs[m] = make(map[int][]int)
		s.edgePts[m] = make(map[edgeKey][]int)
		s.facePts[m] = make(map[int][]int)
	}

	var err error
	if s.meshes[meshSource], err = triangulate(src, s.verts, 0); err != nil {
		return nil, fmt.Errorf("source mesh: %w", err)
	}
	if s.meshes[meshCut], err = triangulate(cut, s.verts, s.nSrc); err != nil {
		return nil, fmt.Errorf("cut mesh: %w", err)
	}
	return s, nil
}

func degenerate(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kernel.ErrGeneralPosition)
}

// candidatePairs returns every (source, cut) triangle pair whose bounding
// boxes overlap, in source-major order.
func (s *solver) candidatePairs() [][2]int {
	srcM, cutM := s.meshes[meshSource], s.meshes[meshCut]
	order := make([]int, len(cutM.tris))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		bi, bj := cutM.boxes[order[i]], cutM.boxes[order[j]]
		if bi.Min.X != bj.Min.X {
			return bi.Min.X < bj.Min.X
		}
		return order[i] < order[j]
	})

	var pairs [][2]int
	var hits []int
	for si, sb := range srcM.boxes {
		hits = hits[:0]
		for _, ci := range order {
			cb := cutM.boxes[ci]
			if cb.Min.X > sb.Max.X {
				break
			}
			if geom.Overlaps(sb, cb) {
				hits = append(hits, ci)
			}
		}
		sort.Ints(hits)
		for _, ci := range hits {
			pairs = append(pairs, [2]int{si, ci})
		}
	}
	return pairs
}

// intersect runs the narrow phase over all candidate pairs.
func (s *solver) intersect() error {
	for _, p := range s.candidatePairs() {
		if err := s.intersectPair(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *solver) corners(m, t int) [3]geom.Vec {
	tri := s.meshes[m].tris[t]
	return [3]geom.Vec{s.verts[tri[0]], s.verts[tri[1]], s.verts[tri[2]]}
}

func separated(o [3]int) bool {
	return o[0] != 0 && o[0] == o[1] && o[1] == o[2]
}

func hasZero(o [3]int) bool {
	return o[0] == 0 || o[1] == 0 || o[2] == 0
}

// intersectPair computes the segment along which source triangle si and cut
// triangle ci cross, if any.
func (s *solver) intersectPair(si, ci int) error {
	tri := [2]int{si, ci}
	var c [2][3]geom.Vec
	c[meshSource] = s.corners(meshSource, si)
	c[meshCut] = s.corners(meshCut, ci)

	// o[m][k]: corner k of mesh m's triangle against the other triangle.
	var o [2][3]int
	for m := 0; m < 2; m++ {
		other := c[1-m]
		for k := 0; k < 3; k++ {
			o[m][k] = geom.Orient3D(other[0], other[1], other[2], c[m][k])
		}
	}
	if separated(o[0]) || separated(o[1]) {
		return nil
	}
	if hasZero(o[0]) || hasZero(o[1]) {
		// A corner on the other plane only matters if the triangles meet.
		if !touches(c[meshSource], c[meshCut]) {
			return nil
		}
		return degenerate("source triangle %d and cut triangle %d touch at a vertex or are coplanar", si, ci)
	}

	var pts []int
	for m := 0; m < 2; m++ {
		ids := s.meshes[m].tris[tri[m]]
		other := c[1-m]
		for k := 0; k < 3; k++ {
			k1 := (k + 1) % 3
			if o[m][k] == o[m][k1] {
				continue
			}
			hit, err := s.edgeHitsTriangle(ids[k], ids[k1], other)
			if err != nil {
				return fmt.Errorf("%s triangle %d edge %d vs triangle %d: %w",
					meshName(m), tri[m], k, tri[1-m], err)
			}
			if hit {
				pts = append(pts, s.intersectionVertex(ivKey{mesh: m, edge: mkEdge(ids[k], ids[k1]), tri: tri[1-m]}, other))
			}
		}
	}

	switch len(pts) {
	case 0:
		return nil
	case 2:
	default:
		return fmt.Errorf("source triangle %d and cut triangle %d cross at %d points: %w",
			si, ci, len(pts), kernel.ErrInvalidOperation)
	}
	if pts[0] == pts[1] {
		return degenerate("source triangle %d and cut triangle %d meet at a single point", si, ci)
	}

	seg := segment{a: pts[0], b: pts[1], tri: tri, side: o}
	id := len(s.segs)
	s.segs = append(s.segs, seg)
	s.triSegs[meshSource][si] = append(s.triSegs[meshSource][si], id)
	s.triSegs[meshCut][ci] = append(s.triSegs[meshCut][ci], id)
	return nil
}

// touches reports whether two closed triangles share at least one point.
// Two triangles meet exactly when an edge of one meets the other.
func touches(a, b [3]geom.Vec) bool {
	for k := 0; k < 3; k++ {
		k1 := (k + 1) % 3
		if edgeTouches(a[k], a[k1], b) || edgeTouches(b[k], b[k1], a) {
			return true
		}
	}
	return false
}

// edgeTouches reports whether segment pq meets the closed triangle t.
func edgeTouches(p, q geom.Vec, t [3]geom.Vec) bool {
	op := geom.Orient3D(t[0], t[1], t[2], p)
	oq := geom.Orient3D(t[0], t[1], t[2], q)
	if op == oq && op != 0 {
		return false
	}
	if op == 0 && oq == 0 {
		pr := geom.NewProjector(geom.TriangleNormal(t[0], t[1], t[2]))
		t2 := [3]geom.Vec2{pr.Project(t[0]), pr.Project(t[1]), pr.Project(t[2])}
		return segmentTouches2D(pr.Project(p), pr.Project(q), t2)
	}
	// pq reaches the plane at one point; it lies in the closed triangle
	// when the line through pq does not pass any edge on the wrong side.
	var o [3]int
	for k := 0; k < 3; k++ {
		o[k] = geom.Orient3D(p, q, t[k], t[(k+1)%3])
	}
	return !mixedSigns(o)
}

func segmentTouches2D(a, b geom.Vec2, t [3]geom.Vec2) bool {
	if insideClosed(a, t) || insideClosed(b, t) {
		return true
	}
	for k := 0; k < 3; k++ {
		if segmentsTouch(a, b, t[k], t[(k+1)%3]) {
			return true
		}
	}
	return false
}

func insideClosed(p geom.Vec2, t [3]geom.Vec2) bool {
	var o [3]int
	for k := 0; k < 3; k++ {
		o[k] = geom.Orient2D(t[k], t[(k+1)%3], p)
	}
	return !mixedSigns(o)
}

// segmentsTouch reports whether closed segments ab and cd share a point.
func segmentsTouch(a, b, c, d geom.Vec2) bool {
	o1, o2 := geom.Orient2D(a, b, c), geom.Orient2D(a, b, d)
	o3, o4 := geom.Orient2D(c, d, a), geom.Orient2D(c, d, b)
	if o1*o2 < 0 && o3*o4 < 0 {
		return true
	}
	return (o1 == 0 && onSegment(a, b, c)) || (o2 == 0 && onSegment(a, b, d)) ||
		(o3 == 0 && onSegment(c, d, a)) || (o4 == 0 && onSegment(c, d, b))
}

// onSegment reports whether p, already known to be collinear with ab, lies
// on the closed segment.
func onSegment(a, b, p geom.Vec2) bool {
	d := b.Sub(a)
	t := d.Dot(p.Sub(a))
	return t >= 0 && t <= d.Dot(d)
}

func mixedSigns(o [3]int) bool {
	pos, neg := false, false
	for _, v := range o {
		pos = pos || v > 0
		neg = neg || v < 0
	}
	return pos && neg
}

// edgeHitsTriangle reports whether the segment between global vertices p
// and q, whose endpoints lie strictly on opposite sides of the triangle's
// plane, passes through the triangle's interior. Passing through an edge or
// a corner is a degeneracy.
func (s *solver) edgeHitsTriangle(p, q int, t [3]geom.Vec) (bool, error) {
	pp, qq := s.verts[p], s.verts[q]
	var o [3]int
	for k := 0; k < 3; k++ {
		o[k] = geom.Orient3D(pp, qq, t[k], t[(k+1)%3])
	}
	pos, neg, zero := 0, 0, 0
	for _, v := range o {
		switch {
		case v > 0:
			pos++
		case v < 0:
			neg++
		default:
			zero++
		}
	}
	switch {
	case pos == 3 || neg == 3:
		return true, nil
	case zero > 0 && (pos == 0 || neg == 0):
		return false, degenerate("edge passes through a triangle edge or corner")
	default:
		return false, nil
	}
}

// intersectionVertex returns the global id of the vertex with key k,
// creating it on first use.
func (s *solver) intersectionVertex(k ivKey, t [3]geom.Vec) int {
	if id, ok := s.ivIndex[k]; ok {
		return id
	}
	p, q := s.verts[k.edge[0]], s.verts[k.edge[1]]
	n := geom.TriangleNormal(t[0], t[1], t[2])
	param := geom.SegmentPlaneParam(n, t[0], p, q)

	id := len(s.verts)
	s.verts = append(s.verts, geom.Lerp(p, q, param))
	s.ivs = append(s.ivs, ivInfo{key: k, t: param})
	s.ivIndex[k] = id

	// On the edge's own mesh the vertex splits the edge; on the other mesh
	// it lies inside triangle k.tri.
	s.edgePts[k.mesh][k.edge] = append(s.edgePts[k.mesh][k.edge], id)
	s.facePts[1-k.mesh][k.tri] = append(s.facePts[1-k.mesh][k.tri], id)
	return id
}

// isIntersection reports whether global vertex v was created by the solve.
func (s *solver) isIntersection(v int) bool {
	return v >= s.nIn
}

func (s *solver) ivParam(v int) float64 {
	return s.ivs[v-s.nIn].t
}

func meshName(m int) string {
	if m == meshCut {
		return "cut"
	}
	return "source"
}
