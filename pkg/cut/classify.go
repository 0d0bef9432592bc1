package cut

import (
	"sort"

	"github.com/chazu/kerf/pkg/kernel"
)

// piece is a maximal set of faces of a split mesh connected across
// non-seam edges.
type piece struct {
	faces []int
	seams []edgeKey // seam edges on the piece's border, sorted
	side  int       // +1, -1, or 0 when mixed or unknown
}

type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(x int) int {
	for u[x] != x {
		u[x] = u[u[x]]
		x = u[x]
	}
	return x
}

func (u unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u[rb] = ra
	} else {
		u[ra] = rb
	}
}

// edgeFaces maps every undirected edge of the split mesh to the faces that
// use it.
func (sm *splitMesh) edgeFaces() map[edgeKey][]int {
	ef := make(map[edgeKey][]int)
	for fi, face := range sm.faces {
		for j := range face {
			e := mkEdge(face[j], face[(j+1)%len(face)])
			ef[e] = append(ef[e], fi)
		}
	}
	return ef
}

// pieces flood-fills the split mesh across non-seam edges and classifies
// each piece by the seam sides it touches. Pieces are ordered by their
// smallest face index. label maps every face to its piece.
func (sm *splitMesh) pieces() (out []*piece, label []int) {
	ef := sm.edgeFaces()
	uf := newUnionFind(len(sm.faces))
	for e, fs := range ef {
		if sm.seams[e] {
			continue
		}
		for _, f := range fs[1:] {
			uf.union(fs[0], f)
		}
	}

	label = make([]int, len(sm.faces))
	byRoot := make(map[int]int)
	for fi := range sm.faces {
		r := uf.find(fi)
		id, ok := byRoot[r]
		if !ok {
			id = len(out)
			byRoot[r] = id
			out = append(out, &piece{})
		}
		label[fi] = id
		out[id].faces = append(out[id].faces, fi)
	}

	seamKeys := make([]edgeKey, 0, len(sm.seams))
	for e := range sm.seams {
		seamKeys = append(seamKeys, e)
	}
	sortEdges(seamKeys)

	sides := make([]map[int]bool, len(out))
	for i := range sides {
		sides[i] = make(map[int]bool)
	}
	for _, e := range seamKeys {
		for _, f := range ef[e] {
			p := label[f]
			out[p].seams = append(out[p].seams, e)
			sides[p][sm.seamSign(f, e)] = true
		}
	}
	for i, p := range out {
		switch {
		case sides[i][1] && !sides[i][-1]:
			p.side = 1
		case sides[i][-1] && !sides[i][1]:
			p.side = -1
		}
		p.seams = dedupEdges(p.seams)
	}
	return out, label
}

// throughCut reports whether the seam separates the split mesh: there is at
// least one seam edge and every seam edge has different pieces on its two
// sides.
func (sm *splitMesh) throughCut(label []int) bool {
	if len(sm.seams) == 0 {
		return false
	}
	ef := sm.edgeFaces()
	for e := range sm.seams {
		fs := ef[e]
		if len(fs) != 2 || label[fs[0]] == label[fs[1]] {
			return false
		}
	}
	return true
}

func fragmentLocation(side int) kernel.FragmentLocation {
	switch side {
	case 1:
		return kernel.LocationAbove
	case -1:
		return kernel.LocationBelow
	}
	return kernel.LocationUndefined
}

func patchLocation(side int) kernel.PatchLocation {
	switch side {
	case 1:
		return kernel.PatchOutside
	case -1:
		return kernel.PatchInside
	}
	return kernel.PatchUndefined
}

func sortEdges(es []edgeKey) {
	sort.Slice(es, func(i, j int) bool {
		if es[i][0] != es[j][0] {
			return es[i][0] < es[j][0]
		}
		return es[i][1] < es[j][1]
	})
}

func dedupEdges(es []edgeKey) []edgeKey {
	sortEdges(es)
	out := es[:0]
	for i, e := range es {
		if i == 0 || e != es[i-1] {
			out = append(out, e)
		}
	}
	return out
}
