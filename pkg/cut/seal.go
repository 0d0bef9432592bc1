package cut

import "github.com/chazu/kerf/pkg/kernel"

// part is a classified component before materialization. Faces hold global
// vertex ids; origins hold the input face each face maps to (source faces
// first, cut faces offset by the source face count).
type part struct {
	typ     kernel.ComponentType
	loc     kernel.FragmentLocation
	seal    kernel.SealType
	patch   kernel.PatchLocation
	origin  kernel.Origin
	faces   [][]int
	origins []int
}

// fragmentPart wraps a source piece as an unsealed fragment.
func fragmentPart(sm *splitMesh, p *piece) *part {
	out := &part{typ: kernel.ComponentFragment, loc: fragmentLocation(p.side), seal: kernel.SealNone}
	for _, f := range p.faces {
		out.faces = append(out.faces, sm.faces[f])
		out.origins = append(out.origins, sm.parent[f])
	}
	return out
}

func patchPart(sm *splitMesh, p *piece, faceBase int) *part {
	out := &part{typ: kernel.ComponentPatch, patch: patchLocation(p.side)}
	for _, f := range p.faces {
		out.faces = append(out.faces, sm.faces[f])
		out.origins = append(out.origins, faceBase+sm.parent[f])
	}
	return out
}

func seamPart(sm *splitMesh, origin kernel.Origin, faceBase int) *part {
	out := &part{typ: kernel.ComponentSeam, origin: origin}
	for f, face := range sm.faces {
		out.faces = append(out.faces, face)
		out.origins = append(out.origins, faceBase+sm.parent[f])
	}
	return out
}

// echoPart copies an input mesh unchanged. base offsets vertex ids into the
// global numbering, faceBase offsets face ids.
func echoPart(pm polyMesh, origin kernel.Origin, base, faceBase int) *part {
	out := &part{typ: kernel.ComponentInput, origin: origin}
	for fi, face := range pm.faces {
		g := make([]int, len(face))
		for j, v := range face {
			g[j] = base + v
		}
		out.faces = append(out.faces, g)
		out.origins = append(out.origins, faceBase+fi)
	}
	return out
}

// seal closes the opening of a fragment with the patches of the given
// location. It returns nil when those patches do not cover every seam edge
// of the fragment.
func seal(srcSplit, cutSplit *splitMesh, frag *piece, patches []*piece,
	want kernel.PatchLocation, nSrcFaces int) *part {
	if len(frag.seams) == 0 {
		return nil
	}
	need := make(map[edgeKey]bool, len(frag.seams))
	for _, e := range frag.seams {
		need[e] = true
	}
	fragDir := make(map[edgeKey]bool) // true when the fragment walks lo->hi
	for _, f := range frag.faces {
		face := srcSplit.faces[f]
		for j := range face {
			a, b := face[j], face[(j+1)%len(face)]
			if e := mkEdge(a, b); need[e] {
				fragDir[e] = a == e[0]
			}
		}
	}

	out := fragmentPart(srcSplit, frag)
	out.seal = kernel.SealInside
	if want == kernel.PatchOutside {
		out.seal = kernel.SealOutside
	}

	covered := make(map[edgeKey]bool)
	for _, p := range patches {
		if patchLocation(p.side) != want {
			continue
		}
		var shared edgeKey
		found := false
		for _, e := range p.seams {
			if need[e] {
				shared, found = e, true
				break
			}
		}
		if !found {
			continue
		}

		// Across a seam edge the two surfaces must walk it in opposite
		// directions for the sealed mesh to be consistently oriented.
		flip := false
		for _, f := range p.faces {
			face := cutSplit.faces[f]
			if faceHasDirected(face, shared[0], shared[1]) {
				flip = fragDir[shared]
				break
			}
			if faceHasDirected(face, shared[1], shared[0]) {
				flip = !fragDir[shared]
				break
			}
		}
		for _, f := range p.faces {
			face := cutSplit.faces[f]
			if flip {
				face = reversed(face)
			}
			out.faces = append(out.faces, face)
			out.origins = append(out.origins, nSrcFaces+cutSplit.parent[f])
		}
		for _, e := range p.seams {
			if need[e] {
				covered[e] = true
			}
		}
	}
	if len(covered) != len(need) {
		return nil
	}
	return out
}

func reversed(face []int) []int {
	out := make([]int, len(face))
	for i, v := range face {
		out[len(face)-1-i] = v
	}
	return out
}
