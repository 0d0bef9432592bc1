package cut

import (
	"sort"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/logging"
)

// outcome is everything one successful solve produced, before filtering.
type outcome struct {
	verts     []geom.Vec
	nIn       int
	fragments []*part
	patches   []*part
	seams     []*part
	echoes    []*part
	crossed   bool // the meshes intersect
	through   bool // the intersection separates the source mesh
}

// solve runs one full attempt: intersection, reconnection and
// classification. cutPos overrides the cut mesh positions (used by the
// conditioner to pass perturbed coordinates).
func solve(src, cut polyMesh, cutPos []geom.Vec) (*outcome, error) {
	s, err := newSolver(src, cut, cutPos)
	if err != nil {
		return nil, err
	}
	if err := s.intersect(); err != nil {
		return nil, err
	}
	logging.Debug("intersection: %d segments, %d vertices", len(s.segs), len(s.ivs))

	out := &outcome{nIn: s.nIn}
	nSrcFaces := src.faceCount()
	if len(s.segs) == 0 {
		out.verts = s.verts
		out.echoes = []*part{
			echoPart(src, kernel.OriginSource, 0, 0),
			echoPart(cut, kernel.OriginCut, s.nSrc, nSrcFaces),
		}
		return out, nil
	}
	out.crossed = true

	srcSplit, err := s.reconnect(meshSource)
	if err != nil {
		return nil, err
	}
	cutSplit, err := s.reconnect(meshCut)
	if err != nil {
		return nil, err
	}
	out.verts = s.verts

	frags, label := srcSplit.pieces()
	patches, _ := cutSplit.pieces()
	out.through = srcSplit.throughCut(label)

	for _, f := range frags {
		out.fragments = append(out.fragments, fragmentPart(srcSplit, f))
		if f.side == 0 {
			continue
		}
		for _, want := range []kernel.PatchLocation{kernel.PatchInside, kernel.PatchOutside} {
			if p := seal(srcSplit, cutSplit, f, patches, want, nSrcFaces); p != nil {
				out.fragments = append(out.fragments, p)
			}
		}
	}
	for _, p := range patches {
		out.patches = append(out.patches, patchPart(cutSplit, p, nSrcFaces))
	}
	out.seams = []*part{
		seamPart(srcSplit, kernel.OriginSource, 0),
		seamPart(cutSplit, kernel.OriginCut, nSrcFaces),
	}
	logging.Debug("classified %d fragments, %d patches, through cut %v",
		len(frags), len(patches), out.through)
	return out, nil
}

var locationOrder = map[kernel.FragmentLocation]int{
	kernel.LocationAbove:     0,
	kernel.LocationBelow:     1,
	kernel.LocationUndefined: 2,
}

// selected returns the components the filter keeps, in output order.
func (o *outcome) selected(cfg kernel.Config) []*part {
	f := cfg.Filter
	if !o.crossed {
		if cfg.RequireThroughCuts {
			return nil
		}
		var out []*part
		for _, e := range o.echoes {
			switch e.origin {
			case kernel.OriginSource:
				if f.AnyFragment() || f.SeamSource {
					out = append(out, e)
				}
			case kernel.OriginCut:
				if f.AnyPatch() || f.SeamCut {
					out = append(out, e)
				}
			}
		}
		return out
	}
	if cfg.RequireThroughCuts && !o.through {
		return nil
	}

	var frags []*part
	for _, p := range o.fragments {
		if f.AnyFragment() && keepLocation(f, p.loc) && keepSealing(f, p.seal) {
			frags = append(frags, p)
		}
	}
	sort.SliceStable(frags, func(i, j int) bool {
		li, lj := locationOrder[frags[i].loc], locationOrder[frags[j].loc]
		if li != lj {
			return li < lj
		}
		return frags[i].seal < frags[j].seal
	})

	out := frags
	for _, p := range o.patches {
		if keepPatch(f, p.patch) {
			out = append(out, p)
		}
	}
	// Seams describe a complete cut; a partial cut has none.
	if !o.through {
		return out
	}
	for _, p := range o.seams {
		if (p.origin == kernel.OriginSource && f.SeamSource) || (p.origin == kernel.OriginCut && f.SeamCut) {
			out = append(out, p)
		}
	}
	return out
}

func keepLocation(f kernel.Filter, l kernel.FragmentLocation) bool {
	if !f.AnyLocation() {
		return true
	}
	switch l {
	case kernel.LocationAbove:
		return f.Above
	case kernel.LocationBelow:
		return f.Below
	default:
		return f.Undefined
	}
}

func keepSealing(f kernel.Filter, s kernel.SealType) bool {
	if !f.AnySealing() {
		return true
	}
	switch s {
	case kernel.SealInside:
		return f.SealInside
	case kernel.SealOutside:
		return f.SealOutside
	default:
		return f.SealNone
	}
}

// keepPatch keeps located patches by their own bit. A patch whose side
// could not be decided is kept only when both patch bits are set.
func keepPatch(f kernel.Filter, p kernel.PatchLocation) bool {
	switch p {
	case kernel.PatchInside:
		return f.PatchInside
	case kernel.PatchOutside:
		return f.PatchOutside
	default:
		return f.PatchInside && f.PatchOutside
	}
}
