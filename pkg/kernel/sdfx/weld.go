package sdfx

import (
	"math"

	"github.com/chazu/kerf/pkg/geom"
)

// welder merges vertices closer than a threshold. Vertices are hashed into
// a grid of cells ten thresholds wide; each bucket is a linked list through
// next.
type welder struct {
	thr     float64
	cell    float64
	buckets int
	first   []int
	next    []int
	verts   []geom.Vec
}

// newWelder returns a welder; buckets must be a power of two.
func newWelder(thr float64, buckets int) *welder {
	if thr <= 0 {
		thr = 1e-12
	}
	w := &welder{thr: thr, cell: thr * 10, buckets: buckets, first: make([]int, buckets)}
	for i := range w.first {
		w.first[i] = -1
	}
	return w
}

func (w *welder) hash(x, y, z int) int {
	const h1, h2, h3 = 0x8da6b343, 0xd8163841, 0xcb1ab31f
	return (h1*x + h2*y + h3*z) & (w.buckets - 1)
}

func (w *welder) cellOf(v float64) int {
	return int(math.Floor(v / w.cell))
}

func (w *welder) push(p geom.Vec) int {
	h := w.hash(w.cellOf(p[0]), w.cellOf(p[1]), w.cellOf(p[2]))
	idx := len(w.verts)
	w.verts = append(w.verts, p)
	w.next = append(w.next, w.first[h])
	w.first[h] = idx
	return idx
}

// addUnique returns the closest existing vertex within the threshold, or
// adds p.
func (w *welder) addUnique(p geom.Vec) int {
	best, bestSq := -1, w.thr*w.thr
	for z := w.cellOf(p[2] - w.thr); z <= w.cellOf(p[2]+w.thr); z++ {
		for y := w.cellOf(p[1] - w.thr); y <= w.cellOf(p[1]+w.thr); y++ {
			for x := w.cellOf(p[0] - w.thr); x <= w.cellOf(p[0]+w.thr); x++ {
				for i := w.first[w.hash(x, y, z)]; i != -1; i = w.next[i] {
					d := w.verts[i].Sub(p)
					if sq := d.Dot(d); sq < bestSq {
						best, bestSq = i, sq
					}
				}
			}
		}
	}
	if best >= 0 {
		return best
	}
	return w.push(p)
}
