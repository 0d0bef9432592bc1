// Package geom holds the geometric building blocks shared by the cutting
// engine: vectors, exact orientation predicates, bounding boxes and polygon
// triangulation.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Vec is a 3D point or direction.
type Vec = mgl64.Vec3

// Vec2 is a point in a 2D projection plane.
type Vec2 = mgl64.Vec2

// V builds a Vec from its components.
func V(x, y, z float64) Vec {
	return Vec{x, y, z}
}

// FromFlat reads the i-th vertex out of a flat xyz position buffer.
func FromFlat(positions []float64, i int) Vec {
	return Vec{positions[3*i], positions[3*i+1], positions[3*i+2]}
}

// TriangleNormal returns the unnormalized normal of triangle abc, following
// the right-hand rule on the vertex order.
func TriangleNormal(a, b, c Vec) Vec {
	return b.Sub(a).Cross(c.Sub(a))
}

// NewellNormal returns the unnormalized normal of a (possibly non-convex)
// planar polygon.
func NewellNormal(pts []Vec) Vec {
	var n Vec
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		n[0] += (p[1] - q[1]) * (p[2] + q[2])
		n[1] += (p[2] - q[2]) * (p[0] + q[0])
		n[2] += (p[0] - q[0]) * (p[1] + q[1])
	}
	return n
}

// DominantAxis returns the index of the largest absolute component of n.
func DominantAxis(n Vec) int {
	ax, ay, az := math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	default:
		return 2
	}
}

// Projector maps 3D points onto the coordinate plane orthogonal to a
// normal's dominant axis. Counter-clockwise polygons (seen from the normal)
// stay counter-clockwise in the projection.
type Projector struct {
	u, v int
}

// NewProjector returns a projector for polygons with normal n.
func NewProjector(n Vec) Projector {
	k := DominantAxis(n)
	p := Projector{u: (k + 1) % 3, v: (k + 2) % 3}
	if n[k] < 0 {
		p.u, p.v = p.v, p.u
	}
	return p
}

// Project returns the 2D image of p.
func (pr Projector) Project(p Vec) Vec2 {
	return Vec2{p[pr.u], p[pr.v]}
}

// Clamp limits f to the closed range [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}
