package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ToV3 converts a Vec to the sdfx vector type.
func ToV3(p Vec) v3.Vec {
	return v3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

// FromV3 converts an sdfx vector to a Vec.
func FromV3(p v3.Vec) Vec {
	return Vec{p.X, p.Y, p.Z}
}

// EmptyBox returns a box that contains nothing and absorbs any point
// passed to Include.
func EmptyBox() sdf.Box3 {
	inf := math.Inf(1)
	return sdf.Box3{
		Min: v3.Vec{X: inf, Y: inf, Z: inf},
		Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// Include grows b to contain p.
func Include(b sdf.Box3, p Vec) sdf.Box3 {
	b.Min = v3.Vec{X: math.Min(b.Min.X, p[0]), Y: math.Min(b.Min.Y, p[1]), Z: math.Min(b.Min.Z, p[2])}
	b.Max = v3.Vec{X: math.Max(b.Max.X, p[0]), Y: math.Max(b.Max.Y, p[1]), Z: math.Max(b.Max.Z, p[2])}
	return b
}

// BoxOf returns the bounding box of the given points.
func BoxOf(pts ...Vec) sdf.Box3 {
	b := EmptyBox()
	for _, p := range pts {
		b = Include(b, p)
	}
	return b
}

// Overlaps reports whether two closed boxes share at least one point.
func Overlaps(a, b sdf.Box3) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

// IsEmptyBox reports whether b contains no points.
func IsEmptyBox(b sdf.Box3) bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}
