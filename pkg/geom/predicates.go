package geom

import (
	"math"
	"math/big"
)

// Orientation predicates use a floating-point filter and fall back to exact
// rational arithmetic when the filter cannot certify the sign. Every input
// double is representable as a big.Rat, so the fallback is exact.

const epsilon = 1.1102230246251565e-16 // 2^-53

var (
	o3dErrBound = (7.0 + 56.0*epsilon) * epsilon
	o2dErrBound = (3.0 + 16.0*epsilon) * epsilon
)

// Orient3D returns +1 if d lies on the side of plane abc that the
// right-handed normal of (a, b, c) points to, -1 on the other side and 0 if
// the four points are coplanar.
func Orient3D(a, b, c, d Vec) int {
	adx, ady, adz := a[0]-d[0], a[1]-d[1], a[2]-d[2]
	bdx, bdy, bdz := b[0]-d[0], b[1]-d[1], b[2]-d[2]
	cdx, cdy, cdz := c[0]-d[0], c[1]-d[1], c[2]-d[2]

	bdxcdy, cdxbdy := bdx*cdy, cdx*bdy
	cdxady, adxcdy := cdx*ady, adx*cdy
	adxbdy, bdxady := adx*bdy, bdx*ady

	det := adz*(bdxcdy-cdxbdy) + bdz*(cdxady-adxcdy) + cdz*(adxbdy-bdxady)
	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*math.Abs(adz) +
		(math.Abs(cdxady)+math.Abs(adxcdy))*math.Abs(bdz) +
		(math.Abs(adxbdy)+math.Abs(bdxady))*math.Abs(cdz)
	bound := o3dErrBound * permanent
	// det is the determinant of [a-d, b-d, c-d], which is negative when d
	// is on the normal side.
	if det > bound {
		return -1
	}
	if -det > bound {
		return 1
	}
	return -orient3DExact(a, b, c, d)
}

// Orient2D returns +1 if a, b, c wind counter-clockwise, -1 if clockwise
// and 0 if they are collinear.
func Orient2D(a, b, c Vec2) int {
	detLeft := (a[0] - c[0]) * (b[1] - c[1])
	detRight := (a[1] - c[1]) * (b[0] - c[0])
	det := detLeft - detRight

	var detSum float64
	switch {
	case detLeft > 0:
		if detRight <= 0 {
			return sign(det)
		}
		detSum = detLeft + detRight
	case detLeft < 0:
		if detRight >= 0 {
			return sign(det)
		}
		detSum = -detLeft - detRight
	default:
		return sign(det)
	}
	if bound := o2dErrBound * detSum; det >= bound || -det >= bound {
		return sign(det)
	}
	return orient2DExact(a, b, c)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func rat(x float64) *big.Rat {
	return new(big.Rat).SetFloat64(x)
}

func ratSub(x, y float64) *big.Rat {
	return new(big.Rat).Sub(rat(x), rat(y))
}

func ratMul(x, y *big.Rat) *big.Rat {
	return new(big.Rat).Mul(x, y)
}

// orient3DExact returns the exact sign of det[a-d, b-d, c-d].
func orient3DExact(a, b, c, d Vec) int {
	var m [3][3]*big.Rat
	for i, p := range [3]Vec{a, b, c} {
		for j := 0; j < 3; j++ {
			m[i][j] = ratSub(p[j], d[j])
		}
	}
	minor := func(r0, r1 int) *big.Rat {
		return new(big.Rat).Sub(ratMul(m[r0][0], m[r1][1]), ratMul(m[r1][0], m[r0][1]))
	}
	det := ratMul(m[0][2], minor(1, 2))
	det.Add(det, ratMul(m[1][2], minor(2, 0)))
	det.Add(det, ratMul(m[2][2], minor(0, 1)))
	return det.Sign()
}

func orient2DExact(a, b, c Vec2) int {
	left := ratMul(ratSub(a[0], c[0]), ratSub(b[1], c[1]))
	right := ratMul(ratSub(a[1], c[1]), ratSub(b[0], c[0]))
	return left.Sub(left, right).Sign()
}

// PlaneDistance returns the signed distance of p from the plane through a
// with unnormalized normal n, scaled by |n|.
func PlaneDistance(n, a, p Vec) float64 {
	return n.Dot(p.Sub(a))
}

// SegmentPlaneParam returns the parameter t in [0,1] at which the segment
// p-q crosses the plane with normal n through a. The endpoints must lie on
// strictly opposite sides.
func SegmentPlaneParam(n, a, p, q Vec) float64 {
	dp := PlaneDistance(n, a, p)
	dq := PlaneDistance(n, a, q)
	return Clamp(dp/(dp-dq), 0, 1)
}

// Lerp returns p + t(q-p).
func Lerp(p, q Vec, t float64) Vec {
	return p.Add(q.Sub(p).Mul(t))
}
