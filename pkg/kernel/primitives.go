package kernel

import (
	"fmt"
	"math"
)

// Box returns an axis-aligned box spanning min..max as 8 vertices and 6
// outward-facing quads.
func Box(name string, min, max [3]float64) (*Mesh, error) {
	x0, y0, z0 := min[0], min[1], min[2]
	x1, y1, z1 := max[0], max[1], max[2]
	if x0 >= x1 || y0 >= y1 || z0 >= z1 {
		return nil, fmt.Errorf("box %q: empty extent %v..%v: %w", name, min, max, ErrInvalidValue)
	}
	positions := []float64{
		x0, y0, z0, // 0
		x1, y0, z0, // 1
		x1, y1, z0, // 2
		x0, y1, z0, // 3
		x0, y0, z1, // 4
		x1, y0, z1, // 5
		x1, y1, z1, // 6
		x0, y1, z1, // 7
	}
	indices := []uint32{
		0, 3, 2, 1, // -z
		4, 5, 6, 7, // +z
		0, 1, 5, 4, // -y
		3, 7, 6, 2, // +y
		0, 4, 7, 3, // -x
		1, 2, 6, 5, // +x
	}
	return FromBuffers(name, positions, indices, []uint32{4, 4, 4, 4, 4, 4})
}

// Cube returns a box centered at the origin with the given half extent.
func Cube(name string, half float64) (*Mesh, error) {
	return Box(name, [3]float64{-half, -half, -half}, [3]float64{half, half, half})
}

// Plane returns a square made of two triangles, centered at center, with
// the given half size and facing the +axis direction (0=x, 1=y, 2=z).
func Plane(name string, center [3]float64, half float64, axis int) (*Mesh, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("plane %q: axis %d: %w", name, axis, ErrInvalidValue)
	}
	if half <= 0 {
		return nil, fmt.Errorf("plane %q: half size %v: %w", name, half, ErrInvalidValue)
	}
	u, v := (axis+1)%3, (axis+2)%3
	corner := func(su, sv float64) []float64 {
		p := center
		p[u] += su * half
		p[v] += sv * half
		return p[:]
	}
	var positions []float64
	positions = append(positions, corner(-1, -1)...)
	positions = append(positions, corner(1, -1)...)
	positions = append(positions, corner(1, 1)...)
	positions = append(positions, corner(-1, 1)...)
	return FromBuffers(name, positions, []uint32{0, 1, 2, 0, 2, 3}, nil)
}

// Prism returns a closed prism along the z axis: a regular polygon of the
// given radius and segment count, extruded from z=0 to z=height. The caps
// are single polygons and the sides are quads.
func Prism(name string, radius, height float64, segments int) (*Mesh, error) {
	if segments < 3 || radius <= 0 || height <= 0 {
		return nil, fmt.Errorf("prism %q: radius %v height %v segments %d: %w",
			name, radius, height, segments, ErrInvalidValue)
	}
	n := uint32(segments)
	positions := make([]float64, 0, 6*segments)
	for _, z := range []float64{0, height} {
		for i := 0; i < segments; i++ {
			a := 2 * math.Pi * float64(i) / float64(segments)
			positions = append(positions, radius*math.Cos(a), radius*math.Sin(a), z)
		}
	}
	var indices, sizes []uint32
	// Bottom cap faces -z, so walk it clockwise seen from above.
	for i := int(n) - 1; i >= 0; i-- {
		indices = append(indices, uint32(i))
	}
	sizes = append(sizes, n)
	for i := uint32(0); i < n; i++ {
		indices = append(indices, n+i)
	}
	sizes = append(sizes, n)
	for i := uint32(0); i < n; i++ {
		j := (i + 1) % n
		indices = append(indices, i, j, n+j, n+i)
		sizes = append(sizes, 4)
	}
	return FromBuffers(name, positions, indices, sizes)
}

// Translate moves every vertex of m by d.
func (m *Mesh) Translate(d [3]float64) {
	for i := range m.positions {
		m.positions[i] += d[i%3]
	}
}
