// Package sdfx builds input meshes for the cutting engine from signed
// distance functions, using the github.com/deadsy/sdfx CAD library.
// Shapes are combined as SDFs and only turned into a polygon mesh at the
// end, with marching cubes followed by vertex welding so the result is an
// indexed mesh with shared vertices.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultCells controls marching cubes resolution along the longest axis.
const DefaultCells = 64

// Shape is an SDF solid that has not been meshed yet.
type Shape struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s Shape) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	return [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}, [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
}

// Builder creates shapes and meshes them.
type Builder struct {
	Cells int
}

// New returns a Builder with the default resolution.
func New() *Builder {
	return &Builder{Cells: DefaultCells}
}

// Box creates a box with the given dimensions, centered at the origin.
func (b *Builder) Box(x, y, z float64) (Shape, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return Shape{}, fmt.Errorf("sdfx box: %v: %w", err, kernel.ErrInvalidValue)
	}
	return Shape{s}, nil
}

// Sphere creates a sphere centered at the origin.
func (b *Builder) Sphere(radius float64) (Shape, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return Shape{}, fmt.Errorf("sdfx sphere: %v: %w", err, kernel.ErrInvalidValue)
	}
	return Shape{s}, nil
}

// Cylinder creates a cylinder along z, centered at the origin.
func (b *Builder) Cylinder(height, radius float64) (Shape, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return Shape{}, fmt.Errorf("sdfx cylinder: %v: %w", err, kernel.ErrInvalidValue)
	}
	return Shape{s}, nil
}

// Union returns the union of two shapes.
func (b *Builder) Union(x, y Shape) Shape {
	return Shape{sdf.Union3D(x.s, y.s)}
}

// Difference returns x minus y.
func (b *Builder) Difference(x, y Shape) Shape {
	return Shape{sdf.Difference3D(x.s, y.s)}
}

// Intersection returns the intersection of two shapes.
func (b *Builder) Intersection(x, y Shape) Shape {
	return Shape{sdf.Intersect3D(x.s, y.s)}
}

// Translate moves a shape by (x, y, z).
func (b *Builder) Translate(s Shape, x, y, z float64) Shape {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return Shape{sdf.Transform3D(s.s, m)}
}

// Rotate rotates a shape by Euler angles (degrees) around X, Y, Z axes.
func (b *Builder) Rotate(s Shape, x, y, z float64) Shape {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return Shape{sdf.Transform3D(s.s, m)}
}

// ToMesh meshes a shape with marching cubes and welds coincident vertices.
// Triangles that collapse under welding are dropped.
func (b *Builder) ToMesh(name string, s Shape) (*kernel.Mesh, error) {
	cells := b.Cells
	if cells <= 0 {
		cells = DefaultCells
	}
	triangles := render.ToTriangles(s.s, render.NewMarchingCubesUniform(cells))
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx %q: marching cubes produced no triangles: %w", name, kernel.ErrInvalidValue)
	}

	bb := s.s.BoundingBox()
	w := newWelder(bb.Size().Length()*1e-9, 1<<12)
	indices := make([]uint32, 0, len(triangles)*3)
	for _, tri := range triangles {
		var ids [3]int
		for j := 0; j < 3; j++ {
			ids[j] = w.addUnique(geom.FromV3(tri[j]))
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[2] == ids[0] {
			continue
		}
		indices = append(indices, uint32(ids[0]), uint32(ids[1]), uint32(ids[2]))
	}

	positions := make([]float64, 0, len(w.verts)*3)
	for _, v := range w.verts {
		positions = append(positions, v[0], v[1], v[2])
	}
	return kernel.FromBuffers(name, positions, indices, nil)
}
