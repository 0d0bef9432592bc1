package geom

import (
	"errors"
	"fmt"

	"github.com/rclancey/earcut"
)

// ErrDegeneratePolygon is returned when a polygon has fewer than three
// vertices or cannot be triangulated.
var ErrDegeneratePolygon = errors.New("degenerate polygon")

// TriangulatePolygon splits a planar polygon into triangles and returns
// indices into pts, three per triangle. Output triangles keep the winding of
// the input polygon.
func TriangulatePolygon(pts []Vec) ([]int, error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: %d vertices < 3", ErrDegeneratePolygon, len(pts))
	}
	if len(pts) == 3 {
		return []int{0, 1, 2}, nil
	}

	pr := NewProjector(NewellNormal(pts))
	flat := make([]Vec2, len(pts))
	coords := make([]float64, 0, len(pts)*2)
	for i, p := range pts {
		flat[i] = pr.Project(p)
		coords = append(coords, flat[i][0], flat[i][1])
	}

	tris, err := earcut.Earcut(coords, nil, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: earcut: %v", ErrDegeneratePolygon, err)
	}
	if len(tris) == 0 || len(tris)%3 != 0 {
		return nil, fmt.Errorf("%w: earcut produced %d indices for %d vertices",
			ErrDegeneratePolygon, len(tris), len(pts))
	}

	// The projection keeps the polygon counter-clockwise, so every output
	// triangle must be counter-clockwise too.
	for i := 0; i < len(tris); i += 3 {
		if Orient2D(flat[tris[i]], flat[tris[i+1]], flat[tris[i+2]]) < 0 {
			tris[i+1], tris[i+2] = tris[i+2], tris[i+1]
		}
	}
	return tris, nil
}
