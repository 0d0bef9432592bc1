package meshio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// Triangles converts a polygon mesh to sdfx triangles, splitting polygons
// by ear clipping.
func Triangles(m kernel.MeshView) ([]*sdf.Triangle3, error) {
	if err := kernel.ValidateView(m); err != nil {
		return nil, err
	}
	tris, err := kernel.TriangulateView(m)
	if err != nil {
		return nil, err
	}
	pos := m.Positions()
	out := make([]*sdf.Triangle3, 0, len(tris)/3)
	for i := 0; i < len(tris); i += 3 {
		out = append(out, &sdf.Triangle3{
			geom.ToV3(geom.FromFlat(pos, int(tris[i]))),
			geom.ToV3(geom.FromFlat(pos, int(tris[i+1]))),
			geom.ToV3(geom.FromFlat(pos, int(tris[i+2]))),
		})
	}
	return out, nil
}

// SaveSTL writes m as a binary STL file.
func SaveSTL(path string, m kernel.MeshView) error {
	tris, err := Triangles(m)
	if err != nil {
		return fmt.Errorf("stl %s: %w", path, err)
	}
	return render.SaveSTL(path, tris)
}

// Format names an output file format.
type Format string

const (
	FormatOFF Format = "off"
	FormatSTL Format = "stl"
)

// ParseFormat accepts "off" or "stl" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatOFF, FormatSTL:
		return f, nil
	case "":
		return FormatOFF, nil
	}
	return "", fmt.Errorf("unknown mesh format %q: %w", s, kernel.ErrInvalidValue)
}

// Save writes m to dir/name.<format>, returning the path written.
func Save(dir, name string, format Format, m kernel.MeshView) (string, error) {
	path := filepath.Join(dir, name+"."+string(format))
	switch format {
	case FormatSTL:
		return path, SaveSTL(path, m)
	default:
		return path, SaveOFF(path, m)
	}
}

// Load reads a mesh file, choosing the parser by extension. Only OFF is
// readable.
func Load(path string) (*kernel.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".off":
		return LoadOFF(path)
	}
	return nil, fmt.Errorf("load %s: unsupported format: %w", path, kernel.ErrInvalidValue)
}
