// Package meshio reads and writes meshes on disk: OFF for polygon meshes in
// both directions and binary STL (through sdfx) for export.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/kerf/pkg/kernel"
)

// ReadOFF parses an OFF stream. Faces may have any size; per-face colour
// columns after the vertex list are ignored.
func ReadOFF(name string, r io.Reader) (*kernel.Mesh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0

	// next returns the fields of the next non-empty, non-comment line.
	next := func() ([]string, error) {
		for sc.Scan() {
			line++
			text := sc.Text()
			if i := strings.IndexByte(text, '#'); i >= 0 {
				text = text[:i]
			}
			if f := strings.Fields(text); len(f) > 0 {
				return f, nil
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("off %s line %d: %s: %w", name, line, fmt.Sprintf(format, args...), kernel.ErrInvalidValue)
	}

	fields, err := next()
	if err != nil {
		return nil, fail("missing header: %v", err)
	}
	if fields[0] != "OFF" {
		if !strings.HasPrefix(fields[0], "OFF") {
			return nil, fail("header %q is not OFF", fields[0])
		}
		return nil, fail("unsupported OFF variant %q", fields[0])
	}
	fields = fields[1:]
	if len(fields) == 0 {
		if fields, err = next(); err != nil {
			return nil, fail("missing counts: %v", err)
		}
	}
	if len(fields) < 2 {
		return nil, fail("counts line needs vertex and face counts")
	}
	nv, err1 := strconv.Atoi(fields[0])
	nf, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || nv < 0 || nf < 0 {
		return nil, fail("bad counts %q", strings.Join(fields, " "))
	}
	if 3*nv > kernel.MaxElements || nf > kernel.MaxElements {
		return nil, fmt.Errorf("off %s: %d vertices, %d faces: %w", name, nv, nf, kernel.ErrOutOfMemory)
	}

	positions := make([]float64, 0, 3*nv)
	for i := 0; i < nv; i++ {
		f, err := next()
		if err != nil {
			return nil, fail("vertex %d: %v", i, err)
		}
		if len(f) < 3 {
			return nil, fail("vertex %d has %d coordinates", i, len(f))
		}
		for _, s := range f[:3] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fail("vertex %d: %v", i, err)
			}
			positions = append(positions, v)
		}
	}

	var indices []uint32
	sizes := make([]uint32, 0, nf)
	for i := 0; i < nf; i++ {
		f, err := next()
		if err != nil {
			return nil, fail("face %d: %v", i, err)
		}
		n, err := strconv.Atoi(f[0])
		if err != nil || n < 3 || len(f) < n+1 {
			return nil, fail("face %d: bad vertex list", i)
		}
		for _, s := range f[1 : n+1] {
			ix, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, fail("face %d: %v", i, err)
			}
			indices = append(indices, uint32(ix))
		}
		sizes = append(sizes, uint32(n))
	}
	return kernel.FromBuffers(name, positions, indices, sizes)
}

// WriteOFF writes m as OFF. Coordinates use the shortest representation
// that parses back to the same float64. An invalid or released mesh is
// rejected before anything is written.
func WriteOFF(w io.Writer, m kernel.MeshView) error {
	if err := kernel.ValidateView(m); err != nil {
		return fmt.Errorf("off: %w", err)
	}
	bw := bufio.NewWriter(w)
	pos, sizes := m.Positions(), m.FaceSizes()
	fmt.Fprintf(bw, "OFF\n%d %d 0\n", len(pos)/3, len(sizes))
	for i := 0; i < len(pos); i += 3 {
		bw.WriteString(strconv.FormatFloat(pos[i], 'g', -1, 64))
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(pos[i+1], 'g', -1, 64))
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(pos[i+2], 'g', -1, 64))
		bw.WriteByte('\n')
	}
	for _, face := range kernel.SplitFaces(m.Indices(), sizes) {
		bw.WriteString(strconv.Itoa(len(face)))
		for _, ix := range face {
			bw.WriteByte(' ')
			bw.WriteString(strconv.FormatUint(uint64(ix), 10))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// LoadOFF reads an OFF file. The mesh is named after the file.
func LoadOFF(path string) (*kernel.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadOFF(name, f)
}

// SaveOFF writes an OFF file.
func SaveOFF(path string, m kernel.MeshView) error {
	if err := kernel.ValidateView(m); err != nil {
		return fmt.Errorf("off %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOFF(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
