package script

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/kerf/pkg/kernel"
	ksdf "github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/meshio"
	"github.com/chazu/kerf/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms kerf Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: through-cut -> through_cut
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			if j < len(b) {
				j++
			}
			result = append(result, b[i:j]...)
			i = j
			continue

		case b[i] == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			result = append(result, b[i:j]...)
			i = j
			continue

		// zygomys uses // for line comments, not the traditional Lisp ;.
		case b[i] == ';':
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue

		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, b[i], b[i+1])
			i += 2
			continue

		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
			continue

		// Only a hyphen between identifier characters; a minus stays a minus.
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or extent.
type sexpVec3 struct {
	vec [3]float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpMeshRef is returned by the mesh builtins so a mesh can be passed to
// (cut ...) directly instead of by name.
type sexpMeshRef struct {
	name     string
	vertices int
	faces    int
}

func (m *sexpMeshRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %q :vertices %d :faces %d)", m.name, m.vertices, m.faces)
}
func (m *sexpMeshRef) Type() *zygo.RegisteredType { return nil }

// sexpJobRef is returned by (cut ...).
type sexpJobRef struct {
	name string
}

func (j *sexpJobRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(job %q)", j.name)
}
func (j *sexpJobRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float returns the keyword value as a number, or def when absent.
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// vec returns the keyword value as a vec3, or def when absent.
func (a kwArgs) vec(key string, def [3]float64) ([3]float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	p, err := toVec3(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

// name returns the first positional argument as a string.
func (a kwArgs) name(builtin string) (string, error) {
	if len(a.positional) < 1 {
		return "", fmt.Errorf("%s requires a name argument", builtin)
	}
	s, err := toString(a.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", builtin, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toUint32 extracts a non-negative integer.
func toUint32(s zygo.Sexp) (uint32, error) {
	v, ok := s.(*zygo.SexpInt)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
	}
	if v.Val < 0 || v.Val > 1<<32-1 {
		return 0, fmt.Errorf("integer %d out of range", v.Val)
	}
	return uint32(v.Val), nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toAxis converts :x, :y or :z to 0, 1 or 2.
func toAxis(s zygo.Sexp) (int, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	switch name {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return [3]float64{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toMeshName accepts a mesh name or a mesh returned by a builtin.
func toMeshName(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpMeshRef:
		return v.name, nil
	case *zygo.SexpStr:
		return v.S, nil
	}
	return "", fmt.Errorf("expected mesh or mesh name, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func toFloats(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, it := range items {
		if out[i], err = toFloat64(it); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func toUint32s(s zygo.Sexp) ([]uint32, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(items))
	for i, it := range items {
		if out[i], err = toUint32(it); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtins carries the state the kerf builtins write into during one
// evaluation.
type builtins struct {
	scene    *scene.Scene
	dir      string
	cells    int
	jobLines map[string]int
}

// register installs all kerf builtins into a zygomys environment.
//
// Source code must be preprocessed with preprocessSource() before
// evaluation so that :keyword tokens are converted to recognizable string
// literals.
func (b *builtins) register(env *zygo.Zlisp) {
	for name, fn := range map[string]func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error){
		"vec3":     b.vec3,
		"box":      b.box,
		"plane":    b.plane,
		"prism":    b.prism,
		"sphere":   b.sphere,
		"cylinder": b.cylinder,
		"mesh":     b.mesh,
		"load":     b.load,
		"cut":      b.cut,
	} {
		env.AddFunction(name, fn)
	}
}

// add puts m into the scene and returns a reference to it.
func (b *builtins) add(m *kernel.Mesh) zygo.Sexp {
	b.scene.AddMesh(m)
	return &sexpMeshRef{name: m.Name, vertices: m.VertexCount(), faces: m.FaceCount()}
}

// ---------------------------------------------------------------------------
// (vec3 1 2 3)
// ---------------------------------------------------------------------------
func (b *builtins) vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var v [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
		}
		v[i] = f
	}
	return &sexpVec3{vec: v}, nil
}

// ---------------------------------------------------------------------------
// (box "name" :size (vec3 10 10 10) :at (vec3 0 0 0))
// :size may also be a single number for a cube.
// ---------------------------------------------------------------------------
func (b *builtins) box(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	meshName, err := pa.name("box")
	if err != nil {
		return zygo.SexpNull, err
	}
	size := [3]float64{1, 1, 1}
	if v, ok := pa.kw["size"]; ok {
		if f, ferr := toFloat64(v); ferr == nil {
			size = [3]float64{f, f, f}
		} else if size, err = toVec3(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
		}
	}
	at, err := pa.vec("at", [3]float64{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	}
	var lo, hi [3]float64
	for i := range at {
		lo[i] = at[i] - size[i]/2
		hi[i] = at[i] + size[i]/2
	}
	m, err := kernel.Box(meshName, lo, hi)
	if err != nil {
		return zygo.SexpNull, err
	}
	return b.add(m), nil
}

// ---------------------------------------------------------------------------
// (plane "name" :size 40 :at (vec3 0 1 0) :normal :y)
// ---------------------------------------------------------------------------
func (b *builtins) plane(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	meshName, err := pa.name("plane")
	if err != nil {
		return zygo.SexpNull, err
	}
	size, err := pa.float("size", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("plane: %w", err)
	}
	at, err := pa.vec("at", [3]float64{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("plane: %w", err)
	}
	axis := 2
	if v, ok := pa.kw["normal"]; ok {
		if axis, err = toAxis(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}
	}
	m, err := kernel.Plane(meshName, at, size/2, axis)
	if err != nil {
		return zygo.SexpNull, err
	}
	return b.add(m), nil
}

// ---------------------------------------------------------------------------
// (prism "name" :radius 5 :height 10 :segments 6 :at (vec3 0 0 0))
// ---------------------------------------------------------------------------
func (b *builtins) prism(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	meshName, err := pa.name("prism")
	if err != nil {
		return zygo.SexpNull, err
	}
	radius, err := pa.float("radius", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: %w", err)
	}
	height, err := pa.float("height", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: %w", err)
	}
	segments, err := pa.float("segments", 6)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: %w", err)
	}
	at, err := pa.vec("at", [3]float64{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: %w", err)
	}
	m, err := kernel.Prism(meshName, radius, height, int(segments))
	if err != nil {
		return zygo.SexpNull, err
	}
	m.Translate(at)
	return b.add(m), nil
}

// ---------------------------------------------------------------------------
// (sphere "name" :radius 5 :at (vec3 0 0 0))
// (cylinder "name" :radius 2 :height 20 :at (vec3 0 0 0))
//
// Both are meshed from signed distance functions, so their surfaces are
// triangle soups welded into closed meshes.
// ---------------------------------------------------------------------------
func (b *builtins) sphere(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	meshName, err := pa.name("sphere")
	if err != nil {
		return zygo.SexpNull, err
	}
	radius, err := pa.float("radius", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
	}
	sb := b.sdfBuilder()
	s, err := sb.Sphere(radius)
	if err != nil {
		return zygo.SexpNull, err
	}
	return b.meshSDF(sb, meshName, s, pa)
}

func (b *builtins) cylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	meshName, err := pa.name("cylinder")
	if err != nil {
		return zygo.SexpNull, err
	}
	radius, err := pa.float("radius", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	height, err := pa.float("height", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	sb := b.sdfBuilder()
	s, err := sb.Cylinder(height, radius)
	if err != nil {
		return zygo.SexpNull, err
	}
	return b.meshSDF(sb, meshName, s, pa)
}

func (b *builtins) sdfBuilder() *ksdf.Builder {
	sb := ksdf.New()
	if b.cells > 0 {
		sb.Cells = b.cells
	}
	return sb
}

// meshSDF applies :at and :cells, then meshes the shape.
func (b *builtins) meshSDF(sb *ksdf.Builder, meshName string, s ksdf.Shape, pa kwArgs) (zygo.Sexp, error) {
	cells, err := pa.float("cells", float64(sb.Cells))
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", meshName, err)
	}
	sb.Cells = int(cells)
	at, err := pa.vec("at", [3]float64{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", meshName, err)
	}
	if at != ([3]float64{}) {
		s = sb.Translate(s, at[0], at[1], at[2])
	}
	m, err := sb.ToMesh(meshName, s)
	if err != nil {
		return zygo.SexpNull, err
	}
	return b.add(m), nil
}

// ---------------------------------------------------------------------------
// (mesh "name" :positions [0 0 0 1 0 0 0 1 0] :indices [0 1 2] :faces [3])
// :faces is optional; without it every face is a triangle.
// ---------------------------------------------------------------------------
func (b *builtins) mesh(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	meshName, err := pa.name("mesh")
	if err != nil {
		return zygo.SexpNull, err
	}
	var positions []float64
	var indices, faces []uint32
	if v, ok := pa.kw["positions"]; ok {
		if positions, err = toFloats(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: positions: %w", err)
		}
	}
	if v, ok := pa.kw["indices"]; ok {
		if indices, err = toUint32s(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: indices: %w", err)
		}
	}
	if v, ok := pa.kw["faces"]; ok {
		if faces, err = toUint32s(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: faces: %w", err)
		}
	}
	m, err := kernel.FromBuffers(meshName, positions, indices, faces)
	if err != nil {
		return zygo.SexpNull, err
	}
	return b.add(m), nil
}

// ---------------------------------------------------------------------------
// (load "name" "parts/block.off")
// ---------------------------------------------------------------------------
func (b *builtins) load(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("load requires a name and a path")
	}
	meshName, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("load: name: %w", err)
	}
	path, err := toString(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("load: path: %w", err)
	}
	if !filepath.IsAbs(path) && b.dir != "" {
		path = filepath.Join(b.dir, path)
	}
	m, err := meshio.Load(path)
	if err != nil {
		return zygo.SexpNull, err
	}
	m.Name = meshName
	return b.add(m), nil
}

// ---------------------------------------------------------------------------
// (cut "job" :source "block" :cut "sheet"
//      :flags (list :require-through-cuts :filter-patch-inside))
// ---------------------------------------------------------------------------
func (b *builtins) cut(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	jobName, err := pa.name("cut")
	if err != nil {
		return zygo.SexpNull, err
	}
	job := scene.Job{Name: jobName, Line: b.jobLines[jobName]}
	if v, ok := pa.kw["source"]; ok {
		if job.Source, err = toMeshName(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("cut: source: %w", err)
		}
	}
	if v, ok := pa.kw["cut"]; ok {
		if job.Cut, err = toMeshName(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("cut: cut: %w", err)
		}
	}
	if v, ok := pa.kw["flags"]; ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cut: flags: %w", err)
		}
		for _, it := range items {
			f, err := toKeywordString(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cut: flags: %w", err)
			}
			job.Flags = append(job.Flags, f)
		}
	}
	b.scene.AddJob(job)
	return &sexpJobRef{name: jobName}, nil
}
