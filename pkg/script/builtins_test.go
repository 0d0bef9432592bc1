package script

import (
	"path/filepath"
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/meshio"
	"github.com/chazu/kerf/pkg/scene"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(box "a" :size 2)`, `(box "a" "__kw_size" 2)`},
		{"multiple keywords", `(prism "p" :radius 4 :height 10)`, `(prism "p" "__kw_radius" 4 "__kw_height" 10)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"escaped quote in string", `"a \" :b"`, `"a \" :b"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(through-cut :x 1)`, `(through_cut "__kw_x" 1)`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative number preserved", `(vec3 -1 0 -2.5)`, `(vec3 -1 0 -2.5)`},
		{"comment converted to // style", `;; comment with :keyword`, `// comment with :keyword`},
		{"hyphen in keyword preserved", `:require-through-cuts`, `"__kw_require-through-cuts"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func evalScene(t *testing.T, eng *Engine, source string) *scene.Scene {
	t.Helper()
	sc, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if sc == nil {
		t.Fatal("expected non-nil scene")
	}
	t.Cleanup(sc.Release)
	return sc
}

func expectEvalError(t *testing.T, source string) {
	t.Helper()
	sc, evalErrs, err := NewEngine("").Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if sc != nil || len(evalErrs) == 0 {
		t.Fatalf("expected eval error for %q", source)
	}
}

// ---------------------------------------------------------------------------
// Mesh builtins
// ---------------------------------------------------------------------------

func TestBox(t *testing.T) {
	sc := evalScene(t, NewEngine(""), `(box "block" :size (vec3 4 2 6) :at (vec3 1 1 1))`)
	m := sc.Mesh("block")
	if m == nil {
		t.Fatal("expected mesh named 'block'")
	}
	if m.VertexCount() != 8 || m.FaceCount() != 6 {
		t.Errorf("got %d vertices, %d faces", m.VertexCount(), m.FaceCount())
	}
	min, max := m.BoundingBox()
	if min != [3]float64{-1, 0, -2} || max != [3]float64{3, 2, 4} {
		t.Errorf("bounds = %v..%v", min, max)
	}
}

func TestBoxScalarSizeAndVariables(t *testing.T) {
	sc := evalScene(t, NewEngine(""), `
(def s 10)
(box "cube" :size s)
`)
	min, max := sc.Mesh("cube").BoundingBox()
	if min != [3]float64{-5, -5, -5} || max != [3]float64{5, 5, 5} {
		t.Errorf("bounds = %v..%v", min, max)
	}
}

func TestPlane(t *testing.T) {
	sc := evalScene(t, NewEngine(""), `(plane "sheet" :size 40 :at (vec3 0 1 0) :normal :y)`)
	m := sc.Mesh("sheet")
	if m == nil || m.FaceCount() != 2 {
		t.Fatalf("sheet = %v", m)
	}
	min, max := m.BoundingBox()
	if min != [3]float64{-20, 1, -20} || max != [3]float64{20, 1, 20} {
		t.Errorf("bounds = %v..%v", min, max)
	}
}

func TestPrism(t *testing.T) {
	sc := evalScene(t, NewEngine(""), `(prism "hex" :radius 3 :height 5 :segments 6 :at (vec3 0 0 -1))`)
	m := sc.Mesh("hex")
	if m.VertexCount() != 12 || m.FaceCount() != 8 {
		t.Errorf("got %d vertices, %d faces", m.VertexCount(), m.FaceCount())
	}
	min, max := m.BoundingBox()
	if min[2] != -1 || max[2] != 4 {
		t.Errorf("z range = %v..%v", min[2], max[2])
	}
	if !m.IsManifold() {
		t.Error("prism should be closed")
	}
}

func TestSphere(t *testing.T) {
	eng := NewEngine("")
	eng.Cells = 16
	sc := evalScene(t, eng, `(sphere "ball" :radius 2 :at (vec3 10 0 0))`)
	m := sc.Mesh("ball")
	if m == nil || m.FaceCount() == 0 {
		t.Fatal("expected a meshed sphere")
	}
	min, max := m.BoundingBox()
	if min[0] < 7.9 || max[0] > 12.1 {
		t.Errorf("x range = %v..%v", min[0], max[0])
	}
}

func TestMeshLiteral(t *testing.T) {
	sc := evalScene(t, NewEngine(""), `
(mesh "quad"
  :positions [0 0 0  1 0 0  1 1 0  0 1 0]
  :indices [0 1 2 3]
  :faces [4])
(mesh "tri" :positions [0 0 0 1 0 0 0 1 0] :indices [0 1 2])
`)
	if q := sc.Mesh("quad"); q.FaceCount() != 1 || q.IndexCount() != 4 {
		t.Errorf("quad: %d faces, %d indices", q.FaceCount(), q.IndexCount())
	}
	if tri := sc.Mesh("tri"); tri.FaceCount() != 1 {
		t.Errorf("tri: %d faces", tri.FaceCount())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cube, err := kernel.Cube("whatever", 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := meshio.SaveOFF(filepath.Join(dir, "block.off"), cube); err != nil {
		t.Fatal(err)
	}

	sc := evalScene(t, NewEngine(dir), `(load "block" "block.off")`)
	m := sc.Mesh("block")
	if m == nil {
		t.Fatal("expected mesh named 'block'")
	}
	if m.FaceCount() != 6 {
		t.Errorf("FaceCount() = %d, want 6", m.FaceCount())
	}

	expectEvalError(t, `(load "x" "/does/not/exist.off")`)
}

// ---------------------------------------------------------------------------
// Cut jobs
// ---------------------------------------------------------------------------

func TestCutJob(t *testing.T) {
	sc := evalScene(t, NewEngine(""), `(box "block" :size 10)
(plane "sheet" :size 40 :at (vec3 0 1 0) :normal :y)

(cut "slice" :source "block" :cut "sheet"
     :flags (list :require-through-cuts :filter-fragment-location-above
                  :filter-fragment-sealing-inside))
`)
	job, ok := sc.Job("slice")
	if !ok {
		t.Fatal("expected job named 'slice'")
	}
	if job.Source != "block" || job.Cut != "sheet" {
		t.Errorf("job = %+v", job)
	}
	if job.Line != 4 {
		t.Errorf("Line = %d, want 4", job.Line)
	}
	want := []string{"require-through-cuts", "filter-fragment-location-above", "filter-fragment-sealing-inside"}
	if len(job.Flags) != len(want) {
		t.Fatalf("Flags = %v", job.Flags)
	}
	for i := range want {
		if job.Flags[i] != want[i] {
			t.Errorf("Flags[%d] = %q, want %q", i, job.Flags[i], want[i])
		}
	}
	cfg, err := job.Config(kernel.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.RequireThroughCuts || !cfg.Filter.Above || !cfg.Filter.SealInside {
		t.Errorf("Config() = %+v", cfg)
	}
	if errs := scene.Check(sc); !errs.OK() {
		t.Errorf("scene invalid: %v", errs.Errors)
	}
}

func TestCutWithMeshReferences(t *testing.T) {
	sc := evalScene(t, NewEngine(""), `
(def b (box "block" :size 10))
(def p (plane "sheet" :size 40 :normal :y))
(cut "slice" :source b :cut p)
`)
	job, ok := sc.Job("slice")
	if !ok || job.Source != "block" || job.Cut != "sheet" {
		t.Errorf("job = %+v, %v", job, ok)
	}
	if len(job.Flags) != 0 {
		t.Errorf("Flags = %v, want none", job.Flags)
	}
}

func TestBuiltinErrors(t *testing.T) {
	for name, src := range map[string]string{
		"box without name":   `(box :size 2)`,
		"box bad size":       `(box "b" :size "big")`,
		"empty box":          `(box "b" :size 0)`,
		"plane bad axis":     `(plane "p" :normal :w)`,
		"prism few segments": `(prism "p" :segments 2)`,
		"vec3 arity":         `(vec3 1 2)`,
		"mesh bad index":     `(mesh "m" :positions [0 0 0] :indices [0 1 2])`,
		"mesh negative":      `(mesh "m" :positions [0 0 0] :indices [-1])`,
		"cut bad source":     `(cut "j" :source 5)`,
		"load arity":         `(load "x")`,
	} {
		t.Run(name, func(t *testing.T) {
			expectEvalError(t, src)
		})
	}
}
