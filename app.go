package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/cut"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/meshio"
	"github.com/chazu/kerf/pkg/runner"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/script"
)

// colorPalette is a default palette used to assign distinct colors to
// components.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	cfg    config.Config
	engine *script.Engine
	cutter kernel.Cutter

	mu     sync.Mutex
	source *kernel.Mesh
	cut    *kernel.Mesh
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
// Triangles are unshared so each carries its own face normal.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable error or warning for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

func newEvalResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

func (r *EvalResult) fail(line int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, EvalErrorData{Line: line, Message: fmt.Sprintf(format, args...)})
}

// NewApp creates an App using the settings in kerf.toml, if present, and
// the pure Go cutter.
func NewApp() *App {
	cfg, err := config.Load("kerf.toml")
	if err != nil {
		logging.Warn("config: %v; using defaults", err)
		cfg = config.Default()
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logging.Warn("config: %v", err)
	}
	eng := script.NewEngine(".")
	eng.Timeout = cfg.EvalTimeout.Duration
	return &App{
		cfg:    cfg,
		engine: eng,
		cutter: cut.NewEngine(),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown releases the meshes loaded through the bindings.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source.Release()
	a.cut.Release()
}

func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// Evaluate takes a cut script, runs every job it declares and returns the
// resulting components. A script that declares meshes but no jobs returns
// the meshes themselves so they can be previewed.
func (a *App) Evaluate(source string) EvalResult {
	result := newEvalResult()

	// Step 1: Evaluate the script into a scene.
	sc, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		logging.Error("evaluate: %v", err)
		result.fail(0, "%v", err)
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	defer sc.Release()
	if sc.MeshCount() == 0 && sc.JobCount() == 0 {
		return result
	}

	// Step 2: Validate. Warnings are reported but do not block.
	check := scene.Check(sc)
	for _, w := range check.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Line: w.Line, Message: w.Error()})
	}
	if !check.OK() {
		for _, e := range check.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Message: e.Error()})
		}
		return result
	}

	if sc.JobCount() == 0 {
		for i, m := range sc.Meshes() {
			a.appendMesh(&result, m, m.Name, i)
		}
		return result
	}

	// Step 3: Run the jobs.
	def, err := a.cfg.Dispatch()
	if err != nil {
		result.fail(0, "config: %v", err)
		return result
	}
	r, err := runner.New(a.cfg.Workers, a.cutter, def)
	if err != nil {
		result.fail(0, "%v", err)
		return result
	}
	results, err := r.Run(a.context(), sc)
	if err != nil {
		result.fail(0, "%v", err)
		return result
	}

	// Step 4: Convert components to the frontend format.
	n := 0
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			result.fail(res.Job.Line, "%v", res.Err)
			continue
		}
		if len(res.Meshes) == 0 {
			result.Warnings = append(result.Warnings, EvalErrorData{
				Line:    res.Job.Line,
				Message: fmt.Sprintf("job %s produced no components", res.Job.Name),
			})
		}
		for _, m := range res.Meshes {
			a.appendMesh(&result, m, res.Job.Name+"/"+m.Name, n)
			n++
		}
		res.Release()
	}
	return result
}

// appendMesh converts m and adds it to result, reporting conversion
// failures as errors.
func (a *App) appendMesh(result *EvalResult, m *kernel.Mesh, name string, i int) {
	md, err := toMeshData(m, name, colorPalette[i%len(colorPalette)])
	if err != nil {
		result.fail(0, "%s: %v", name, err)
		return
	}
	result.Meshes = append(result.Meshes, md)
}

// LoadSource reads an OFF file as the source mesh for Cut.
func (a *App) LoadSource(path string) (MeshData, error) {
	return a.load(path, &a.source, 0)
}

// LoadCut reads an OFF file as the cut mesh for Cut.
func (a *App) LoadCut(path string) (MeshData, error) {
	return a.load(path, &a.cut, 1)
}

func (a *App) load(path string, slot **kernel.Mesh, color int) (MeshData, error) {
	m, err := meshio.Load(path)
	if err != nil {
		return MeshData{}, err
	}
	md, err := toMeshData(m, m.Name, colorPalette[color])
	if err != nil {
		return MeshData{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	(*slot).Release()
	*slot = m
	logging.Info("loaded %s: %d vertices, %d faces", path, m.VertexCount(), m.FaceCount())
	return md, nil
}

// Cut dispatches the loaded source and cut meshes with the named flags.
// An empty flag list uses the configured defaults.
func (a *App) Cut(flagNames []string) EvalResult {
	result := newEvalResult()

	// Held for the whole dispatch so a concurrent load cannot release the
	// inputs underneath it.
	a.mu.Lock()
	defer a.mu.Unlock()
	src, cm := a.source, a.cut
	if src == nil || cm == nil {
		result.fail(0, "load a source and a cut mesh first")
		return result
	}

	cfg, err := a.cfg.Dispatch()
	if len(flagNames) > 0 {
		cfg, err = kernel.ParseConfig(flagNames)
	}
	if err != nil {
		result.fail(0, "%v", err)
		return result
	}

	meshes, err := a.cutter.Cut(src, cm, cfg)
	if err != nil {
		result.fail(0, "cut failed (%s): %v", kernel.StatusOf(err), err)
		return result
	}
	if len(meshes) == 0 {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: "no components selected"})
	}
	for i, m := range meshes {
		a.appendMesh(&result, m, m.Name, i)
		m.Release()
	}
	return result
}

// toMeshData triangulates m and unshares its vertices so each triangle
// can carry a flat normal.
func toMeshData(m *kernel.Mesh, name, color string) (MeshData, error) {
	tris, err := m.Triangulated()
	if err != nil {
		return MeshData{}, err
	}
	pos := m.Positions()
	md := MeshData{
		Vertices: make([]float32, 0, 3*len(tris)),
		Normals:  make([]float32, 0, 3*len(tris)),
		Indices:  make([]uint32, len(tris)),
		PartName: name,
		Color:    color,
	}
	for i := 0; i < len(tris); i += 3 {
		a := geom.FromFlat(pos, int(tris[i]))
		b := geom.FromFlat(pos, int(tris[i+1]))
		c := geom.FromFlat(pos, int(tris[i+2]))
		n := geom.TriangleNormal(a, b, c)
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		for _, p := range []geom.Vec{a, b, c} {
			md.Vertices = append(md.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
			md.Normals = append(md.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
		}
	}
	for i := range md.Indices {
		md.Indices[i] = uint32(i)
	}
	return md, nil
}
