// Package script evaluates kerf cut scripts. A script is a zygomys Lisp
// program run in a sandbox with builtins that declare meshes and cut jobs;
// the result of an evaluation is a scene.Scene.
//
//	(box "block" :size (vec3 10 10 10))
//	(plane "sheet" :size 40 :at (vec3 0 1 0) :normal :y)
//	(cut "slice" :source "block" :cut "sheet"
//	     :flags (list :filter-fragment-location-above :filter-fragment-sealing-inside))
package script

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment, and a newer
// call supersedes any evaluation still in flight.
type Engine struct {
	// Dir resolves relative paths given to (load ...).
	Dir string

	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	// Cells is the marching cubes resolution for SDF primitives. Zero
	// means the sdfx default.
	Cells int

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine that loads mesh files relative to dir.
func NewEngine(dir string) *Engine {
	return &Engine{Dir: dir}
}

// Evaluate runs a script and returns the scene it declares.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure: returns nil + nil + error, which is ErrTimeout or
//     ErrSuperseded when the evaluation was abandoned
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		sc, evalErrs, err := e.evaluate(source)
		ch <- outcome{scene: sc, errors: evalErrs, err: err}
	}()

	return e.await(context.Background(), ch, gen)
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return EvalTimeout
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*scene.Scene, []EvalError, error) {
	sc := scene.New()

	// Empty source is a valid program that declares nothing.
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls;
	// (load ...) is the only file access and goes through meshio.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &builtins{
		scene:    sc,
		dir:      e.Dir,
		cells:    e.Cells,
		jobLines: jobLines(source),
	}
	b.register(env)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		sc.Release()
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		sc.Release()
		return nil, parseZygomysError(err), nil
	}

	logging.Debug("script evaluated: %d meshes, %d jobs", sc.MeshCount(), sc.JobCount())
	return sc, nil, nil
}

// cutPattern finds job declarations so jobs can carry their source line.
var cutPattern = regexp.MustCompile(`\(\s*cut\s+"([^"]*)"`)

// jobLines maps each job name to the line of its first (cut "name" ...).
func jobLines(source string) map[string]int {
	lines := make(map[string]int)
	for i, text := range strings.Split(source, "\n") {
		if c := strings.Index(text, ";"); c >= 0 {
			text = text[:c]
		}
		for _, m := range cutPattern.FindAllStringSubmatch(text, -1) {
			if _, ok := lines[m[1]]; !ok {
				lines[m[1]] = i + 1
			}
		}
	}
	return lines
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n".
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
