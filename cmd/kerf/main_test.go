package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/meshio"
)

// writeInputs saves a cube and a cutting sheet as OFF files in dir.
func writeInputs(t *testing.T, dir string) (src, cut string) {
	t.Helper()
	cube, err := kernel.Cube("cube", 5)
	if err != nil {
		t.Fatal(err)
	}
	sheet, err := kernel.Plane("sheet", [3]float64{0.3, 1, 0.7}, 20, 1)
	if err != nil {
		t.Fatal(err)
	}
	src, cut = filepath.Join(dir, "cube.off"), filepath.Join(dir, "sheet.off")
	if err := meshio.SaveOFF(src, cube); err != nil {
		t.Fatal(err)
	}
	if err := meshio.SaveOFF(cut, sheet); err != nil {
		t.Fatal(err)
	}
	return src, cut
}

func runKerf(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--config=" + filepath.Join(t.TempDir(), "none.toml")}, args...)
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCutCommand(t *testing.T) {
	dir := t.TempDir()
	src, cut := writeInputs(t, dir)
	out := filepath.Join(dir, "out")

	code, stdout, stderr := runKerf(t, "cut", "--source", src, "--cut", cut, "--out", out,
		"--flags", "filter-fragment-location-above,filter-fragment-sealing-inside")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	lines := strings.Fields(stdout)
	if len(lines) != 1 {
		t.Fatalf("wrote %v", lines)
	}
	m, err := meshio.Load(lines[0])
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsManifold() {
		t.Error("sealed fragment should be closed")
	}
	if !strings.HasPrefix(filepath.Base(lines[0]), "cube_00_") {
		t.Errorf("output name %s", lines[0])
	}
}

func TestCutCommandSTL(t *testing.T) {
	dir := t.TempDir()
	src, cut := writeInputs(t, dir)
	code, stdout, stderr := runKerf(t, "cut", "--source", src, "--cut", cut, "--out", dir, "--format", "stl")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, p := range strings.Fields(stdout) {
		if filepath.Ext(p) != ".stl" {
			t.Errorf("unexpected output %s", p)
		}
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	src, _ := writeInputs(t, dir)
	script := filepath.Join(dir, "scene.kerf")
	body := `(load "block" "` + filepath.Base(src) + `")
(plane "sheet" :size 40 :at (vec3 0.3 1 0.7) :normal :y)
(cut "slice" :source "block" :cut "sheet" :flags (list :filter-patch-inside :filter-patch-outside))
`
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")
	code, stdout, stderr := runKerf(t, "run", script, "--out", out)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if n := len(strings.Fields(stdout)); n != 2 {
		t.Errorf("wrote %d files, want 2 patches", n)
	}
}

func TestRunCommandScriptError(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "bad.kerf")
	if err := os.WriteFile(script, []byte(`(box "a" :size "big")`), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := runKerf(t, "run", script, "--out", dir)
	if code != 3 {
		t.Errorf("exit %d, want 3", code)
	}
	if !strings.Contains(stderr, "bad.kerf") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"slice"}, 2},
		{"cut without inputs", []string{"cut"}, 2},
		{"run without script", []string{"run"}, 2},
		{"unknown flag", []string{"cut", "--sauce", "a.off"}, 2},
		{"two scripts", []string{"run", "a.kerf", "b.kerf"}, 2},
		{"bad log level", []string{"--log-level=chatty", "run", "x"}, 2},
		{"missing input file", []string{"cut", "--source", "nope.off", "--cut", "nope.off"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runKerf(t, tt.args...); code != tt.code {
				t.Errorf("exit %d, want %d", code, tt.code)
			}
		})
	}
}

func TestUnknownKernel(t *testing.T) {
	dir := t.TempDir()
	src, cut := writeInputs(t, dir)
	code, _, stderr := runKerf(t, "cut", "--source", src, "--cut", cut, "--out", dir, "--kernel", "gpu")
	if code != 1 || !strings.Contains(stderr, "unknown kernel") {
		t.Errorf("exit %d: %s", code, stderr)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{usageErrorf("bad"), 2},
		{fmt.Errorf("wrapped: %w", usageErrorf("bad")), 2},
		{fmt.Errorf("mesh: %w", kernel.ErrInvalidValue), 3},
		{kernel.ErrOutOfMemory, 4},
		{errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
