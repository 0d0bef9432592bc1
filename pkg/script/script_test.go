package script

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine("")

	for _, src := range []string{"", "   \n\t  \n  "} {
		sc, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if sc == nil {
			t.Fatal("expected non-nil scene")
		}
		if sc.MeshCount() != 0 || sc.JobCount() != 0 {
			t.Errorf("expected empty scene, got %d meshes, %d jobs", sc.MeshCount(), sc.JobCount())
		}
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	eng := NewEngine("")

	sc, evalErrs, err := eng.Evaluate("(+ 1 2)\n(- 10 5)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc.MeshCount() != 0 {
		t.Errorf("expected no meshes, got %d", sc.MeshCount())
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine("")

	sc, evalErrs, err := eng.Evaluate("(box \"a\"")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if sc != nil {
		t.Error("expected nil scene on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval errors for unbalanced parens")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine("")

	_, evalErrs, err := eng.Evaluate("(frobnicate 1 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	var err error = EvalError{Line: 3, Message: "bad"}
	if err.Error() != "line 3: bad" {
		t.Errorf("Error() = %q", err.Error())
	}
	err = EvalError{Message: "no line"}
	if err.Error() != "no line" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// await is exercised directly with a channel that never sends; an
	// infinite loop in zygomys would keep a goroutine alive.
	eng := &Engine{Timeout: 20 * time.Millisecond, generation: 1}
	ch := make(chan outcome, 1)

	start := time.Now()
	_, _, err := eng.await(context.Background(), ch, 1)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took %v", time.Since(start))
	}
}

func TestEvaluateTimeoutReleasesLateScene(t *testing.T) {
	eng := &Engine{Timeout: 10 * time.Millisecond, generation: 1}
	ch := make(chan outcome, 1)
	if _, _, err := eng.await(context.Background(), ch, 1); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	m, err := kernel.Cube("late", 1)
	if err != nil {
		t.Fatal(err)
	}
	sc := scene.New()
	sc.AddMesh(m)
	ch <- outcome{scene: sc}

	deadline := time.Now().Add(2 * time.Second)
	for !m.Released() {
		if time.Now().After(deadline) {
			t.Fatal("scene finished after the timeout was never released")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	eng := &Engine{Timeout: time.Second, generation: 2}
	m, err := kernel.Cube("stale", 1)
	if err != nil {
		t.Fatal(err)
	}
	sc := scene.New()
	sc.AddMesh(m)

	ch := make(chan outcome, 1)
	ch <- outcome{scene: sc}
	if _, _, err := eng.await(context.Background(), ch, 1); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if !m.Released() {
		t.Error("stale scene was not released")
	}
}

func TestEvaluateCanceled(t *testing.T) {
	eng := &Engine{generation: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := eng.await(ctx, make(chan outcome, 1), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEngineTimeoutDefault(t *testing.T) {
	if got := NewEngine("").timeout(); got != EvalTimeout {
		t.Errorf("timeout() = %v, want %v", got, EvalTimeout)
	}
	eng := &Engine{Timeout: time.Millisecond}
	if got := eng.timeout(); got != time.Millisecond {
		t.Errorf("timeout() = %v", got)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 7: bad thing", 7, "bad thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestJobLines(t *testing.T) {
	src := `(box "a" :size 2)
; (cut "commented" :source "a")
(plane "p" :size 4)
(cut "first" :source "a" :cut "p")
  ( cut "second" :source "a" :cut "p")`
	lines := jobLines(src)
	if lines["first"] != 4 || lines["second"] != 5 {
		t.Errorf("jobLines = %v", lines)
	}
	if _, ok := lines["commented"]; ok {
		t.Error("commented job should be ignored")
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
