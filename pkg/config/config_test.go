package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/kerf/pkg/kernel"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	d, err := c.Dispatch()
	if err != nil {
		t.Fatal(err)
	}
	if d != kernel.DefaultConfig() {
		t.Errorf("Dispatch() = %+v, want DefaultConfig", d)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "overrides",
			src: `
log_level = "debug"
workers = 3
format = "stl"
flags = ["require-through-cuts", "filter-seam-source"]
eval_timeout = "250ms"
`,
			check: func(t *testing.T, c Config) {
				if c.LogLevel != "debug" || c.Workers != 3 || c.Format != "stl" {
					t.Errorf("got %+v", c)
				}
				if c.EvalTimeout.Duration != 250*time.Millisecond {
					t.Errorf("EvalTimeout = %v", c.EvalTimeout)
				}
				if c.OutputDir != "." {
					t.Errorf("OutputDir default lost: %q", c.OutputDir)
				}
			},
		},
		{name: "conflicting flags", src: `flags = ["require-through-cuts", "filter-fragment-location-undefined"]`, wantErr: true},
		{name: "unknown flag", src: `flags = ["bogus"]`, wantErr: true},
		{name: "unknown key", src: `colour = "red"`, wantErr: true},
		{name: "zero workers", src: `workers = 0`, wantErr: true},
		{name: "bad duration", src: `eval_timeout = "soon"`, wantErr: true},
		{name: "bad format", src: `format = "obj"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.src))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil || c.Format != "off" {
		t.Fatalf("Load(missing) = %+v, %v", c, err)
	}

	path := filepath.Join(t.TempDir(), "kerf.toml")
	if err := os.WriteFile(path, []byte("output_dir = \"out\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.OutputDir != "out" {
		t.Errorf("OutputDir = %q, want out", c.OutputDir)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c := Default()
	c.Workers = 2
	c.Flags = []string{"require-through-cuts", "filter-fragment-location-above", "filter-fragment-sealing-none"}
	data, err := c.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()): %v\n%s", err, data)
	}
	if back.Workers != 2 || len(back.Flags) != 3 || back.EvalTimeout != c.EvalTimeout {
		t.Errorf("round trip = %+v", back)
	}
}
