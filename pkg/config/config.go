// Package config loads kerf settings from a TOML file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the settings shared by the CLI and the editor.
type Config struct {
	LogLevel  string   `toml:"log_level"`
	Workers   int      `toml:"workers"`
	OutputDir string   `toml:"output_dir"`
	Format    string   `toml:"format"`
	Flags     []string `toml:"flags"`

	// EvalTimeout bounds script evaluation, e.g. "5s".
	EvalTimeout Duration `toml:"eval_timeout"`
}

// Duration is a time.Duration that reads and writes as a string.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:    "info",
		Workers:     runtime.NumCPU(),
		OutputDir:   ".",
		Format:      "off",
		Flags:       kernel.DefaultConfig().Flags().Names(),
		EvalTimeout: Duration{5 * time.Second},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and that the flags parse.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.EvalTimeout.Duration <= 0 {
		return fmt.Errorf("config: eval_timeout must be positive")
	}
	switch c.Format {
	case "off", "stl":
	default:
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if _, err := c.Dispatch(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Dispatch returns the validated dispatch configuration named by Flags.
// Double precision is assumed when no precision flag is given.
func (c Config) Dispatch() (kernel.Config, error) {
	return kernel.ParseConfig(c.Flags)
}

// Marshal encodes the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
