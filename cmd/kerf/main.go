// Command kerf cuts meshes from the command line.
//
//	kerf [--config kerf.toml] [--log-level debug] cut --source a.off --cut b.off [--flags a,b] [--out dir] [--format off|stl]
//	kerf [--config kerf.toml] run scene.kerf [--out dir]
//	kerf [--config kerf.toml] watch scene.kerf [--out dir]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/cut"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/native"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli holds the state shared by the subcommands: where to write and the
// configuration loaded before any of them runs.
type cli struct {
	stdout, stderr io.Writer
	configPath     string
	logLevel       string
	cfg            config.Config
}

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "kerf: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "kerf",
		Short:         "cut meshes with other meshes",
		Long:          "kerf splits a source mesh along a cut mesh and writes the selected pieces as OFF or STL files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown command %q", args[0])
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageErrorf("no command given (want cut, run or watch)")
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().StringVar(&c.configPath, "config", "kerf.toml", "configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.AddCommand(c.cutCmd(), c.runCmd(), c.watchCmd())
	return root
}

// load reads the configuration and sets up logging.
func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	logging.SetOutput(c.stderr)
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return usageErrorf("log level: %v", err)
	}
	c.cfg = cfg
	return nil
}

// cutter returns the backend named by --kernel.
func cutter(name string) (kernel.Cutter, error) {
	switch name {
	case "", "go":
		return cut.NewEngine(), nil
	case "native":
		return native.New()
	}
	return nil, fmt.Errorf("unknown kernel %q (want go or native)", name)
}

// exitCode maps an error to a process exit code derived from its status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	switch kernel.StatusOf(err) {
	case kernel.StatusInvalidValue:
		return 3
	case kernel.StatusOutOfMemory:
		return 4
	default:
		return 1
	}
}
