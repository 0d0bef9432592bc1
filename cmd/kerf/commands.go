package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/meshio"
	"github.com/chazu/kerf/pkg/runner"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/script"
	"github.com/chazu/kerf/pkg/watch"
	"github.com/spf13/cobra"
)

// outputFlags are shared by every subcommand that writes meshes. Empty
// values fall back to the configuration.
type outputFlags struct {
	out    string
	format string
	kernel string
}

func (of *outputFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&of.out, "out", "", "output directory (default from config)")
	cmd.Flags().StringVar(&of.format, "format", "", "output format, off or stl (default from config)")
	cmd.Flags().StringVar(&of.kernel, "kernel", "go", "cutting backend (go or native)")
}

func (of outputFlags) resolve(cfg config.Config) outputFlags {
	if of.out == "" {
		of.out = cfg.OutputDir
	}
	if of.format == "" {
		of.format = cfg.Format
	}
	return of
}

func oneScript(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageErrorf("%s: exactly one script is required", cmd.Name())
	}
	return nil
}

// ---------------------------------------------------------------------------
// kerf cut --source a.off --cut b.off
// ---------------------------------------------------------------------------

func (c *cli) cutCmd() *cobra.Command {
	var srcPath, cutPath string
	var flagList []string
	var of outputFlags
	cmd := &cobra.Command{
		Use:   "cut",
		Short: "cut one mesh file with another",
		Long:  "cut dispatches a single job: the source mesh is split along the cut mesh and the selected components are written to the output directory",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("cut: unexpected argument %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if srcPath == "" || cutPath == "" {
				return usageErrorf("cut: --source and --cut are required")
			}
			cfg := c.cfg
			if len(flagList) > 0 {
				cfg.Flags = flagList
			}

			sc := scene.New()
			defer sc.Release()
			for _, in := range []struct{ path, name string }{{srcPath, "source"}, {cutPath, "cut"}} {
				m, err := meshio.Load(in.path)
				if err != nil {
					return err
				}
				m.Name = in.name
				sc.AddMesh(m)
			}
			base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
			sc.AddJob(scene.Job{Name: base, Source: "source", Cut: "cut"})
			return execute(cmd.Context(), cfg, sc, of.resolve(cfg), c.stdout)
		},
	}
	cmd.Flags().StringVar(&srcPath, "source", "", "source mesh (OFF)")
	cmd.Flags().StringVar(&cutPath, "cut", "", "cut mesh (OFF)")
	cmd.Flags().StringSliceVar(&flagList, "flags", nil, "comma-separated dispatch flags (default from config)")
	of.add(cmd)
	return cmd
}

// ---------------------------------------------------------------------------
// kerf run scene.kerf
// ---------------------------------------------------------------------------

func (c *cli) runCmd() *cobra.Command {
	var of outputFlags
	cmd := &cobra.Command{
		Use:   "run script.kerf",
		Short: "run every cut job of a script",
		Args:  oneScript,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.Context(), c.cfg, args[0], of.resolve(c.cfg), c.stdout, c.stderr)
		},
	}
	of.add(cmd)
	return cmd
}

// ---------------------------------------------------------------------------
// kerf watch scene.kerf
// ---------------------------------------------------------------------------

func (c *cli) watchCmd() *cobra.Command {
	var of outputFlags
	cmd := &cobra.Command{
		Use:   "watch script.kerf",
		Short: "run a script again whenever it changes",
		Args:  oneScript,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			path, out := args[0], of.resolve(c.cfg)
			rerun := func() {
				if err := runScript(ctx, c.cfg, path, out, c.stdout, c.stderr); err != nil {
					logging.Error("%s: %v", path, err)
				}
			}
			rerun()
			logging.Info("watching %s", path)
			return watch.File(ctx, path, watch.DefaultDebounce, rerun)
		},
	}
	of.add(cmd)
	return cmd
}

// errEval marks a script that failed to evaluate; the individual errors
// have already been printed.
var errEval = errors.New("script evaluation failed")

// runScript evaluates a script and runs the scene it declares.
func runScript(ctx context.Context, cfg config.Config, path string, of outputFlags, stdout, stderr io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	eng := script.NewEngine(filepath.Dir(path))
	eng.Timeout = cfg.EvalTimeout.Duration
	sc, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(stderr, "%s:%d: %s\n", path, e.Line, e.Message)
		}
		return fmt.Errorf("%s: %w: %w", path, errEval, kernel.ErrInvalidValue)
	}
	defer sc.Release()
	return execute(ctx, cfg, sc, of, stdout)
}

// execute runs every job of sc and writes the selected components.
func execute(ctx context.Context, cfg config.Config, sc *scene.Scene, of outputFlags, stdout io.Writer) error {
	format, err := meshio.ParseFormat(of.format)
	if err != nil {
		return err
	}
	def, err := cfg.Dispatch()
	if err != nil {
		return err
	}
	c, err := cutter(of.kernel)
	if err != nil {
		return err
	}
	r, err := runner.New(cfg.Workers, c, def)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(of.out, 0o755); err != nil {
		return err
	}

	results, runErr := r.Run(ctx, sc)
	var failed []error
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			failed = append(failed, res.Err)
			continue
		}
		paths, err := res.Save(of.out, format)
		res.Release()
		if err != nil {
			failed = append(failed, err)
			continue
		}
		logging.Info("%s: %d components in %s", res.Job.Name, len(paths), res.Elapsed)
		for _, p := range paths {
			fmt.Fprintln(stdout, p)
		}
	}
	if runErr != nil {
		return runErr
	}
	return errors.Join(failed...)
}
