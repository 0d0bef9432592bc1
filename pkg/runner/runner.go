// Package runner executes the cut jobs of a scene on a pool of workers.
// Every job gets its own dispatch, so jobs that share input meshes run
// concurrently without coordination. The runner is read-only with respect
// to the scene.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/meshio"
	"github.com/chazu/kerf/pkg/scene"
)

var (
	ErrNoWorkers = errors.New("runner: attempting to create worker pool with less than 1 worker")
	ErrNoCutter  = errors.New("runner: no cutter configured")
)

// Result is the outcome of one job.
type Result struct {
	Job     scene.Job
	Meshes  []*kernel.Mesh
	Err     error
	Elapsed time.Duration
}

// Release frees the result meshes.
func (r *Result) Release() {
	for _, m := range r.Meshes {
		m.Release()
	}
	r.Meshes = nil
}

// Save writes each mesh as dir/<job>_<index>_<component>.<format> and
// returns the paths written.
func (r *Result) Save(dir string, format meshio.Format) ([]string, error) {
	paths := make([]string, 0, len(r.Meshes))
	for i, m := range r.Meshes {
		name := fmt.Sprintf("%s_%02d_%s", r.Job.Name, i, m.Name)
		path, err := meshio.Save(dir, name, format, m)
		if err != nil {
			return paths, fmt.Errorf("job %s: %w", r.Job.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Runner dispatches scene jobs to a fixed number of workers.
type Runner struct {
	workers int
	cutter  kernel.Cutter
	def     kernel.Config
}

// New creates a Runner. def is used for jobs that name no flags.
func New(workers int, cutter kernel.Cutter, def kernel.Config) (*Runner, error) {
	if workers <= 0 {
		return nil, ErrNoWorkers
	}
	if cutter == nil {
		return nil, ErrNoCutter
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("runner: default config: %w", err)
	}
	return &Runner{workers: workers, cutter: cutter, def: def}, nil
}

// Run validates the scene and executes its jobs. Results come back in job
// order; a job that fails carries its error in Result.Err and does not
// stop the others. When ctx is cancelled no further jobs are started,
// jobs already dispatched run to completion, and the jobs never started
// report ctx.Err().
func (r *Runner) Run(ctx context.Context, sc *scene.Scene) ([]Result, error) {
	check := scene.Check(sc)
	for _, w := range check.Warnings {
		logging.Warn("%s", w.Error())
	}
	if !check.OK() {
		msgs := make([]string, len(check.Errors))
		for i, e := range check.Errors {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("scene invalid: %s: %w", strings.Join(msgs, "; "), kernel.ErrInvalidValue)
	}

	jobs := sc.Jobs()
	results := make([]Result, len(jobs))
	for i, j := range jobs {
		results[i].Job = j
	}

	queue := make(chan int, r.workers)
	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				r.runJob(sc, &results[i])
			}
		}()
	}

	scheduled := 0
schedule:
	for ; scheduled < len(jobs); scheduled++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break schedule
		case queue <- scheduled:
		}
	}
	close(queue)
	wg.Wait()

	if scheduled < len(jobs) {
		for i := scheduled; i < len(jobs); i++ {
			results[i].Err = ctx.Err()
		}
		logging.Warn("run cancelled: %d of %d jobs not started", len(jobs)-scheduled, len(jobs))
		return results, ctx.Err()
	}
	return results, nil
}

// runJob performs one dispatch and fills res.
func (r *Runner) runJob(sc *scene.Scene, res *Result) {
	log := logging.With("job", res.Job.Name)
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
	}()

	cfg, err := res.Job.Config(r.def)
	if err != nil {
		res.Err = err
		return
	}
	src, cut := sc.Mesh(res.Job.Source), sc.Mesh(res.Job.Cut)
	meshes, err := r.cutter.Cut(src, cut, cfg)
	if err != nil {
		res.Err = fmt.Errorf("job %s: %w", res.Job.Name, err)
		log.Error("cut failed", "err", err)
		return
	}
	res.Meshes = meshes
	log.Debug("cut done", "components", len(meshes), "elapsed", time.Since(start))
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
