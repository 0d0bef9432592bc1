// Package scene holds the product of a cut script: a set of named input
// meshes and the cut jobs to run over them. A Scene is built once by the
// script evaluator (or by hand in tests) and then handed to the runner; it
// is not modified after that.
package scene

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
)

// Job asks for one dispatch: Source cut by Cut with the given flags.
type Job struct {
	Name   string
	Source string // mesh name
	Cut    string // mesh name

	// Flags are kernel flag names. An empty list means the caller's
	// default configuration.
	Flags []string

	// Line is the script line that declared the job, zero if unknown.
	Line int
}

// Config resolves the job's flags, falling back to def when none are set.
func (j Job) Config(def kernel.Config) (kernel.Config, error) {
	if len(j.Flags) == 0 {
		return def, nil
	}
	c, err := kernel.ParseConfig(j.Flags)
	if err != nil {
		return kernel.Config{}, fmt.Errorf("job %s: %w", j.Name, err)
	}
	return c, nil
}

// Scene is an ordered collection of meshes and jobs.
type Scene struct {
	meshes []*kernel.Mesh
	jobs   []Job
}

// New creates an empty Scene.
func New() *Scene {
	return &Scene{}
}

// AddMesh appends a mesh. It does not check for duplicate names; Validate
// reports them.
func (s *Scene) AddMesh(m *kernel.Mesh) {
	s.meshes = append(s.meshes, m)
}

// AddJob appends a job. Duplicates are reported by Validate.
func (s *Scene) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// Mesh returns the first mesh with the given name, or nil.
func (s *Scene) Mesh(name string) *kernel.Mesh {
	for _, m := range s.meshes {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Meshes returns the meshes in the order they were added.
func (s *Scene) Meshes() []*kernel.Mesh {
	return s.meshes
}

// Jobs returns the jobs in the order they were added.
func (s *Scene) Jobs() []Job {
	return s.jobs
}

// Job returns the job with the given name.
func (s *Scene) Job(name string) (Job, bool) {
	for _, j := range s.jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// MeshCount returns the number of meshes.
func (s *Scene) MeshCount() int {
	return len(s.meshes)
}

// JobCount returns the number of jobs.
func (s *Scene) JobCount() int {
	return len(s.jobs)
}

// Release frees every mesh in the scene.
func (s *Scene) Release() {
	for _, m := range s.meshes {
		m.Release()
	}
}
