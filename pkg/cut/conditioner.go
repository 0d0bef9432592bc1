package cut

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/logging"
	"golang.org/x/exp/rand"
)

// perturbBase is the first-attempt displacement, relative to the shortest
// edge at each vertex. Every further attempt scales it by perturbGrowth.
const (
	perturbBase   = 1e-7
	perturbGrowth = 4.0
	perturbSeed   = 0x6b657266
)

// solveConditioned runs the solve and, when allowed, retries with a
// perturbed cut mesh until the configuration is in general position.
func solveConditioned(src, cut polyMesh, cfg kernel.Config) (out *outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("solve panicked: %v: %w", r, kernel.ErrInvalidOperation)
		}
	}()

	out, err = solve(src, cut, cut.pos)
	if err == nil || !errors.Is(err, kernel.ErrGeneralPosition) {
		return out, wrapOperation(err)
	}
	if !cfg.EnforceGeneralPosition {
		return nil, fmt.Errorf("%w: %w", kernel.ErrInvalidOperation, err)
	}

	feature := shortestIncidentEdges(cut)
	for attempt := 1; attempt <= cfg.Attempts(); attempt++ {
		logging.Debug("general position attempt %d: %v", attempt, err)
		out, err = solve(src, cut, perturb(cut.pos, feature, attempt))
		if err == nil || !errors.Is(err, kernel.ErrGeneralPosition) {
			return out, wrapOperation(err)
		}
	}
	return nil, fmt.Errorf("still degenerate after %d perturbations: %w: %w",
		cfg.Attempts(), kernel.ErrInvalidOperation, err)
}

// wrapOperation tags solve failures that carry no status of their own.
func wrapOperation(err error) error {
	if err == nil || kernel.StatusOf(err) != kernel.StatusInvalidOperation || errors.Is(err, kernel.ErrInvalidOperation) {
		return err
	}
	return fmt.Errorf("%w: %w", kernel.ErrInvalidOperation, err)
}

// perturb moves every vertex by a pseudo-random direction. The source is
// seeded from the attempt number so the same input always gets the same
// displacements.
func perturb(pos []geom.Vec, feature []float64, attempt int) []geom.Vec {
	rng := rand.New(rand.NewSource(perturbSeed + uint64(attempt)))
	scale := perturbBase * math.Pow(perturbGrowth, float64(attempt-1))
	out := make([]geom.Vec, len(pos))
	for i, p := range pos {
		d := geom.V(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		if l := d.Len(); l > 0 {
			d = d.Mul(1 / l)
		}
		out[i] = p.Add(d.Mul(scale * feature[i]))
	}
	return out
}

// shortestIncidentEdges returns, for each vertex, the length of the
// shortest face edge touching it. Isolated vertices get the mesh's
// shortest edge, or 1 for a mesh without usable edges.
func shortestIncidentEdges(pm polyMesh) []float64 {
	out := make([]float64, len(pm.pos))
	for i := range out {
		out[i] = math.Inf(1)
	}
	global := math.Inf(1)
	for _, face := range pm.faces {
		for j := range face {
			a, b := face[j], face[(j+1)%len(face)]
			l := pm.pos[a].Sub(pm.pos[b]).Len()
			if l == 0 {
				continue
			}
			out[a] = math.Min(out[a], l)
			out[b] = math.Min(out[b], l)
			global = math.Min(global, l)
		}
	}
	if math.IsInf(global, 1) {
		global = 1
	}
	for i, l := range out {
		if math.IsInf(l, 1) {
			out[i] = global
		}
	}
	return out
}
