package cut

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Cutter = (*Engine)(nil)

// Engine is the pure Go kernel.Cutter.
type Engine struct{}

// NewEngine returns the pure Go cutter.
func NewEngine() *Engine {
	return &Engine{}
}

// Cut runs one context to completion and returns owned meshes for every
// selected component, in output order.
func (e *Engine) Cut(src, cut kernel.MeshView, cfg kernel.Config) ([]*kernel.Mesh, error) {
	ctx := NewContext()
	defer ctx.Close()

	if err := ctx.BindSource(src); err != nil {
		return nil, err
	}
	if err := ctx.BindCut(cut); err != nil {
		return nil, err
	}
	if err := ctx.Dispatch(cfg); err != nil {
		return nil, err
	}
	out := make([]*kernel.Mesh, 0, ctx.Count())
	for i := 0; i < ctx.Count(); i++ {
		m, err := ctx.Materialize(i)
		if err != nil {
			return nil, fmt.Errorf("materialize component %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}
