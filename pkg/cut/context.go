// Package cut is the pure Go cutting engine. A Context binds a source mesh
// and a cut mesh, dispatches the cut once and then hands out the connected
// components that survive the dispatch filters.
//
//	ctx := cut.NewContext()
//	defer ctx.Close()
//	ctx.BindSource(src)
//	ctx.BindCut(plane)
//	if err := ctx.Dispatch(kernel.DefaultConfig()); err != nil { ... }
//	for i := 0; i < ctx.Count(); i++ {
//		m, err := ctx.Materialize(i)
//		...
//	}
package cut

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/google/uuid"
)

type state int

const (
	stateUnbound state = iota
	stateBound
	stateDispatched
	stateDisposed
)

func (s state) String() string {
	switch s {
	case stateUnbound:
		return "unbound"
	case stateBound:
		return "bound"
	case stateDispatched:
		return "dispatched"
	default:
		return "disposed"
	}
}

// Context holds one cutting job. It is not meant for concurrent use; the
// mutex only keeps lifecycle misuse from racing.
type Context struct {
	mu    sync.Mutex
	ID    uuid.UUID
	state state

	src, cut kernel.MeshView
	cfg      kernel.Config

	parts []*part
	verts []geom.Vec
	nIn   int
	comps []*Component // materialized lazily, parallel to parts
}

// NewContext returns an unbound context.
func NewContext() *Context {
	return &Context{ID: uuid.New()}
}

// BindSource sets the mesh to be cut. The view is read at dispatch time.
func (c *Context) BindSource(v kernel.MeshView) error {
	return c.bind(&c.src, v, "source")
}

// BindCut sets the cutting surface.
func (c *Context) BindCut(v kernel.MeshView) error {
	return c.bind(&c.cut, v, "cut")
}

func (c *Context) bind(slot *kernel.MeshView, v kernel.MeshView, what string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state >= stateDispatched {
		return fmt.Errorf("bind %s: context is %s: %w", what, c.state, kernel.ErrInvalidOperation)
	}
	if v == nil {
		return fmt.Errorf("bind %s: nil mesh: %w", what, kernel.ErrInvalidValue)
	}
	if m, ok := v.(*kernel.Mesh); ok && (m == nil || m.Released()) {
		return fmt.Errorf("bind %s: nil or released mesh: %w", what, kernel.ErrInvalidValue)
	}
	*slot = v
	if c.src != nil && c.cut != nil {
		c.state = stateBound
	}
	return nil
}

// DispatchFlags decodes a flag bitset and dispatches with it.
func (c *Context) DispatchFlags(f kernel.Flags) error {
	cfg, err := kernel.NewConfig(f)
	if err != nil {
		return err
	}
	return c.Dispatch(cfg)
}

// Dispatch cuts the bound source with the bound cut mesh. A context
// dispatches at most once; a failed dispatch leaves it bound so the caller
// can rebind or retry with other flags.
func (c *Context) Dispatch(cfg kernel.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateUnbound:
		return fmt.Errorf("dispatch: source and cut mesh must both be bound: %w", kernel.ErrInvalidValue)
	case stateDispatched, stateDisposed:
		return fmt.Errorf("dispatch: context is %s: %w", c.state, kernel.ErrInvalidOperation)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	// Bound meshes may have been released since binding.
	if err := kernel.ValidateView(c.src); err != nil {
		return fmt.Errorf("dispatch: source mesh: %w", err)
	}
	if err := kernel.ValidateView(c.cut); err != nil {
		return fmt.Errorf("dispatch: cut mesh: %w", err)
	}

	start := time.Now()
	src, err := snapshot(c.src, cfg.Precision)
	if err != nil {
		return fmt.Errorf("dispatch: source mesh: %w", err)
	}
	cut, err := snapshot(c.cut, cfg.Precision)
	if err != nil {
		return fmt.Errorf("dispatch: cut mesh: %w", err)
	}
	out, err := solveConditioned(src, cut, cfg)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	c.cfg = cfg
	c.parts = out.selected(cfg)
	c.verts = out.verts
	c.nIn = out.nIn
	c.comps = make([]*Component, len(c.parts))
	c.state = stateDispatched
	logging.Debug("dispatch %s: %d components in %s", c.ID, len(c.parts), time.Since(start))
	return nil
}

// Count returns the number of components the dispatch kept.
func (c *Context) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.parts)
}

// Component returns component i, compacting it on first access.
func (c *Context) Component(i int) (*Component, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.component(i)
}

func (c *Context) component(i int) (*Component, error) {
	if c.state != stateDispatched {
		return nil, fmt.Errorf("component %d: context is %s: %w", i, c.state, kernel.ErrInvalidOperation)
	}
	if i < 0 || i >= len(c.parts) {
		return nil, fmt.Errorf("component %d out of range [0,%d): %w", i, len(c.parts), kernel.ErrInvalidValue)
	}
	if c.comps[i] == nil {
		comp, err := materialize(c.parts[i], c.verts, c.nIn, c.cfg)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		c.comps[i] = comp
	}
	return c.comps[i], nil
}

// Components returns every component in output order.
func (c *Context) Components() ([]*Component, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Component, 0, len(c.parts))
	for i := range c.parts {
		comp, err := c.component(i)
		if err != nil {
			return nil, err
		}
		out = append(out, comp)
	}
	return out, nil
}

// Materialize returns an owned mesh copy of component i.
func (c *Context) Materialize(i int) (*kernel.Mesh, error) {
	comp, err := c.Component(i)
	if err != nil {
		return nil, err
	}
	return comp.Mesh()
}

// Query returns the components whose type is selected by mask.
func (c *Context) Query(mask kernel.ComponentTypeMask) (*Query, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateDispatched {
		return nil, fmt.Errorf("query: context is %s: %w", c.state, kernel.ErrInvalidOperation)
	}
	q := &Query{ctx: c, mask: mask}
	for i, p := range c.parts {
		if mask.Has(p.typ) {
			q.index = append(q.index, i)
		}
	}
	return q, nil
}

// Release frees the buffers of the given components. Released components
// stay counted but can no longer be materialized.
func (c *Context) Release(ids ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		found := false
		for _, comp := range c.comps {
			if comp != nil && comp.ID == id {
				comp.release()
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("release: unknown component %s: %w", id, kernel.ErrInvalidValue)
		}
	}
	return nil
}

// Close releases every component and disposes the context. Closing twice
// is a no-op.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateDisposed {
		return nil
	}
	for _, comp := range c.comps {
		if comp != nil {
			comp.release()
		}
	}
	c.parts, c.comps, c.verts = nil, nil, nil
	c.src, c.cut = nil, nil
	c.state = stateDisposed
	return nil
}
