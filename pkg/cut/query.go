package cut

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
)

// Query is a view of the components of one dispatch restricted to a set of
// component types. Indices are local to the query.
type Query struct {
	ctx   *Context
	mask  kernel.ComponentTypeMask
	index []int // positions in the context's component list
}

// Count returns how many components the query selects.
func (q *Query) Count() int {
	return len(q.index)
}

// Component returns the i-th selected component.
func (q *Query) Component(i int) (*Component, error) {
	if i < 0 || i >= len(q.index) {
		return nil, fmt.Errorf("query component %d out of range [0,%d): %w", i, len(q.index), kernel.ErrInvalidValue)
	}
	return q.ctx.Component(q.index[i])
}

// Materialize returns an owned mesh copy of the i-th selected component.
func (q *Query) Materialize(i int) (*kernel.Mesh, error) {
	comp, err := q.Component(i)
	if err != nil {
		return nil, err
	}
	return comp.Mesh()
}
