package cut

import (
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
)

// cdt is a constrained triangulation of one input triangle in its 2D
// projection. Triangles are counter-clockwise; local vertex 0, 1, 2 are the
// input triangle's corners in their original order.
type cdt struct {
	pts   []geom.Vec2
	gid   []int // local -> global vertex id
	tris  [][3]int
	fixed map[[2]int]bool
}

func newCDT(p [3]geom.Vec2, g [3]int) *cdt {
	return &cdt{
		pts:   []geom.Vec2{p[0], p[1], p[2]},
		gid:   []int{g[0], g[1], g[2]},
		tris:  [][3]int{{0, 1, 2}},
		fixed: make(map[[2]int]bool),
	}
}

func (c *cdt) addPoint(p geom.Vec2, g int) int {
	c.pts = append(c.pts, p)
	c.gid = append(c.gid, g)
	return len(c.pts) - 1
}

func undirected(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// rotate returns t rotated so that it starts at vertex a.
func rotate(t [3]int, a int) [3]int {
	switch a {
	case t[1]:
		return [3]int{t[1], t[2], t[0]}
	case t[2]:
		return [3]int{t[2], t[0], t[1]}
	}
	return t
}

// findDirected returns the triangle containing the directed edge a->b.
func (c *cdt) findDirected(a, b int) int {
	for i, t := range c.tris {
		for k := 0; k < 3; k++ {
			if t[k] == a && t[(k+1)%3] == b {
				return i
			}
		}
	}
	return -1
}

func (c *cdt) hasEdge(a, b int) bool {
	return c.findDirected(a, b) >= 0 || c.findDirected(b, a) >= 0
}

func (c *cdt) orient(a, b, p int) int {
	return geom.Orient2D(c.pts[a], c.pts[b], c.pts[p])
}

// splitBoundary inserts p on the boundary edge a->b.
func (c *cdt) splitBoundary(a, b, p int) error {
	ti := c.findDirected(a, b)
	if ti < 0 {
		return fmt.Errorf("boundary edge %d-%d not found: %w", a, b, kernel.ErrInvalidOperation)
	}
	t := rotate(c.tris[ti], a)
	c.tris[ti] = [3]int{a, p, t[2]}
	c.tris = append(c.tris, [3]int{p, b, t[2]})
	return nil
}

// splitEdge inserts p on the interior edge shared by the triangle holding
// a->b and its neighbour.
func (c *cdt) splitEdge(ti, a, b, p int) error {
	nb := c.findDirected(b, a)
	if nb < 0 {
		return degenerate("interior point lands on the face boundary")
	}
	t := rotate(c.tris[ti], a)
	u := rotate(c.tris[nb], b)
	c.tris[ti] = [3]int{a, p, t[2]}
	c.tris = append(c.tris, [3]int{p, b, t[2]})
	c.tris[nb] = [3]int{b, p, u[2]}
	c.tris = append(c.tris, [3]int{p, a, u[2]})
	return nil
}

// insertInterior locates p and splits the triangle or edge it lies on.
func (c *cdt) insertInterior(p int) error {
	for ti, t := range c.tris {
		var o [3]int
		inside := true
		for k := 0; k < 3; k++ {
			o[k] = c.orient(t[k], t[(k+1)%3], p)
			if o[k] < 0 {
				inside = false
				break
			}
		}
		if !inside {
			continue
		}
		zeros := 0
		edge := -1
		for k, v := range o {
			if v == 0 {
				zeros++
				edge = k
			}
		}
		switch zeros {
		case 0:
			c.tris[ti] = [3]int{t[0], t[1], p}
			c.tris = append(c.tris, [3]int{t[1], t[2], p}, [3]int{t[2], t[0], p})
			return nil
		case 1:
			return c.splitEdge(ti, t[edge], t[(edge+1)%3], p)
		default:
			return degenerate("intersection point coincides with a vertex")
		}
	}
	return degenerate("intersection point falls outside its face")
}

// crosses reports whether edge x-y properly crosses segment u-w.
func (c *cdt) crosses(u, w, x, y int) bool {
	if x == u || x == w || y == u || y == w {
		return false
	}
	return c.orient(u, w, x)*c.orient(u, w, y) < 0 && c.orient(x, y, u)*c.orient(x, y, w) < 0
}

func between(a, b, p geom.Vec2) bool {
	d := b.Sub(a)
	t := d.Dot(p.Sub(a))
	return t > 0 && t < d.Dot(d)
}

// insertConstraint forces u-w to be an edge, flipping crossing edges away
// (Sloan's method).
func (c *cdt) insertConstraint(u, w int) error {
	if c.hasEdge(u, w) {
		c.fixed[undirected(u, w)] = true
		return nil
	}
	for x := range c.pts {
		if x != u && x != w && c.orient(u, w, x) == 0 && between(c.pts[u], c.pts[w], c.pts[x]) {
			return degenerate("vertex lies on an intersection segment")
		}
	}

	var queue [][2]int
	seen := make(map[[2]int]bool)
	for _, t := range c.tris {
		for k := 0; k < 3; k++ {
			e := undirected(t[k], t[(k+1)%3])
			if seen[e] {
				continue
			}
			seen[e] = true
			if c.crosses(u, w, e[0], e[1]) {
				if c.fixed[e] {
					return fmt.Errorf("intersection segments cross inside a face: %w", kernel.ErrInvalidOperation)
				}
				queue = append(queue, e)
			}
		}
	}
	if len(queue) == 0 {
		return degenerate("constraint %d-%d cannot be recovered", c.gid[u], c.gid[w])
	}

	limit := 64 + 16*len(c.tris)*len(c.tris)
	for iter := 0; len(queue) > 0; iter++ {
		if iter > limit {
			return fmt.Errorf("constraint recovery did not converge: %w", kernel.ErrInvalidOperation)
		}
		e := queue[0]
		queue = queue[1:]
		a, b := e[0], e[1]
		t1, t2 := c.findDirected(a, b), c.findDirected(b, a)
		if t1 < 0 || t2 < 0 {
			return fmt.Errorf("crossing edge %d-%d has a single face: %w", a, b, kernel.ErrInvalidOperation)
		}
		cv := rotate(c.tris[t1], a)[2]
		dv := rotate(c.tris[t2], b)[2]
		if c.orient(a, dv, cv) > 0 && c.orient(dv, b, cv) > 0 {
			c.tris[t1] = [3]int{a, dv, cv}
			c.tris[t2] = [3]int{dv, b, cv}
			if c.crosses(u, w, cv, dv) {
				queue = append(queue, undirected(cv, dv))
			}
		} else {
			queue = append(queue, e)
		}
	}
	if !c.hasEdge(u, w) {
		return fmt.Errorf("constraint %d-%d missing after recovery: %w", c.gid[u], c.gid[w], kernel.ErrInvalidOperation)
	}
	c.fixed[undirected(u, w)] = true
	return nil
}
