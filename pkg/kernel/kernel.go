// Package kernel defines the mesh values, dispatch configuration and status
// codes shared by every cutting backend. Implementations (the pure Go engine
// in pkg/cut, the native MCUT binding) sit behind the Cutter interface so
// callers can swap backends without changing the rest of the system.
package kernel

// MeshView is a borrowed, read-only view of a polygon mesh. Slices returned
// by a view must not be modified and are only valid while the owner keeps
// the mesh alive.
type MeshView interface {
	// Positions returns 3 coordinates per vertex.
	Positions() []float64
	// Indices returns the face vertex references, concatenated.
	Indices() []uint32
	// FaceSizes returns the vertex count of each face.
	FaceSizes() []uint32
}

// Cutter cuts a source mesh with a cut mesh and returns the selected
// connected components as owned meshes.
type Cutter interface {
	Cut(src, cut MeshView, cfg Config) ([]*Mesh, error)
}
