package kernel

import "fmt"

// ComponentType is the structural role of a connected component.
type ComponentType int

const (
	ComponentFragment ComponentType = iota // piece of the source mesh
	ComponentPatch                         // piece of the cut mesh
	ComponentSeam                          // input mesh with the cut path stitched in
	ComponentInput                         // unmodified input echoed back
)

func (t ComponentType) String() string {
	switch t {
	case ComponentFragment:
		return "fragment"
	case ComponentPatch:
		return "patch"
	case ComponentSeam:
		return "seam"
	case ComponentInput:
		return "input"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(t))
	}
}

// ComponentTypeMask selects component types in a query.
type ComponentTypeMask uint32

const (
	MaskFragment ComponentTypeMask = 1 << 0
	MaskPatch    ComponentTypeMask = 1 << 1
	MaskSeam     ComponentTypeMask = 1 << 2
	MaskInput    ComponentTypeMask = 1 << 3
	MaskAll                        = MaskFragment | MaskPatch | MaskSeam | MaskInput
)

// Has reports whether the mask selects t.
func (m ComponentTypeMask) Has(t ComponentType) bool {
	return m&(1<<uint(t)) != 0
}

// FragmentLocation says where a fragment lies relative to the cut surface.
type FragmentLocation int

const (
	LocationUndefined FragmentLocation = iota
	LocationAbove                      // on the side the cut normals point to
	LocationBelow
)

func (l FragmentLocation) String() string {
	switch l {
	case LocationAbove:
		return "above"
	case LocationBelow:
		return "below"
	default:
		return "undefined"
	}
}

// SealType says how the opening left by the cut was closed.
type SealType int

const (
	SealNone SealType = iota
	SealInside
	SealOutside
)

func (s SealType) String() string {
	switch s {
	case SealInside:
		return "inside"
	case SealOutside:
		return "outside"
	default:
		return "none"
	}
}

// PatchLocation says where a patch lies relative to the source mesh.
type PatchLocation int

const (
	PatchUndefined PatchLocation = iota
	PatchInside
	PatchOutside
)

func (p PatchLocation) String() string {
	switch p {
	case PatchInside:
		return "inside"
	case PatchOutside:
		return "outside"
	default:
		return "undefined"
	}
}

// Origin names the input a seam or echo component came from.
type Origin int

const (
	OriginSource Origin = iota
	OriginCut
)

func (o Origin) String() string {
	if o == OriginCut {
		return "cut"
	}
	return "source"
}
