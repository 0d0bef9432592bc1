package kernel

import (
	"fmt"
	"sort"
	"strings"
)

// Flags is the dispatch bitset. Bit values match the MCUT C API so a Flags
// value can be handed to the native binding unchanged.
type Flags uint32

const (
	VertexArrayFloat             Flags = 1 << 0
	VertexArrayDouble            Flags = 1 << 1
	RequireThroughCuts           Flags = 1 << 2
	IncludeVertexMap             Flags = 1 << 3
	IncludeFaceMap               Flags = 1 << 4
	FilterFragmentLocationAbove  Flags = 1 << 5
	FilterFragmentLocationBelow  Flags = 1 << 6
	FilterFragmentLocationUndef  Flags = 1 << 7
	FilterFragmentSealingInside  Flags = 1 << 8
	FilterFragmentSealingOutside Flags = 1 << 9
	FilterFragmentSealingNone    Flags = 1 << 10
	FilterPatchInside            Flags = 1 << 11
	FilterPatchOutside           Flags = 1 << 12
	FilterSeamSource             Flags = 1 << 13
	FilterSeamCut                Flags = 1 << 14
	EnforceGeneralPosition       Flags = 1 << 15

	FilterAll = FilterFragmentLocationAbove | FilterFragmentLocationBelow |
		FilterFragmentLocationUndef | FilterFragmentSealingInside |
		FilterFragmentSealingOutside | FilterFragmentSealingNone |
		FilterPatchInside | FilterPatchOutside | FilterSeamSource | FilterSeamCut

	allFlags = VertexArrayFloat | VertexArrayDouble | RequireThroughCuts |
		IncludeVertexMap | IncludeFaceMap | FilterAll | EnforceGeneralPosition
)

// flagNames maps the kebab-case spelling used by scripts, the CLI and
// config files to each bit.
var flagNames = map[string]Flags{
	"vertex-array-float":                 VertexArrayFloat,
	"vertex-array-double":                VertexArrayDouble,
	"require-through-cuts":               RequireThroughCuts,
	"include-vertex-map":                 IncludeVertexMap,
	"include-face-map":                   IncludeFaceMap,
	"filter-fragment-location-above":     FilterFragmentLocationAbove,
	"filter-fragment-location-below":     FilterFragmentLocationBelow,
	"filter-fragment-location-undefined": FilterFragmentLocationUndef,
	"filter-fragment-sealing-inside":     FilterFragmentSealingInside,
	"filter-fragment-sealing-outside":    FilterFragmentSealingOutside,
	"filter-fragment-sealing-none":       FilterFragmentSealingNone,
	"filter-patch-inside":                FilterPatchInside,
	"filter-patch-outside":               FilterPatchOutside,
	"filter-seam-source":                 FilterSeamSource,
	"filter-seam-cut":                    FilterSeamCut,
	"enforce-general-position":           EnforceGeneralPosition,
	"filter-all":                         FilterAll,
}

// ParseFlags ORs together flags given by name. Names are case-insensitive
// and accept either hyphens or underscores.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, n := range names {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(n)), "_", "-")
		if key == "" {
			continue
		}
		bit, ok := flagNames[key]
		if !ok {
			return 0, fmt.Errorf("unknown dispatch flag %q: %w", n, ErrInvalidValue)
		}
		f |= bit
	}
	return f, nil
}

// Names returns the names of the single bits set in f, sorted.
func (f Flags) Names() []string {
	var out []string
	for name, bit := range flagNames {
		if bit != FilterAll && f&bit != 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (f Flags) String() string {
	return strings.Join(f.Names(), "|")
}

// Precision selects the numeric precision of the input vertex arrays.
type Precision int

const (
	PrecisionFloat64 Precision = iota
	PrecisionFloat32
)

func (p Precision) String() string {
	switch p {
	case PrecisionFloat32:
		return "float32"
	case PrecisionFloat64:
		return "float64"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// Filter selects which connected components a dispatch keeps. The result
// is the union of everything selected; an all-false filter keeps nothing.
type Filter struct {
	// Location and sealing bits narrow fragments independently: a
	// fragment is kept when its location is selected (or no location bit
	// is set) and its sealing state is selected (or no sealing bit is
	// set). With neither kind set no fragment is kept.
	Above, Below, Undefined           bool
	SealInside, SealOutside, SealNone bool

	PatchInside, PatchOutside bool
	SeamSource, SeamCut       bool
}

// Empty reports whether no component kind is selected.
func (f Filter) Empty() bool {
	return f == Filter{}
}

// AnyFragment reports whether any fragment bit is set.
func (f Filter) AnyFragment() bool {
	return f.Above || f.Below || f.Undefined || f.SealInside || f.SealOutside || f.SealNone
}

// AnyLocation reports whether any fragment location bit is set.
func (f Filter) AnyLocation() bool {
	return f.Above || f.Below || f.Undefined
}

// AnySealing reports whether any fragment sealing bit is set.
func (f Filter) AnySealing() bool {
	return f.SealInside || f.SealOutside || f.SealNone
}

// AnyPatch reports whether any patch bit is set.
func (f Filter) AnyPatch() bool {
	return f.PatchInside || f.PatchOutside
}

// DefaultMaxPerturbAttempts bounds the number of general-position retries.
const DefaultMaxPerturbAttempts = 8

// Config is the validated form of a dispatch request.
type Config struct {
	Precision              Precision
	RequireThroughCuts     bool
	IncludeVertexMap       bool
	IncludeFaceMap         bool
	Filter                 Filter
	EnforceGeneralPosition bool

	// MaxPerturbAttempts bounds the retries made when
	// EnforceGeneralPosition is set. Zero means the default.
	MaxPerturbAttempts int
}

// DefaultConfig keeps unsealed fragments above and below the cut, with
// double-precision input.
func DefaultConfig() Config {
	return Config{
		Precision: PrecisionFloat64,
		Filter: Filter{
			Above:    true,
			Below:    true,
			SealNone: true,
		},
	}
}

// NewConfig decodes and validates a flag bitset.
func NewConfig(f Flags) (Config, error) {
	if f&^allFlags != 0 {
		return Config{}, fmt.Errorf("unknown flag bits %#x: %w", uint32(f&^allFlags), ErrInvalidValue)
	}
	var c Config
	switch {
	case f&VertexArrayFloat != 0 && f&VertexArrayDouble != 0:
		return Config{}, fmt.Errorf("both float and double vertex arrays requested: %w", ErrInvalidValue)
	case f&VertexArrayFloat != 0:
		c.Precision = PrecisionFloat32
	case f&VertexArrayDouble != 0:
		c.Precision = PrecisionFloat64
	default:
		return Config{}, fmt.Errorf("no vertex array precision flag set: %w", ErrInvalidValue)
	}
	c.RequireThroughCuts = f&RequireThroughCuts != 0
	c.IncludeVertexMap = f&IncludeVertexMap != 0
	c.IncludeFaceMap = f&IncludeFaceMap != 0
	c.EnforceGeneralPosition = f&EnforceGeneralPosition != 0
	c.Filter = Filter{
		Above:        f&FilterFragmentLocationAbove != 0,
		Below:        f&FilterFragmentLocationBelow != 0,
		Undefined:    f&FilterFragmentLocationUndef != 0,
		SealInside:   f&FilterFragmentSealingInside != 0,
		SealOutside:  f&FilterFragmentSealingOutside != 0,
		SealNone:     f&FilterFragmentSealingNone != 0,
		PatchInside:  f&FilterPatchInside != 0,
		PatchOutside: f&FilterPatchOutside != 0,
		SeamSource:   f&FilterSeamSource != 0,
		SeamCut:      f&FilterSeamCut != 0,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ParseConfig builds a validated configuration from flag names. Double
// precision is assumed when neither precision flag is named.
func ParseConfig(names []string) (Config, error) {
	f, err := ParseFlags(names)
	if err != nil {
		return Config{}, err
	}
	if f&(VertexArrayFloat|VertexArrayDouble) == 0 {
		f |= VertexArrayDouble
	}
	return NewConfig(f)
}

// Validate rejects configurations that cannot be dispatched.
func (c Config) Validate() error {
	if c.Precision != PrecisionFloat32 && c.Precision != PrecisionFloat64 {
		return fmt.Errorf("unknown precision %v: %w", c.Precision, ErrInvalidValue)
	}
	if c.RequireThroughCuts && c.Filter.Undefined {
		return fmt.Errorf("require-through-cuts conflicts with filter-fragment-location-undefined: %w", ErrInvalidValue)
	}
	if c.MaxPerturbAttempts < 0 {
		return fmt.Errorf("negative perturbation attempts %d: %w", c.MaxPerturbAttempts, ErrInvalidValue)
	}
	return nil
}

// Attempts returns the effective perturbation retry bound.
func (c Config) Attempts() int {
	if c.MaxPerturbAttempts == 0 {
		return DefaultMaxPerturbAttempts
	}
	return c.MaxPerturbAttempts
}

// Flags encodes the configuration back into a bitset.
func (c Config) Flags() Flags {
	var f Flags
	if c.Precision == PrecisionFloat32 {
		f |= VertexArrayFloat
	} else {
		f |= VertexArrayDouble
	}
	set := func(on bool, bit Flags) {
		if on {
			f |= bit
		}
	}
	set(c.RequireThroughCuts, RequireThroughCuts)
	set(c.IncludeVertexMap, IncludeVertexMap)
	set(c.IncludeFaceMap, IncludeFaceMap)
	set(c.EnforceGeneralPosition, EnforceGeneralPosition)
	set(c.Filter.Above, FilterFragmentLocationAbove)
	set(c.Filter.Below, FilterFragmentLocationBelow)
	set(c.Filter.Undefined, FilterFragmentLocationUndef)
	set(c.Filter.SealInside, FilterFragmentSealingInside)
	set(c.Filter.SealOutside, FilterFragmentSealingOutside)
	set(c.Filter.SealNone, FilterFragmentSealingNone)
	set(c.Filter.PatchInside, FilterPatchInside)
	set(c.Filter.PatchOutside, FilterPatchOutside)
	set(c.Filter.SeamSource, FilterSeamSource)
	set(c.Filter.SeamCut, FilterSeamCut)
	return f
}
