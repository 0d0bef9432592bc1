//go:build !mcut

// Package native provides a CGo-based kernel.Cutter binding to the MCUT
// library. When the "mcut" build tag is not set, this stub package is
// compiled instead, returning an error from New().
//
// Build with: go build -tags=mcut
package native

import (
	"errors"

	"github.com/chazu/kerf/pkg/kernel"
)

// Kernel is unavailable without the mcut build tag.
type Kernel struct{}

// Cut always fails in the stub build.
func (k *Kernel) Cut(src, cut kernel.MeshView, cfg kernel.Config) ([]*kernel.Mesh, error) {
	return nil, errUnavailable
}

var errUnavailable = errors.New("native mcut kernel not available: build with -tags=mcut")

// New returns an error indicating libmcut is not available.
// Build with -tags=mcut to enable.
func New() (*Kernel, error) {
	return nil, errUnavailable
}
