//go:build mcut

// Package native provides a CGo-based kernel.Cutter binding to the MCUT
// mesh cutting library (https://github.com/cutdigital/mcut). Dispatch
// flags are passed through unchanged; kernel.Flags uses MCUT's bit values.
//
// This package requires the MCUT C library to be installed.
// Build with: go build -tags=mcut
package native

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmcut

#include <stdlib.h>
#include <mcut/mcut.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/kerf/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Cutter = (*Kernel)(nil)

// session wraps an MCUT context. A finalizer releases it if Close was
// never called.
type session struct {
	ctx C.McContext
}

func newSession() (*session, error) {
	s := &session{}
	if err := statusError("create context", C.mcCreateContext(&s.ctx, C.McFlags(0))); err != nil {
		return nil, err
	}
	runtime.SetFinalizer(s, func(s *session) { s.close() })
	return s, nil
}

func (s *session) close() {
	if s.ctx == nil {
		return
	}
	C.mcReleaseConnectedComponents(s.ctx, 0, nil)
	C.mcReleaseContext(s.ctx)
	s.ctx = nil
}

// Kernel implements kernel.Cutter using libmcut.
type Kernel struct{}

// New creates a new Kernel.
func New() (*Kernel, error) {
	return &Kernel{}, nil
}

// Cut dispatches src against cut and copies every resulting connected
// component back into Go memory.
func (k *Kernel) Cut(src, cut kernel.MeshView, cfg kernel.Config) ([]*kernel.Mesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := kernel.ValidateView(src); err != nil {
		return nil, fmt.Errorf("source mesh: %w", err)
	}
	if err := kernel.ValidateView(cut); err != nil {
		return nil, fmt.Errorf("cut mesh: %w", err)
	}
	if len(src.FaceSizes()) == 0 || len(cut.FaceSizes()) == 0 {
		return nil, fmt.Errorf("dispatch: empty mesh: %w", kernel.ErrInvalidValue)
	}

	// Input precision is always double on this path.
	flags := cfg.Flags()&^kernel.VertexArrayFloat | kernel.VertexArrayDouble

	s, err := newSession()
	if err != nil {
		return nil, err
	}
	defer s.close()

	sp, si, sf := src.Positions(), src.Indices(), src.FaceSizes()
	cp, ci, cf := cut.Positions(), cut.Indices(), cut.FaceSizes()
	r := C.mcDispatch(s.ctx, C.McFlags(flags),
		unsafe.Pointer(&sp[0]), (*C.uint32_t)(unsafe.Pointer(&si[0])), (*C.uint32_t)(unsafe.Pointer(&sf[0])),
		C.uint32_t(len(sp)/3), C.uint32_t(len(sf)),
		unsafe.Pointer(&cp[0]), (*C.uint32_t)(unsafe.Pointer(&ci[0])), (*C.uint32_t)(unsafe.Pointer(&cf[0])),
		C.uint32_t(len(cp)/3), C.uint32_t(len(cf)),
	)
	if err := statusError("dispatch", r); err != nil {
		return nil, err
	}

	var n C.uint32_t
	r = C.mcGetConnectedComponents(s.ctx, C.MC_CONNECTED_COMPONENT_TYPE_ALL, 0, nil, &n)
	if err := statusError("count components", r); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	handles := (*C.McConnectedComponent)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.McConnectedComponent(nil)))))
	defer C.free(unsafe.Pointer(handles))
	r = C.mcGetConnectedComponents(s.ctx, C.MC_CONNECTED_COMPONENT_TYPE_ALL, n, handles, nil)
	if err := statusError("list components", r); err != nil {
		return nil, err
	}

	out := make([]*kernel.Mesh, 0, int(n))
	for i, cc := range unsafe.Slice(handles, int(n)) {
		m, err := s.component(cc, fmt.Sprintf("component-%d", i))
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// component copies the vertex, face and face-size arrays of one
// connected component.
func (s *session) component(cc C.McConnectedComponent, name string) (*kernel.Mesh, error) {
	positions, err := s.query(cc, C.MC_CONNECTED_COMPONENT_DATA_VERTEX_DOUBLE, 8)
	if err != nil {
		return nil, err
	}
	faces, err := s.query(cc, C.MC_CONNECTED_COMPONENT_DATA_FACE, 4)
	if err != nil {
		return nil, err
	}
	sizes, err := s.query(cc, C.MC_CONNECTED_COMPONENT_DATA_FACE_SIZE, 4)
	if err != nil {
		return nil, err
	}
	return kernel.FromBuffers(name,
		unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(positions))), len(positions)/8),
		unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(faces))), len(faces)/4),
		unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(sizes))), len(sizes)/4),
	)
}

// query reads one data array of a component into Go memory, aligned for
// elements of the given width.
func (s *session) query(cc C.McConnectedComponent, what C.McFlags, width int) ([]byte, error) {
	var nBytes C.McSize
	r := C.mcGetConnectedComponentData(s.ctx, cc, what, 0, nil, &nBytes)
	if err := statusError("query size", r); err != nil {
		return nil, err
	}
	if nBytes == 0 {
		return []byte{}, nil
	}
	if int(nBytes) > kernel.MaxElements*width {
		return nil, fmt.Errorf("component data of %d bytes: %w", int(nBytes), kernel.ErrOutOfMemory)
	}
	// Back the bytes with float64 storage so the buffer is 8-byte aligned.
	store := make([]float64, (int(nBytes)+7)/8)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&store[0])), int(nBytes))
	r = C.mcGetConnectedComponentData(s.ctx, cc, what, nBytes, unsafe.Pointer(&buf[0]), nil)
	if err := statusError("query data", r); err != nil {
		return nil, err
	}
	return buf, nil
}

func statusError(op string, r C.McResult) error {
	switch r {
	case C.MC_NO_ERROR:
		return nil
	case C.MC_INVALID_VALUE:
		return fmt.Errorf("mcut %s: %w", op, kernel.ErrInvalidValue)
	case C.MC_OUT_OF_MEMORY:
		return fmt.Errorf("mcut %s: %w", op, kernel.ErrOutOfMemory)
	default:
		return fmt.Errorf("mcut %s: result %d: %w", op, int(r), kernel.ErrInvalidOperation)
	}
}
