package kernel

import (
	"errors"
	"fmt"
)

// Status is the numeric result code reported by dispatch and
// materialization calls.
type Status int32

const (
	StatusSuccess          Status = 0
	StatusInvalidOperation Status = -(1 << 1)
	StatusInvalidValue     Status = -(1 << 2)
	StatusOutOfMemory      Status = -(1 << 3)
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidOperation:
		return "invalid operation"
	case StatusInvalidValue:
		return "invalid value"
	case StatusOutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

var (
	// ErrInvalidOperation means the engine could not complete an internal
	// step, or the call is not legal in the current lifecycle state.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidValue means malformed input: bad indices, conflicting
	// flags or a missing mesh.
	ErrInvalidValue = errors.New("invalid value")

	// ErrOutOfMemory means a buffer would exceed MaxElements.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrGeneralPosition marks a degenerate configuration found while
	// solving. It is always reported wrapped in ErrInvalidOperation.
	ErrGeneralPosition = errors.New("general position violation")
)

// MaxElements caps the number of elements in any single buffer.
const MaxElements = 1 << 28

// StatusOf maps an error returned by this module to its status code.
// A nil error is StatusSuccess; an unknown error is StatusInvalidOperation.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrOutOfMemory):
		return StatusOutOfMemory
	case errors.Is(err, ErrInvalidValue):
		return StatusInvalidValue
	default:
		return StatusInvalidOperation
	}
}

// checkSize fails with ErrOutOfMemory when n elements cannot be stored.
func checkSize(what string, n int) error {
	if n > MaxElements || n < 0 {
		return fmt.Errorf("%s: %d elements: %w", what, n, ErrOutOfMemory)
	}
	return nil
}
