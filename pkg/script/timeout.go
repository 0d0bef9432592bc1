package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/scene"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation outlives its deadline.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrSuperseded is returned when a newer Evaluate call started while
	// this one was running.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// outcome is what an evaluation goroutine hands back.
type outcome struct {
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// discard frees whatever an unwanted outcome allocated.
func (o outcome) discard() {
	if o.scene != nil {
		o.scene.Release()
	}
}

// latest reports whether gen is still the newest evaluation.
func (e *Engine) latest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await collects the outcome of evaluation gen from ch. Outcomes that are
// superseded or arrive after the deadline are released, never returned.
// ch must be buffered so the evaluating goroutine never blocks on send.
func (e *Engine) await(ctx context.Context, ch <-chan outcome, gen uint64) (*scene.Scene, []EvalError, error) {
	limit := e.timeout()
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	select {
	case o := <-ch:
		if !e.latest(gen) {
			o.discard()
			return nil, nil, ErrSuperseded
		}
		return o.scene, o.errors, o.err
	case <-ctx.Done():
		go func() {
			o := <-ch
			logging.Debug("discarding evaluation %d that finished after %s", gen, limit)
			o.discard()
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
		}
		return nil, nil, ctx.Err()
	}
}
