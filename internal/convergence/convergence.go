// Package convergence searches the minimum left clip offset for read extraction.
//
// The extractor is invoked repeatedly; each call suggests how many extra bases should be
// clipped at the current offset. The offset is accumulated until two consecutive calls
// agree that nothing more needs clipping.
package convergence

import (
	"context"

	"github.com/pkg/errors"
)

// DefaultMaxIterations bounds the loop when the caller does not.
const DefaultMaxIterations = 50

// stableRuns is the number of consecutive zero suggestions that ends the search.
const stableRuns = 2

var (
	// ErrNotConverged is returned when the iteration bound is reached first.
	ErrNotConverged = errors.New("clip offset did not converge")
	// ErrNegativeDelta is returned when the extractor suggests unclipping bases.
	ErrNegativeDelta = errors.New("extractor suggested a negative clip")
)

// Extractor runs one extraction at offset and returns the suggested extra clip.
type Extractor interface {
	Extract(ctx context.Context, offset int) (int, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, offset int) (int, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, offset int) (int, error) {
	return f(ctx, offset)
}

// State is the loop state. Iterations counts extractor invocations.
type State struct {
	Offset     int
	Stable     int
	Iterations int
}

// Converged reports whether the stop condition holds.
func (s State) Converged() bool {
	return s.Stable >= stableRuns
}

// step folds one suggestion into the state.
func (s State) step(delta int) State {
	s.Iterations++
	s.Offset += delta
	if delta == 0 {
		s.Stable++
	} else {
		s.Stable = 0
	}
	return s
}

// Converge drives ext until two consecutive zero suggestions occur at the same offset.
// maxIterations <= 0 selects DefaultMaxIterations. The returned State is meaningful on error
// too: it holds the last offset reached.
func Converge(ctx context.Context, ext Extractor, maxIterations int) (State, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	var state State
	for !state.Converged() {
		if state.Iterations >= maxIterations {
			return state, errors.Wrapf(ErrNotConverged, "offset %d after %d runs", state.Offset, state.Iterations)
		}
		if err := ctx.Err(); err != nil {
			return state, errors.Wrap(err, "clip search interrupted")
		}

		delta, err := ext.Extract(ctx, state.Offset)
		if err != nil {
			return state, errors.Wrapf(err, "extraction at offset %d", state.Offset)
		}
		if delta < 0 {
			return state, errors.Wrapf(ErrNegativeDelta, "%d at offset %d", delta, state.Offset)
		}

		state = state.step(delta)
	}

	return state, nil
}
