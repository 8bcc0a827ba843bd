package pipeline

import (
	"context"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/process"
)

// ExitPolicy says what a non-zero exit of an external program means for a stage.
type ExitPolicy int

const (
	// ExitTolerated logs a warning and lets the stage continue. The tool's own output is the
	// diagnostic.
	ExitTolerated ExitPolicy = iota
	// ExitFatal fails the stage with ErrToolFailed.
	ExitFatal
)

func (p ExitPolicy) String() string {
	if p == ExitFatal {
		return "fatal"
	}
	return "tolerated"
}

// Handler does the work of one stage.
type Handler func(ctx context.Context, sc *StageContext) error

// Stage declares one step of the pipeline.
type Stage struct {
	ID   int
	Name string
	// Requires lists the artifacts the stage cannot run without.
	Requires []artifact.Kind
	// Uses lists artifacts the stage picks up when they exist and skips otherwise.
	Uses []artifact.Kind
	// Produces lists the artifacts the stage writes.
	Produces []artifact.Kind
	// Keys lists every configuration entry the handler reads.
	Keys       []config.Key
	ExitPolicy ExitPolicy
	Handler    Handler
}

// Executor runs one external program. *process.Runner implements it.
type Executor interface {
	Run(ctx context.Context, cmd process.Command, capture bool) (*process.Result, error)
}

var _ Executor = (*process.Runner)(nil)

// Env is what every stage of a run shares. It is read-only during the run.
type Env struct {
	// Input is the source reads file handed to the first stage.
	Input  string
	Paths  artifact.Paths
	Config *config.Config
	Exec   Executor
}
