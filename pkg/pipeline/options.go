package pipeline

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// CheckInputs makes every stage verify that its required artifacts exist before it starts.
// A missing artifact fails the run with ErrMissingArtifact. Off by default.
func CheckInputs(enabled bool) Option {
	return func(p *Pipeline) {
		p.checkInputs = enabled
	}
}

// WithRunID sets the identifier attached to every log line. A random one is used otherwise.
func WithRunID(id uuid.UUID) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// WithHooks registers pipeline options such as the drawer, the measure or the progress
// display.
func WithHooks(hooks ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, hooks...)
	}
}
