package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStageOption

	// Finish runs after the pipeline is finished, whether it succeeded or not.
	Finish() error
}

// pipelineStageOption defines the interface for stage options at the pipeline level.
type pipelineStageOption interface {
	// PrepareStage runs for every selected stage before the first one starts, in execution
	// order. previous is StartStage for the first stage.
	PrepareStage(previous, stage *StageInfo) error
	// OnStageStart runs right before the stage handler.
	OnStageStart(stage *StageInfo) error
	// OnStageOutput runs every time the stage finishes running an external program.
	OnStageOutput(stage *StageInfo, invocation Invocation) error
	// OnStageDone runs after the stage handler returned. err is the handler error.
	OnStageDone(stage *StageInfo, duration time.Duration, err error) error
}

// NoopOption implements every hook as a no-op. Options embed it and override what they need.
type NoopOption struct{}

func (NoopOption) New() error { return nil }
func (NoopOption) PrepareStage(_, _ *StageInfo) error { return nil }
func (NoopOption) OnStageStart(*StageInfo) error { return nil }
func (NoopOption) OnStageOutput(*StageInfo, Invocation) error { return nil }
func (NoopOption) OnStageDone(*StageInfo, time.Duration, error) error { return nil }
func (NoopOption) Finish() error { return nil }

var _ PipelineOption = NoopOption{}
