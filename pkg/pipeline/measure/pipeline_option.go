package measure

import (
	"time"

	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

type pipelineMeasure struct {
	model.NoopOption
	Measure
	start time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStage.Name)
	pm.AddMetric(model.EndStage.Name)
	pm.start = time.Now()

	return nil
}

func (pm *pipelineMeasure) PrepareStage(_, stage *model.StageInfo) error {
	pm.AddMetric(stage.Label())

	return nil
}

func (pm *pipelineMeasure) OnStageOutput(stage *model.StageInfo, inv model.Invocation) error {
	pm.GetMetric(stage.Label()).AddInvocation(inv.Tool, inv.Duration)

	return nil
}

func (pm *pipelineMeasure) OnStageDone(stage *model.StageInfo, duration time.Duration, err error) error {
	mt := pm.GetMetric(stage.Label())
	mt.SetTotalDuration(duration)
	mt.SetFailed(err != nil)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.GetMetric(model.EndStage.Name).SetTotalDuration(time.Since(pm.start))

	return nil
}

// PipelineMeasure records stage and program timings into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
