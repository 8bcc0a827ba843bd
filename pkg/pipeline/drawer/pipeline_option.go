package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/seqpipe/pkg/pipeline/measure"
	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

type pipelineDrawer struct {
	model.NoopOption
	Drawer
	m         measure.Measure
	startTime time.Time
	last      *model.StageInfo
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStage(model.StartStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}
	err = pd.AddStage(model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}
	pd.last = model.StartStage
	pd.startTime = time.Now()

	return nil
}

func (pd *pipelineDrawer) PrepareStage(previous, stage *model.StageInfo) error {
	err := pd.AddStage(stage.Label())
	if err != nil {
		return err
	}
	err = pd.AddLink(previous.Label(), stage.Label())
	if err != nil {
		return err
	}
	pd.last = stage

	return pd.SetStatus(stage.Label(), model.StatusPending)
}

func (pd *pipelineDrawer) OnStageStart(stage *model.StageInfo) error {
	return pd.SetStatus(stage.Label(), model.StatusRunning)
}

func (pd *pipelineDrawer) OnStageDone(stage *model.StageInfo, duration time.Duration, err error) error {
	status := model.StatusSucceeded
	if err != nil {
		status = model.StatusFailed
	}
	if err := pd.SetStatus(stage.Label(), status); err != nil {
		return err
	}

	return pd.SetDuration(stage.Label(), duration)
}

func (pd *pipelineDrawer) Finish() error {
	err := pd.AddLink(pd.last.Label(), model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to link end stage")
	}
	err = pd.SetDuration(model.EndStage.Name, time.Since(pd.startTime))
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the selected stages in execution order, coloured by outcome. measure
// may be nil; when set it must also be registered with measure.PipelineMeasure.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}
