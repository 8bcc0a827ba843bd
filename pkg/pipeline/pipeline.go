package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

// Pipeline runs the selected stages of a Registry. A Pipeline runs once.
type Pipeline struct {
	registry    *Registry
	opts        []model.PipelineOption
	log         *zap.Logger
	runID       uuid.UUID
	checkInputs bool
	ran         bool
}

// StageReport is the outcome of one executed stage.
type StageReport struct {
	ID          int
	Name        string
	Duration    time.Duration
	Invocations int
	Err         error
}

// Report summarises a run. On failure it holds every stage that started, the failed one last.
type Report struct {
	RunID    uuid.UUID
	Stages   []StageReport
	Duration time.Duration
}

// Executed returns the IDs of the stages that started, in order.
func (r *Report) Executed() []int {
	ids := make([]int, 0, len(r.Stages))
	for _, s := range r.Stages {
		ids = append(ids, s.ID)
	}

	return ids
}

// New creates a new pipeline.
func New(registry *Registry, opts ...Option) (*Pipeline, error) {
	if registry == nil {
		return nil, ErrRegistryMustBeSet
	}

	pipe := &Pipeline{
		registry: registry,
		log:      zap.NewNop(),
		runID:    uuid.New(),
	}
	for _, opt := range opts {
		opt(pipe)
	}

	for _, opt := range pipe.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// RunID identifies the run in logs and reports.
func (p *Pipeline) RunID() uuid.UUID { return p.runID }

// Run executes the stages of req in ascending order and stops at the first error. Finish is
// called on every option even when a stage failed.
func (p *Pipeline) Run(ctx context.Context, env *Env, req Request) (*Report, error) {
	if p.ran {
		return nil, ErrAlreadyRun
	}
	p.ran = true

	if env == nil || env.Exec == nil || env.Config == nil {
		return nil, ErrEnvMustBeSet
	}

	stages, err := p.registry.Select(req)
	if err != nil {
		return nil, err
	}

	log := p.log.With(zap.String("run_id", p.runID.String()))
	report := &Report{RunID: p.runID}
	start := time.Now()

	infos, err := p.prepare(log, stages, req)
	if err != nil {
		return report, multierr.Append(err, p.finish())
	}

	for i, stage := range stages {
		sr, err := p.runStage(ctx, log, env, stage, infos[i])
		report.Stages = append(report.Stages, sr)
		if err != nil {
			report.Duration = time.Since(start)
			runErr := &StageError{ID: stage.ID, Name: stage.Name, Err: err}
			return report, multierr.Append(runErr, p.finish())
		}
	}
	report.Duration = time.Since(start)

	return report, p.finish()
}

// prepare announces the selection to the options and warns about dependencies that were not
// selected.
func (p *Pipeline) prepare(log *zap.Logger, stages []*Stage, req Request) ([]*model.StageInfo, error) {
	infos := make([]*model.StageInfo, 0, len(stages))
	previous := model.StartStage
	for _, stage := range stages {
		deps, err := p.registry.Dependencies(stage.ID)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if !req.Has(dep) {
				log.Warn("selected stage depends on a stage that will not run, its artifacts must already exist",
					zap.Int("stage", stage.ID), zap.String("stage_name", stage.Name), zap.Int("dependency", dep))
			}
		}

		info := &model.StageInfo{ID: stage.ID, Name: stage.Name, Dependencies: deps}
		for _, opt := range p.opts {
			if err := opt.PrepareStage(previous, info); err != nil {
				return nil, errors.Wrap(err, "unable to apply pipeline option")
			}
		}
		infos = append(infos, info)
		previous = info
	}

	return infos, nil
}

func (p *Pipeline) runStage(ctx context.Context, log *zap.Logger, env *Env, stage *Stage, info *model.StageInfo) (StageReport, error) {
	sr := StageReport{ID: stage.ID, Name: stage.Name}

	if err := ctx.Err(); err != nil {
		sr.Err = errors.Wrap(err, "run interrupted")
		return sr, sr.Err
	}

	for _, opt := range p.opts {
		if err := opt.OnStageStart(info); err != nil {
			sr.Err = errors.Wrap(err, "unable to apply pipeline option")
			return sr, sr.Err
		}
	}

	sc := &StageContext{
		Stage: stage,
		Env:   env,
		Log:   log.With(zap.Int("stage", stage.ID), zap.String("stage_name", stage.Name)),
		info:  info,
		opts:  p.opts,
	}

	start := time.Now()
	err := p.checkStageInputs(sc)
	if err == nil {
		sc.Log.Info("Stage started")
		err = stage.Handler(ctx, sc)
	}
	sr.Duration = time.Since(start)
	sr.Invocations = sc.invocations
	sr.Err = err

	for _, opt := range p.opts {
		if optErr := opt.OnStageDone(info, sr.Duration, err); optErr != nil && err == nil {
			err = errors.Wrap(optErr, "unable to apply pipeline option")
			sr.Err = err
		}
	}

	if err != nil {
		sc.Log.Error("Stage failed", zap.Duration("duration", sr.Duration), zap.String("error", err.Error()))
		return sr, err
	}
	sc.Log.Info("Stage finished", zap.Duration("duration", sr.Duration), zap.Int("invocations", sr.Invocations))

	return sr, nil
}

func (p *Pipeline) checkStageInputs(sc *StageContext) error {
	if !p.checkInputs {
		return nil
	}

	for _, kind := range sc.Stage.Requires {
		path, err := sc.Env.Paths.Lookup(kind)
		if err != nil {
			return err
		}
		ok, err := exists(path)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(ErrMissingArtifact, "%s (%s)", path, kind)
		}
	}

	return nil
}

func (p *Pipeline) finish() error {
	var err error
	for _, opt := range p.opts {
		if optErr := opt.Finish(); optErr != nil {
			err = multierr.Append(err, errors.Wrap(optErr, "unable to finish pipeline option"))
		}
	}

	return err
}
