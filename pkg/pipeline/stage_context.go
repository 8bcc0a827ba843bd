package pipeline

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/process"
	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

// StageContext is handed to a stage handler. It carries the shared environment, a logger
// scoped to the stage, and runs external programs under the stage's exit policy.
type StageContext struct {
	Stage *Stage
	Env   *Env
	Log   *zap.Logger

	info        *model.StageInfo
	opts        []model.PipelineOption
	invocations int
}

// Paths is a shortcut for sc.Env.Paths.
func (sc *StageContext) Paths() artifact.Paths { return sc.Env.Paths }

// Config is a shortcut for sc.Env.Config.
func (sc *StageContext) Config() *config.Config { return sc.Env.Config }

// Exec runs argv in the artifact directory and streams its output. The program's exit status
// is handled by the stage's ExitPolicy.
func (sc *StageContext) Exec(ctx context.Context, tool string, argv ...string) error {
	_, err := sc.run(ctx, tool, argv, false)
	return err
}

// Capture runs argv like Exec and also returns the output lines.
func (sc *StageContext) Capture(ctx context.Context, tool string, argv ...string) (*process.Result, error) {
	return sc.run(ctx, tool, argv, true)
}

func (sc *StageContext) run(ctx context.Context, tool string, argv []string, capture bool) (*process.Result, error) {
	cmd := process.Command{Argv: argv, Dir: sc.Env.Paths.Dir()}
	sc.Log.Info("Running "+tool+" using the following command", zap.String("command", cmd.String()))

	res, err := sc.Env.Exec.Run(ctx, cmd, capture)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to run %s", tool)
	}
	sc.invocations++

	inv := model.Invocation{
		Tool:     tool,
		Command:  cmd.String(),
		ExitCode: res.ExitCode,
		Success:  res.Success(),
		Duration: res.Duration,
	}
	for _, opt := range sc.opts {
		if err := opt.OnStageOutput(sc.info, inv); err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	if res.Success() {
		return res, nil
	}
	if sc.Stage.ExitPolicy == ExitFatal {
		return res, errors.Wrapf(ErrToolFailed, "%s exited with status %d", tool, res.ExitCode)
	}
	sc.Log.Warn(tool+" exited with a non-zero status, continuing", zap.Int("exit_code", res.ExitCode))

	return res, nil
}

// Exists reports whether the artifact path exists. Only "does not exist" counts as absent; any
// other stat failure is returned.
func (sc *StageContext) Exists(path string) (bool, error) {
	return exists(path)
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, errors.Wrapf(err, "unable to stat %s", path)
	}
}
