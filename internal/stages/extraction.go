package stages

import (
	"context"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/convergence"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

// extraClipPattern matches the extractor's suggestion, e.g. "extra clip: 4" or "extra_clip=4".
// The sign is kept so that a negative suggestion reaches the convergence guard.
var extraClipPattern = regexp.MustCompile(`(?i)extra[ _-]?clip[^\d-]{0,3}(-?\d+)`)

// ParseExtraClip returns the last clip suggestion found in the extractor output. No suggestion
// means the extractor is satisfied with the current clip.
func ParseExtraClip(lines []string) (int, error) {
	delta := 0
	for _, line := range lines {
		m := extraClipPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, errors.Wrapf(err, "unable to read clip suggestion %q", line)
		}
		delta = n
	}

	return delta, nil
}

// extractor runs the read extractor once per clip offset.
type extractor struct {
	sc *pipeline.StageContext
}

func (e *extractor) argv(offset int) []string {
	cfg := e.sc.Config()
	paths := e.sc.Paths()

	return []string{
		cfg.Programs.Extractor,
		"-c", "-m",
		"--min_left_clip=" + strconv.Itoa(offset),
		"--min_frequency=" + strconv.Itoa(cfg.Variables.MaxEquality),
		"-s", paths.Path(artifact.Reads),
		"-q", paths.Path(artifact.Quals),
		"-x", paths.Path(artifact.ReadsXML),
		e.sc.Env.Input,
	}
}

func (e *extractor) Extract(ctx context.Context, offset int) (int, error) {
	res, err := e.sc.Capture(ctx, "sff_extract", e.argv(offset)...)
	if err != nil {
		return 0, err
	}

	delta, err := ParseExtraClip(res.Lines)
	if err != nil {
		return 0, err
	}
	e.sc.Log.Debug("Clip suggestion", zap.Int("offset", offset), zap.Int("extra_clip", delta))

	return delta, nil
}

var _ convergence.Extractor = (*extractor)(nil)

func extractionStage(settings Settings) *pipeline.Stage {
	return &pipeline.Stage{
		ID:         Extraction,
		Name:       "extraction",
		Produces:   []artifact.Kind{artifact.Reads, artifact.Quals, artifact.ReadsXML},
		Keys:       []config.Key{config.KeyExtractor, config.KeyMaxEquality},
		ExitPolicy: pipeline.ExitFatal,
		Handler: func(ctx context.Context, sc *pipeline.StageContext) error {
			ok, err := sc.Exists(sc.Env.Input)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(pipeline.ErrMissingArtifact, "input file %s", sc.Env.Input)
			}

			state, err := convergence.Converge(ctx, &extractor{sc: sc}, settings.MaxClipIterations)
			if err != nil {
				return errors.Wrap(err, "unable to find the minimum left clip")
			}
			sc.Log.Info("Extraction finished",
				zap.Int("min_left_clip", state.Offset), zap.Int("iterations", state.Iterations))

			return nil
		},
	}
}
