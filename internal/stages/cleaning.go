package stages

import (
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

func cleaningStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:       Cleaning,
		Name:     "cleaning",
		Requires: []artifact.Kind{artifact.Reads, artifact.Quals},
		Produces: []artifact.Kind{artifact.CleanReads, artifact.CleanReport, artifact.CleanQuals, artifact.CleanLog},
		Keys: []config.Key{
			config.KeySeqClean, config.KeyUniVecDB, config.KeyCln2Qual,
			config.KeyMinLen, config.KeySeqCores,
		},
		ExitPolicy: pipeline.ExitTolerated,
		Handler:    clean,
	}
}

func clean(ctx context.Context, sc *pipeline.StageContext) error {
	cfg := sc.Config()
	paths := sc.Paths()

	err := sc.Exec(ctx, "seqclean",
		cfg.Programs.SeqClean,
		paths.Path(artifact.Reads),
		"-r", paths.Path(artifact.CleanReport),
		"-l", strconv.Itoa(cfg.Variables.MinLen),
		"-o", paths.Path(artifact.CleanReads),
		"-c", strconv.Itoa(cfg.Variables.SeqCores),
		"-v", cfg.Programs.UniVecDB,
	)
	if err != nil {
		return err
	}

	err = sc.Exec(ctx, "cln2qual",
		cfg.Programs.Cln2Qual,
		paths.Path(artifact.CleanReport),
		paths.Path(artifact.Quals),
	)
	if err != nil {
		return err
	}

	raw := paths.Path(artifact.CleanQualsRaw)
	ok, err := sc.Exists(raw)
	if err != nil {
		return err
	}
	if !ok {
		sc.Log.Warn("Cleaned qualities were not written, nothing to rename", zap.String("path", raw))
		return nil
	}
	if err := os.Rename(raw, paths.Path(artifact.CleanQuals)); err != nil {
		return errors.Wrap(err, "unable to rename cleaned qualities")
	}

	return nil
}
