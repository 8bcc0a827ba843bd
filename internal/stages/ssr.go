package stages

import (
	"context"
	"strconv"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

func ssrDetectionStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:         SSRDetection,
		Name:       "ssr-detection",
		Requires:   []artifact.Kind{artifact.AssemblyUnpadded, artifact.AssemblyUnpaddedQual},
		Produces:   []artifact.Kind{artifact.SSR},
		Keys:       []config.Key{config.KeySSRFinder, config.KeyEtandem, config.KeyMinSSRQual},
		ExitPolicy: pipeline.ExitTolerated,
		Handler: func(ctx context.Context, sc *pipeline.StageContext) error {
			cfg := sc.Config()
			paths := sc.Paths()

			return sc.Exec(ctx, "ssrfinder",
				cfg.Programs.SSRFinder,
				paths.Path(artifact.AssemblyUnpadded),
				paths.Path(artifact.AssemblyUnpaddedQual),
				paths.Path(artifact.SSR),
				cfg.Programs.Etandem,
				strconv.Itoa(cfg.Variables.MinSSRQual),
			)
		},
	}
}
