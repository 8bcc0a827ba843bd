package stages

import (
	"context"
	"strconv"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

func snpDiscoveryStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:       SNPDiscovery,
		Name:     "snp-discovery",
		Requires: []artifact.Kind{artifact.Alignment, artifact.AssemblyPadded},
		Produces: []artifact.Kind{artifact.BinaryAlignment, artifact.ConsensusTable, artifact.ShortConsensus},
		Keys: []config.Key{
			config.KeySAMToBAM, config.KeyBAMToTCS, config.KeyTCSFilter,
			config.KeyMinQual, config.KeyMinCov,
		},
		ExitPolicy: pipeline.ExitTolerated,
		Handler:    discoverSNPs,
	}
}

func discoverSNPs(ctx context.Context, sc *pipeline.StageContext) error {
	cfg := sc.Config()
	paths := sc.Paths()

	err := sc.Exec(ctx, "sam2bam",
		cfg.Programs.SAMToBAM,
		paths.Path(artifact.Alignment),
		paths.Path(artifact.BinaryAlignment),
	)
	if err != nil {
		return err
	}

	err = sc.Exec(ctx, "bam2tcs",
		cfg.Programs.BAMToTCS,
		paths.Path(artifact.BinaryAlignment),
		paths.Path(artifact.AssemblyPadded),
		paths.Path(artifact.ConsensusTable),
	)
	if err != nil {
		return err
	}

	return sc.Exec(ctx, "tcsfilter",
		cfg.Programs.TCSFilter,
		paths.Path(artifact.ConsensusTable),
		paths.Path(artifact.ShortConsensus),
		strconv.Itoa(cfg.Variables.MinQual),
		strconv.Itoa(cfg.Variables.MinCov),
	)
}

func snpExtractionStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:         SNPExtraction,
		Name:       "snp-extraction",
		Requires:   []artifact.Kind{artifact.ShortConsensus, artifact.AssemblyUnpadded},
		Produces:   []artifact.Kind{artifact.SNPs},
		Keys:       []config.Key{config.KeySNPGrabber, config.KeyMinQual},
		ExitPolicy: pipeline.ExitTolerated,
		Handler: func(ctx context.Context, sc *pipeline.StageContext) error {
			paths := sc.Paths()
			return sc.Exec(ctx, "snpgrabber",
				sc.Config().Programs.SNPGrabber,
				paths.Path(artifact.ShortConsensus),
				paths.Path(artifact.AssemblyUnpadded),
				paths.Path(artifact.SNPs),
				strconv.Itoa(sc.Config().Variables.MinQual),
			)
		},
	}
}
