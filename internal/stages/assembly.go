package stages

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

func assemblyStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:       Assembly,
		Name:     "assembly",
		Requires: []artifact.Kind{artifact.CleanReads},
		Produces: []artifact.Kind{
			artifact.Manifest, artifact.AssemblyDir, artifact.AssemblyMAF, artifact.AssemblyPadded,
			artifact.AssemblyUnpadded, artifact.AssemblyUnpaddedQual, artifact.AssemblyInfo,
			artifact.Alignment,
		},
		Keys: []config.Key{
			config.KeyMira, config.KeyMiraConvert, config.KeySeqCores,
			config.KeyMiraJob, config.KeyMiraCommon, config.KeyMira454,
			config.KeyMiraReadGroup, config.KeyMiraTech,
		},
		ExitPolicy: pipeline.ExitTolerated,
		Handler:    assemble,
	}
}

// Manifest renders the assembler project file for paths. The parameter blocks are copied
// verbatim from the configuration.
func Manifest(cfg *config.Config, paths artifact.Paths) string {
	name := paths.Name()

	var b strings.Builder
	b.WriteString("project = " + name + "\n")
	b.WriteString(cfg.Mira.Job + "\n")
	b.WriteString(cfg.Mira.Common + " -GE:not=" + strconv.Itoa(cfg.Variables.SeqCores) + " \\\n")
	b.WriteString(cfg.Mira.Tech454 + "\n\n")
	b.WriteString(cfg.Mira.ReadGroup + "\n")
	b.WriteString(cfg.Mira.Tech + "\n")
	b.WriteString("data = " + name + suffixOf(paths, artifact.CleanReads) + "\n")

	return b.String()
}

// suffixOf is the part of the artifact path after the base path.
func suffixOf(paths artifact.Paths, kind artifact.Kind) string {
	return strings.TrimPrefix(paths.Path(kind), paths.Base())
}

func assemble(ctx context.Context, sc *pipeline.StageContext) error {
	cfg := sc.Config()
	paths := sc.Paths()

	manifest := paths.Path(artifact.Manifest)
	if err := os.WriteFile(manifest, []byte(Manifest(cfg, paths)), 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, "unable to write assembler manifest")
	}

	err := sc.Exec(ctx, "mira", cfg.Programs.Mira, manifest)
	if err != nil {
		return err
	}

	return sc.Exec(ctx, "miraconvert",
		cfg.Programs.MiraConvert,
		"-f", "maf", "-t", "sam",
		paths.Path(artifact.AssemblyMAF),
		paths.Path(artifact.Alignment),
	)
}
