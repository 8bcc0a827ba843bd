package stages

import (
	"context"
	"strconv"
	"strings"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

// BlastFormat selects the report format of a BLAST run.
type BlastFormat int

const (
	BlastHTML BlastFormat = iota
	BlastXML
)

// legacyBlastSuffix marks a configured BLAST path as the legacy blastall-style binary.
const legacyBlastSuffix = "blast2"

// BlastArgs builds the blastx command line. A BLAST path ending in "blast2" gets the legacy
// flags, anything else the BLAST+ ones.
func BlastArgs(cfg *config.Config, query, out string, format BlastFormat) []string {
	cores := strconv.Itoa(cfg.Variables.SeqCores)

	if strings.HasSuffix(cfg.Programs.Blast, legacyBlastSuffix) {
		argv := []string{cfg.Programs.Blast, "-p", "blastx", "-d", cfg.Programs.BlastDB, "-i", query}
		if format == BlastXML {
			argv = append(argv, "-m", "7")
		} else {
			argv = append(argv, "-H", "T")
		}
		return append(argv, "-a", cores, "-o", out)
	}

	argv := []string{cfg.Programs.Blast, "-db", cfg.Programs.BlastDB, "-query", query}
	if format == BlastXML {
		argv = append(argv, "-outfmt", "5")
	} else {
		argv = append(argv, "-html")
	}

	return append(argv, "-num_threads", cores, "-out", out)
}

func orfAnnotationStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:       ORFAnnotation,
		Name:     "orf-annotation",
		Requires: []artifact.Kind{artifact.SNPs},
		Uses: []artifact.Kind{
			artifact.CleanLog, artifact.Reads, artifact.CleanReads, artifact.Quals,
			artifact.CleanQuals, artifact.AssemblyInfo, artifact.ShortConsensus,
		},
		Produces: []artifact.Kind{
			artifact.AllORFs, artifact.BestORF, artifact.ORFBlast, artifact.Metrics,
			artifact.Report, artifact.HTMLFiles,
		},
		Keys: []config.Key{
			config.KeyGetORF, config.KeyORFMaker, config.KeyBlast, config.KeyBlastDB,
			config.KeySeqCores, config.KeyMetrics, config.KeyReporter,
		},
		ExitPolicy: pipeline.ExitTolerated,
		Handler:    annotateORFs,
	}
}

func annotateORFs(ctx context.Context, sc *pipeline.StageContext) error {
	cfg := sc.Config()
	paths := sc.Paths()

	steps := []struct {
		tool string
		argv []string
	}{
		{"getorf", []string{
			cfg.Programs.GetORF,
			"-sequence", paths.Path(artifact.SNPs),
			"-outseq", paths.Path(artifact.AllORFs),
			"-find", "3",
		}},
		{"orfmaker", []string{
			cfg.Programs.ORFMaker,
			paths.Path(artifact.AllORFs),
			paths.Path(artifact.BestORF),
		}},
		{"blastx", BlastArgs(cfg, paths.Path(artifact.BestORF), paths.Path(artifact.ORFBlast), BlastHTML)},
		{"metrics", []string{
			cfg.Programs.Metrics,
			paths.Path(artifact.CleanLog),
			paths.Path(artifact.Reads),
			paths.Path(artifact.CleanReads),
			paths.Path(artifact.Quals),
			paths.Path(artifact.CleanQuals),
			paths.Path(artifact.AssemblyInfo),
			paths.Path(artifact.SNPs),
			paths.Path(artifact.BestORF),
			paths.Path(artifact.Metrics),
		}},
		{"reporter", []string{
			cfg.Programs.Reporter,
			paths.Path(artifact.BestORF),
			paths.Path(artifact.SNPs),
			paths.Path(artifact.ORFBlast),
			paths.Path(artifact.Report),
			paths.Path(artifact.ShortConsensus),
		}},
	}

	for _, step := range steps {
		if err := sc.Exec(ctx, step.tool, step.argv...); err != nil {
			return err
		}
	}

	return nil
}
