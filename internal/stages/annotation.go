package stages

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

// annotationProperties is read from the directory holding the annotation jar.
const annotationProperties = "b2gPipe.properties"

func functionalAnnotationStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:       FunctionalAnnotation,
		Name:     "functional-annotation",
		Requires: []artifact.Kind{artifact.SNPs},
		Produces: []artifact.Kind{artifact.BlastXML, artifact.Annotation},
		Keys: []config.Key{
			config.KeyBlast, config.KeyBlastDB, config.KeySeqCores,
			config.KeyBlast2GO, config.KeyJava,
		},
		ExitPolicy: pipeline.ExitTolerated,
		Handler:    annotate,
	}
}

func annotate(ctx context.Context, sc *pipeline.StageContext) error {
	cfg := sc.Config()
	paths := sc.Paths()

	jar := cfg.Programs.Blast2GO
	ok, err := sc.Exists(jar)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(config.ErrConfig, "%s: annotation jar %s does not exist", config.KeyBlast2GO, jar)
	}

	err = sc.Exec(ctx, "blastx", BlastArgs(cfg, paths.Path(artifact.SNPs), paths.Path(artifact.BlastXML), BlastXML)...)
	if err != nil {
		return err
	}

	return sc.Exec(ctx, "b2g4pipe",
		cfg.Programs.Java, "-jar", jar,
		"-in", paths.Path(artifact.BlastXML),
		"-prop", filepath.Join(filepath.Dir(jar), annotationProperties),
		"-out", paths.Prefix(".b2g"),
		"-a",
	)
}
