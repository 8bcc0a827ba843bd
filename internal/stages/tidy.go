package stages

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

// ReportTemplate is the file copied from the templates directory into the report tree.
const ReportTemplate = "Report.html"

func reportPackagingStage() *pipeline.Stage {
	return &pipeline.Stage{
		ID:   ReportPackaging,
		Name: "report-packaging",
		Uses: []artifact.Kind{
			artifact.SSR, artifact.HTMLFiles, artifact.ORFBlast, artifact.Report,
			artifact.Annotation, artifact.SNPs, artifact.Metrics,
		},
		Produces:   []artifact.Kind{artifact.ReportDir, artifact.Archive},
		Keys:       []config.Key{config.KeyTemplates, config.KeySevenZip},
		ExitPolicy: pipeline.ExitTolerated,
		Handler:    packageReport,
	}
}

type placement struct {
	kind artifact.Kind
	// dst is relative to the report directory.
	dst  string
	copy bool
}

// placements lists where each artifact lands in the report tree, in the order they are placed.
// The html_files directory goes in before the BLAST page that lives inside it.
var placements = []placement{
	{kind: artifact.SSR, dst: "SSRs.html"},
	{kind: artifact.HTMLFiles, dst: "html_files"},
	{kind: artifact.ORFBlast, dst: filepath.Join("html_files", "ORFblast.html")},
	{kind: artifact.Report, dst: "SNPs.html"},
	{kind: artifact.Annotation, dst: "B2g.annot"},
	{kind: artifact.SNPs, dst: "B2g.fasta", copy: true},
	{kind: artifact.Metrics, dst: "Metrics.html"},
}

func packageReport(ctx context.Context, sc *pipeline.StageContext) error {
	cfg := sc.Config()
	paths := sc.Paths()
	reportDir := paths.Path(artifact.ReportDir)

	template := filepath.Join(cfg.Programs.Templates, ReportTemplate)
	ok, err := sc.Exists(template)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(config.ErrConfig, "%s: report template %s does not exist", config.KeyTemplates, template)
	}

	err = os.Mkdir(reportDir, 0o755) //nolint:gosec
	switch {
	case errors.Is(err, os.ErrExist):
		sc.Log.Info("Report directory already exists, reusing it", zap.String("path", reportDir))
	case err != nil:
		return errors.Wrap(err, "unable to create report directory")
	}

	for _, p := range placements {
		if err := place(sc, paths.Path(p.kind), filepath.Join(reportDir, p.dst), p.copy); err != nil {
			return err
		}
	}

	if err := copyFile(template, filepath.Join(reportDir, ReportTemplate)); err != nil {
		return err
	}

	return sc.Exec(ctx, "7z",
		cfg.Programs.SevenZip, "a", "-y", "-bd",
		paths.Path(artifact.Archive),
		filepath.Base(reportDir),
	)
}

// place moves or copies src to dst. A missing src is logged and skipped, and so is a directory
// whose destination already exists.
func place(sc *pipeline.StageContext, src, dst string, copying bool) error {
	info, err := os.Stat(src)
	if errors.Is(err, os.ErrNotExist) {
		sc.Log.Warn("Artifact not found, skipping", zap.String("path", src))
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "unable to stat %s", src)
	}

	if info.IsDir() {
		if _, err := os.Stat(dst); err == nil {
			sc.Log.Warn("Destination already exists, skipping", zap.String("path", dst))
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil { //nolint:gosec
		return errors.Wrapf(err, "unable to create %s", filepath.Dir(dst))
	}

	if copying {
		return copyFile(src, dst)
	}

	return errors.Wrapf(os.Rename(src, dst), "unable to move %s to %s", src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "unable to copy %s to %s", src, dst)
	}

	return errors.Wrapf(out.Close(), "unable to close %s", dst)
}
