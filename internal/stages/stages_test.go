package stages_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/convergence"
	"github.com/askiada/seqpipe/internal/process"
	"github.com/askiada/seqpipe/internal/stages"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

func TestRegistryDependencies(t *testing.T) {
	t.Parallel()

	reg, err := stages.NewRegistry(stages.DefaultSettings())
	require.NoError(t, err)

	order := reg.Order()
	require.Len(t, order, 9)
	for i, s := range order {
		assert.Equal(t, i+1, s.ID)
	}

	tcs := map[string]struct {
		id   int
		want []int
	}{
		"extraction has no dependency": {id: stages.Extraction, want: []int{}},
		"cleaning needs extraction":    {id: stages.Cleaning, want: []int{stages.Extraction}},
		"discovery needs assembly":     {id: stages.SNPDiscovery, want: []int{stages.Assembly}},
		"snp extraction needs both":    {id: stages.SNPExtraction, want: []int{stages.Assembly, stages.SNPDiscovery}},
		"orf needs snps only":          {id: stages.ORFAnnotation, want: []int{stages.SNPExtraction}},
		"ssr needs assembly":           {id: stages.SSRDetection, want: []int{stages.Assembly}},
		"packaging only uses":          {id: stages.ReportPackaging, want: []int{}},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			deps, err := reg.Dependencies(tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, deps)
		})
	}
}

func TestRegistryKeys(t *testing.T) {
	t.Parallel()

	reg, err := stages.NewRegistry(stages.DefaultSettings())
	require.NoError(t, err)

	req, err := pipeline.NewRequest(stages.ORFAnnotation, stages.FunctionalAnnotation)
	require.NoError(t, err)

	keys := reg.Keys(req)
	assert.Contains(t, keys, config.KeyGetORF)
	assert.Contains(t, keys, config.KeyBlast2GO)
	assert.NotContains(t, keys, config.KeyExtractor)

	blast := 0
	for _, key := range keys {
		if key == config.KeyBlast {
			blast++
		}
	}
	assert.Equal(t, 1, blast)
}

func TestParseExtraClip(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		lines []string
		want  int
	}{
		"no output":           {want: 0},
		"no suggestion":       {lines: []string{"Converting reads", "done"}, want: 0},
		"spaced":              {lines: []string{"extra clip: 4"}, want: 4},
		"underscore":          {lines: []string{"Suggested extra_clip=12 bases"}, want: 12},
		"upper case":          {lines: []string{"EXTRA CLIP 3"}, want: 3},
		"last suggestion won": {lines: []string{"extra clip: 4", "extra clip: 2"}, want: 2},
		"negative":            {lines: []string{"extra clip: -4"}, want: -4},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := stages.ParseExtraClip(tc.lines)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractionConverges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	touch(t, f.env.Input)
	answers := [][]string{{"extra clip: 4"}, {"nothing to clip"}, {}}
	f.exec.reply = func(call int, _ process.Command) (*process.Result, error) {
		return ok(answers[call]...), nil
	}

	_, err := f.run(t, "1")
	require.NoError(t, err)

	argvs := f.exec.argvs()
	require.Len(t, argvs, 3)
	for i, want := range []string{"--min_left_clip=0", "--min_left_clip=4", "--min_left_clip=4"} {
		assert.Contains(t, argvs[i], want)
	}
	assert.Equal(t, []string{
		"/opt/bin/sff_extract", "-c", "-m", "--min_left_clip=0", "--min_frequency=30",
		"-s", f.path(artifact.Reads),
		"-q", f.path(artifact.Quals),
		"-x", f.path(artifact.ReadsXML),
		f.env.Input,
	}, argvs[0])
	assert.Equal(t, 1, f.logs.FilterMessage("Extraction finished").Len())
}

func TestExtractionFailures(t *testing.T) {
	t.Parallel()

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.run(t, "1")
		require.ErrorIs(t, err, pipeline.ErrMissingArtifact)
		assert.Empty(t, f.exec.argvs())
	})

	t.Run("extractor exit is fatal", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		touch(t, f.env.Input)
		f.exec.reply = func(int, process.Command) (*process.Result, error) { return exit(2), nil }

		_, err := f.run(t, "12")
		require.ErrorIs(t, err, pipeline.ErrToolFailed)
		assert.Len(t, f.exec.argvs(), 1)
	})

	t.Run("negative suggestion", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		touch(t, f.env.Input)
		f.exec.reply = func(int, process.Command) (*process.Result, error) { return ok("extra clip: -4"), nil }

		_, err := f.run(t, "1")
		require.ErrorIs(t, err, convergence.ErrNegativeDelta)
		assert.Len(t, f.exec.argvs(), 1)
	})

	t.Run("never settles", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		touch(t, f.env.Input)
		f.exec.reply = func(int, process.Command) (*process.Result, error) { return ok("extra clip: 1"), nil }

		_, err := f.run(t, "1")
		require.ErrorIs(t, err, convergence.ErrNotConverged)
		assert.Len(t, f.exec.argvs(), 10)
	})
}

func TestCleaning(t *testing.T) {
	t.Parallel()

	t.Run("renames cleaned qualities", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		touch(t, f.path(artifact.CleanQualsRaw))

		_, err := f.run(t, "2")
		require.NoError(t, err)

		argvs := f.exec.argvs()
		require.Len(t, argvs, 2)
		assert.Equal(t, []string{
			"/opt/bin/seqclean", f.path(artifact.Reads),
			"-r", f.path(artifact.CleanReport),
			"-l", "40",
			"-o", f.path(artifact.CleanReads),
			"-c", "4",
			"-v", "/data/UniVec",
		}, argvs[0])
		assert.Equal(t, []string{"/opt/bin/cln2qual", f.path(artifact.CleanReport), f.path(artifact.Quals)}, argvs[1])

		assert.NoFileExists(t, f.path(artifact.CleanQualsRaw))
		assert.FileExists(t, f.path(artifact.CleanQuals))
	})

	t.Run("missing cleaned qualities", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.run(t, "2")
		require.NoError(t, err)
		assert.Equal(t, 1, f.logs.FilterMessage("Cleaned qualities were not written, nothing to rename").Len())
	})

	t.Run("tolerates cleaner failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.exec.reply = func(int, process.Command) (*process.Result, error) { return exit(1), nil }

		_, err := f.run(t, "2")
		require.NoError(t, err)
		assert.Len(t, f.exec.argvs(), 2)
		assert.Equal(t, 1, f.logs.FilterMessage("seqclean exited with a non-zero status, continuing").Len())
	})
}

func TestManifest(t *testing.T) {
	t.Parallel()

	paths, err := artifact.New("/data/run/sample")
	require.NoError(t, err)

	got := stages.Manifest(testConfig("/tpl"), paths)
	want := "project = sample\n" +
		"job = genome,denovo,accurate\n" +
		"parameters = COMMON_SETTINGS -GE:not=4 \\\n" +
		"454_SETTINGS -AS:mrpc=1\n\n" +
		"readgroup = sample\n" +
		"technology = 454\n" +
		"data = sample.clean.fasta\n"
	assert.Equal(t, want, got)
}

func TestAssembly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.run(t, "3")
	require.NoError(t, err)

	content, err := os.ReadFile(f.path(artifact.Manifest))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "project = sample\n"))

	assert.Equal(t, [][]string{
		{"/opt/bin/mira", f.path(artifact.Manifest)},
		{"/opt/bin/miraconvert", "-f", "maf", "-t", "sam", f.path(artifact.AssemblyMAF), f.path(artifact.Alignment)},
	}, f.exec.argvs())
}

func TestSNPStages(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.run(t, "45")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"/opt/bin/sam2bam", f.path(artifact.Alignment), f.path(artifact.BinaryAlignment)},
		{"/opt/bin/bam2tcs", f.path(artifact.BinaryAlignment), f.path(artifact.AssemblyPadded), f.path(artifact.ConsensusTable)},
		{"/opt/bin/tcsfilter", f.path(artifact.ConsensusTable), f.path(artifact.ShortConsensus), "70", "10"},
		{"/opt/bin/snpgrabber", f.path(artifact.ShortConsensus), f.path(artifact.AssemblyUnpadded), f.path(artifact.SNPs), "70"},
	}, f.exec.argvs())

	for _, cmd := range f.exec.cmds {
		assert.Equal(t, f.env.Paths.Dir(), cmd.Dir)
	}
}

func TestBlastArgs(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		blast  string
		format stages.BlastFormat
		want   []string
	}{
		"blast+ html": {
			blast: "/usr/bin/blastx", format: stages.BlastHTML,
			want: []string{"/usr/bin/blastx", "-db", "/data/nr", "-query", "q.fasta", "-html", "-num_threads", "4", "-out", "out"},
		},
		"blast+ xml": {
			blast: "/usr/bin/blastx", format: stages.BlastXML,
			want: []string{"/usr/bin/blastx", "-db", "/data/nr", "-query", "q.fasta", "-outfmt", "5", "-num_threads", "4", "-out", "out"},
		},
		"legacy html": {
			blast: "/opt/blast2", format: stages.BlastHTML,
			want: []string{"/opt/blast2", "-p", "blastx", "-d", "/data/nr", "-i", "q.fasta", "-H", "T", "-a", "4", "-o", "out"},
		},
		"legacy xml": {
			blast: "/opt/blast2", format: stages.BlastXML,
			want: []string{"/opt/blast2", "-p", "blastx", "-d", "/data/nr", "-i", "q.fasta", "-m", "7", "-a", "4", "-o", "out"},
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig("/tpl")
			cfg.Programs.Blast = tc.blast
			assert.Equal(t, tc.want, stages.BlastArgs(cfg, "q.fasta", "out", tc.format))
		})
	}
}

func TestORFAnnotation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.run(t, "6")
	require.NoError(t, err)

	argvs := f.exec.argvs()
	require.Len(t, argvs, 5)
	assert.Equal(t, []string{"/opt/bin/getorf", "-sequence", f.path(artifact.SNPs), "-outseq", f.path(artifact.AllORFs), "-find", "3"}, argvs[0])
	assert.Equal(t, []string{"/opt/bin/orfmaker", f.path(artifact.AllORFs), f.path(artifact.BestORF)}, argvs[1])
	assert.Equal(t, "-html", argvs[2][5])
	assert.Equal(t, f.path(artifact.ORFBlast), argvs[2][len(argvs[2])-1])
	assert.Equal(t, "/opt/bin/metrics", argvs[3][0])
	assert.Equal(t, f.path(artifact.CleanLog), argvs[3][1])
	assert.Equal(t, f.path(artifact.Metrics), argvs[3][len(argvs[3])-1])
	assert.Equal(t, []string{
		"/opt/bin/reporter", f.path(artifact.BestORF), f.path(artifact.SNPs), f.path(artifact.ORFBlast),
		f.path(artifact.Report), f.path(artifact.ShortConsensus),
	}, argvs[4])
}

func TestFunctionalAnnotation(t *testing.T) {
	t.Parallel()

	t.Run("missing jar", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.env.Config.Programs.Blast2GO = filepath.Join(t.TempDir(), "b2g4pipe.jar")

		_, err := f.run(t, "7")
		require.ErrorIs(t, err, config.ErrConfig)
		assert.Empty(t, f.exec.argvs(), "nothing runs before the jar is found")
	})

	t.Run("jar present", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		jarDir := t.TempDir()
		jar := filepath.Join(jarDir, "b2g4pipe.jar")
		touch(t, jar)
		f.env.Config.Programs.Blast2GO = jar

		_, err := f.run(t, "7")
		require.NoError(t, err)

		argvs := f.exec.argvs()
		require.Len(t, argvs, 2)
		assert.Contains(t, argvs[0], "-outfmt")
		assert.Equal(t, f.path(artifact.BlastXML), argvs[0][len(argvs[0])-1])
		assert.Equal(t, []string{
			"java", "-jar", jar,
			"-in", f.path(artifact.BlastXML),
			"-prop", filepath.Join(jarDir, "b2gPipe.properties"),
			"-out", f.env.Paths.Base() + ".b2g",
			"-a",
		}, argvs[1])
	})
}

func TestSSRDetection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.run(t, "8")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{
		"/opt/bin/ssrfinder",
		f.path(artifact.AssemblyUnpadded),
		f.path(artifact.AssemblyUnpaddedQual),
		f.path(artifact.SSR),
		"/opt/bin/etandem",
		"30",
	}}, f.exec.argvs())
}

func TestReportPackaging(t *testing.T) {
	t.Parallel()

	t.Run("packs what exists", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		touch(t, filepath.Join(f.env.Config.Programs.Templates, stages.ReportTemplate))
		touch(t, f.path(artifact.SSR))
		touch(t, filepath.Join(f.path(artifact.HTMLFiles), "style.css"))
		touch(t, f.path(artifact.ORFBlast))
		touch(t, f.path(artifact.SNPs))

		_, err := f.run(t, "9")
		require.NoError(t, err)

		report := f.path(artifact.ReportDir)
		assert.FileExists(t, filepath.Join(report, "SSRs.html"))
		assert.FileExists(t, filepath.Join(report, "html_files", "style.css"))
		assert.FileExists(t, filepath.Join(report, "html_files", "ORFblast.html"))
		assert.FileExists(t, filepath.Join(report, "B2g.fasta"))
		assert.FileExists(t, filepath.Join(report, stages.ReportTemplate))
		assert.FileExists(t, f.path(artifact.SNPs), "the SNP file is copied, not moved")
		assert.NoFileExists(t, f.path(artifact.SSR))
		assert.NoFileExists(t, filepath.Join(report, "B2g.annot"))

		assert.Equal(t, 3, f.logs.FilterMessage("Artifact not found, skipping").Len())
		require.Len(t, f.exec.cmds, 1)
		assert.Equal(t, []string{"/usr/bin/7z", "a", "-y", "-bd", f.path(artifact.Archive), "Report"}, f.exec.cmds[0].Argv)
		assert.Equal(t, f.env.Paths.Dir(), f.exec.cmds[0].Dir)
	})

	t.Run("existing report directory", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		touch(t, filepath.Join(f.env.Config.Programs.Templates, stages.ReportTemplate))
		require.NoError(t, os.Mkdir(f.path(artifact.ReportDir), 0o755))
		touch(t, f.path(artifact.Metrics))

		_, err := f.run(t, "9")
		require.NoError(t, err)

		assert.Equal(t, 1, f.logs.FilterMessage("Report directory already exists, reusing it").Len())
		assert.FileExists(t, filepath.Join(f.path(artifact.ReportDir), "Metrics.html"))
		assert.Len(t, f.exec.cmds, 1)
	})

	t.Run("missing template", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.run(t, "9")
		require.ErrorIs(t, err, config.ErrConfig)
		assert.NoDirExists(t, f.path(artifact.ReportDir))
		assert.Empty(t, f.exec.cmds)
	})
}

func TestFullRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	touch(t, f.env.Input)
	touch(t, filepath.Join(f.env.Config.Programs.Templates, stages.ReportTemplate))
	jar := filepath.Join(t.TempDir(), "b2g4pipe.jar")
	touch(t, jar)
	f.env.Config.Programs.Blast2GO = jar

	report, err := f.run(t, "123456789")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, report.Executed())

	tools := make([]string, 0, len(f.exec.cmds))
	for _, cmd := range f.exec.cmds {
		tools = append(tools, filepath.Base(cmd.Argv[0]))
	}
	assert.Equal(t, []string{
		"sff_extract", "sff_extract",
		"seqclean", "cln2qual",
		"mira", "miraconvert",
		"sam2bam", "bam2tcs", "tcsfilter",
		"snpgrabber",
		"getorf", "orfmaker", "blastx", "metrics", "reporter",
		"blastx", "java",
		"ssrfinder",
		"7z",
	}, tools)
}
