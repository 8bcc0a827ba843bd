package stages_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/process"
	"github.com/askiada/seqpipe/internal/stages"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

// scriptedExec answers every command through reply and records what it was asked to run.
type scriptedExec struct {
	mu    sync.Mutex
	cmds  []process.Command
	reply func(call int, cmd process.Command) (*process.Result, error)
}

func (s *scriptedExec) Run(_ context.Context, cmd process.Command, _ bool) (*process.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := len(s.cmds)
	s.cmds = append(s.cmds, cmd)
	if s.reply == nil {
		return &process.Result{Status: process.StatusSuccess, Duration: time.Millisecond}, nil
	}

	return s.reply(call, cmd)
}

func (s *scriptedExec) argvs() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([][]string, 0, len(s.cmds))
	for _, cmd := range s.cmds {
		res = append(res, cmd.Argv)
	}
	return res
}

func ok(lines ...string) *process.Result {
	return &process.Result{Status: process.StatusSuccess, Lines: lines, Duration: time.Millisecond}
}

func exit(code int) *process.Result {
	return &process.Result{Status: process.StatusExitFailure, ExitCode: code, Duration: time.Millisecond}
}

func testConfig(templates string) *config.Config {
	return &config.Config{
		Programs: config.Programs{
			Extractor:   "/opt/bin/sff_extract",
			SeqClean:    "/opt/bin/seqclean",
			UniVecDB:    "/data/UniVec",
			Cln2Qual:    "/opt/bin/cln2qual",
			Mira:        "/opt/bin/mira",
			MiraConvert: "/opt/bin/miraconvert",
			SAMToBAM:    "/opt/bin/sam2bam",
			BAMToTCS:    "/opt/bin/bam2tcs",
			TCSFilter:   "/opt/bin/tcsfilter",
			SNPGrabber:  "/opt/bin/snpgrabber",
			GetORF:      "/opt/bin/getorf",
			ORFMaker:    "/opt/bin/orfmaker",
			Blast:       "/opt/bin/blastx",
			BlastDB:     "/data/nr",
			Metrics:     "/opt/bin/metrics",
			Reporter:    "/opt/bin/reporter",
			Blast2GO:    "/opt/b2g/b2g4pipe.jar",
			Java:        "java",
			SSRFinder:   "/opt/bin/ssrfinder",
			Etandem:     "/opt/bin/etandem",
			Templates:   templates,
			SevenZip:    "/usr/bin/7z",
		},
		Variables: config.Variables{
			MaxEquality: 30,
			MinLen:      40,
			SeqCores:    4,
			MinQual:     70,
			MinCov:      10,
			MinSSRQual:  30,
		},
		Mira: config.MiraParameters{
			Job:       "job = genome,denovo,accurate",
			Common:    "parameters = COMMON_SETTINGS",
			Tech454:   "454_SETTINGS -AS:mrpc=1",
			ReadGroup: "readgroup = sample",
			Tech:      "technology = 454",
		},
	}
}

type fixture struct {
	env  *pipeline.Env
	exec *scriptedExec
	logs *observer.ObservedLogs
	log  *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	paths, err := artifact.New(filepath.Join(t.TempDir(), "sample"))
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	exec := &scriptedExec{}

	return &fixture{
		env: &pipeline.Env{
			Input:  filepath.Join(paths.Dir(), "reads.sff"),
			Paths:  paths,
			Config: testConfig(t.TempDir()),
			Exec:   exec,
		},
		exec: exec,
		logs: logs,
		log:  zap.New(core),
	}
}

// run executes the stages named in selection with the real registry.
func (f *fixture) run(t *testing.T, selection string) (*pipeline.Report, error) {
	t.Helper()

	reg, err := stages.NewRegistry(stages.Settings{MaxClipIterations: 10})
	require.NoError(t, err)

	p, err := pipeline.New(reg, pipeline.WithLogger(f.log))
	require.NoError(t, err)

	req, err := pipeline.ParseRequest(selection)
	require.NoError(t, err)

	return p.Run(context.Background(), f.env, req)
}

func (f *fixture) path(kind artifact.Kind) string {
	return f.env.Paths.Path(kind)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o600))
}
