package pipeline_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/process"
	"github.com/askiada/seqpipe/pkg/pipeline"
	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

// fakeExec records commands and answers with a fixed exit code per tool.
type fakeExec struct {
	mu    sync.Mutex
	cmds  []process.Command
	exits map[string]int
	err   error
}

func (f *fakeExec) Run(_ context.Context, cmd process.Command, capture bool) (*process.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.cmds = append(f.cmds, cmd)

	res := &process.Result{Status: process.StatusSuccess, Duration: time.Millisecond}
	if code := f.exits[cmd.Argv[0]]; code != 0 {
		res.Status = process.StatusExitFailure
		res.ExitCode = code
	}
	if capture {
		res.Lines = []string{"ok"}
	}

	return res, nil
}

// recorder keeps the order in which handlers ran.
type recorder struct {
	mu  sync.Mutex
	ids []int
}

func (r *recorder) handler(id int, err error) pipeline.Handler {
	return func(context.Context, *pipeline.StageContext) error {
		r.mu.Lock()
		r.ids = append(r.ids, id)
		r.mu.Unlock()
		return err
	}
}

func (r *recorder) got() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.ids...)
}

// chainStages declares nine stages where stage n requires what stage n-1 produced.
func chainStages(rec *recorder) []*pipeline.Stage {
	kinds := []artifact.Kind{
		artifact.Reads, artifact.CleanReads, artifact.Alignment, artifact.ShortConsensus,
		artifact.SNPs, artifact.BestORF, artifact.Annotation, artifact.SSR, artifact.Archive,
	}
	stages := make([]*pipeline.Stage, 0, len(kinds))
	for i, kind := range kinds {
		id := i + 1
		s := &pipeline.Stage{
			ID:       id,
			Name:     "stage-" + string(rune('0'+id)),
			Produces: []artifact.Kind{kind},
			Handler:  rec.handler(id, nil),
		}
		if i > 0 {
			s.Requires = []artifact.Kind{kinds[i-1]}
		}
		stages = append(stages, s)
	}

	return stages
}

func newEnv(t *testing.T, exec pipeline.Executor) *pipeline.Env {
	t.Helper()

	paths, err := artifact.New(filepath.Join(t.TempDir(), "sample"))
	require.NoError(t, err)

	return &pipeline.Env{
		Input:  filepath.Join(t.TempDir(), "reads.sff"),
		Paths:  paths,
		Config: &config.Config{},
		Exec:   exec,
	}
}

func mustRequest(t *testing.T, selection string) pipeline.Request {
	t.Helper()

	req, err := pipeline.ParseRequest(selection)
	require.NoError(t, err)

	return req
}

// hookRecorder logs every hook call.
type hookRecorder struct {
	model.NoopOption

	mu     sync.Mutex
	events []string
	failOn string
}

func (h *hookRecorder) add(event string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if event == h.failOn {
		return errHook
	}
	return nil
}

func (h *hookRecorder) New() error { return h.add("new") }

func (h *hookRecorder) PrepareStage(previous, stage *model.StageInfo) error {
	return h.add("prepare " + previous.Name + "->" + stage.Name)
}

func (h *hookRecorder) OnStageStart(stage *model.StageInfo) error {
	return h.add("start " + stage.Name)
}

func (h *hookRecorder) OnStageOutput(stage *model.StageInfo, inv model.Invocation) error {
	return h.add("output " + stage.Name + " " + inv.Tool)
}

func (h *hookRecorder) OnStageDone(stage *model.StageInfo, _ time.Duration, err error) error {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	return h.add("done " + stage.Name + " " + status)
}

func (h *hookRecorder) Finish() error { return h.add("finish") }

var errHook = errors.New("hook failed")
