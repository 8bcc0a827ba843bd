// Package process runs external tools with an explicit argument vector and streams their
// combined output line by line.
package process

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrLaunch means the tool could not be started at all. It is never retried.
	ErrLaunch = errors.New("unable to launch program")
	// ErrTimeout means the tool ran longer than the runner's Timeout and was killed.
	ErrTimeout = errors.New("program timed out")
)

// DefaultSettleDelay is the pause after an uncaptured run. Some tools release file handles
// asynchronously after they exit.
const DefaultSettleDelay = 5 * time.Second

const (
	maxLineSize    = 1 << 20
	readBufferSize = 64 * 1024
	// drainGrace bounds how long output is still read after a cancelled child is gone.
	drainGrace = 2 * time.Second
)

// Status classifies a process that was launched.
type Status int

const (
	StatusSuccess Status = iota
	StatusExitFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusExitFailure:
		return "non-zero exit"
	default:
		return "unknown"
	}
}

// Command is one invocation. Argv is never interpreted by a shell.
type Command struct {
	Argv []string
	// Dir is the absolute working directory of the child.
	Dir string
}

func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Result is the outcome of a launched process.
type Result struct {
	Status   Status
	ExitCode int
	// Lines holds the merged output when capture was requested.
	Lines    []string
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r != nil && r.Status == StatusSuccess
}

// Observer receives every output line as soon as it is read.
type Observer interface {
	Observe(line string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(line string)

// Observe calls f(line).
func (f ObserverFunc) Observe(line string) { f(line) }

// WriterObserver echoes lines to W.
type WriterObserver struct {
	W io.Writer
}

// Observe writes line followed by a newline.
func (o WriterObserver) Observe(line string) {
	_, _ = io.WriteString(o.W, line+"\n")
}

// Runner launches commands sequentially.
type Runner struct {
	Observer    Observer
	SettleDelay time.Duration
	// Timeout bounds each invocation. Zero means no bound.
	Timeout time.Duration

	sleep func(time.Duration)
}

// NewRunner returns a Runner echoing output to stdout with the default settle delay.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Observer:    WriterObserver{W: os.Stdout},
		SettleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Runner.
type Option func(r *Runner)

// WithObserver replaces the stdout echo.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.Observer = o
	}
}

// WithSettleDelay sets the pause applied after uncaptured runs.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.SettleDelay = d
	}
}

// WithTimeout bounds every invocation.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.Timeout = d
	}
}

// Run launches cmd and blocks until it exits. stdout and stderr share one pipe so lines keep
// the order the child wrote them in. A non-zero exit is reported through Result, not as an
// error; errors are reserved for launch failures, timeouts and cancellation.
//
// The child runs in its own process group. On timeout or cancellation the whole group is
// killed, so wrapper scripts do not leave grandchildren holding the output pipe.
func (r *Runner) Run(ctx context.Context, cmd Command, capture bool) (*Result, error) {
	if len(cmd.Argv) == 0 || cmd.Argv[0] == "" {
		return nil, errors.Wrap(ErrLaunch, "empty command")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s not started", cmd.Argv[0])
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create output pipe")
	}
	defer pr.Close()

	child := exec.CommandContext(runCtx, cmd.Argv[0], cmd.Argv[1:]...) //nolint:gosec // argv comes from validated config
	child.Dir = cmd.Dir
	child.Stdout = pw
	child.Stderr = pw
	killGroupOnCancel(child)

	start := time.Now()
	if err := child.Start(); err != nil {
		pw.Close()
		return nil, errors.Wrapf(ErrLaunch, "%s: %v", cmd.Argv[0], err)
	}
	// The child holds its own copy of the write end.
	pw.Close()

	var lines []string
	pumpDone := make(chan struct{})
	errGrp := errgroup.Group{}
	errGrp.Go(func() error {
		defer close(pumpDone)
		return r.pump(pr, func(line string) {
			if capture {
				lines = append(lines, line)
			}
		})
	})

	waitErr := child.Wait()
	if runCtx.Err() != nil {
		// Something outside the group may still hold the write end.
		select {
		case <-pumpDone:
		case <-time.After(drainGrace):
			pr.Close()
		}
	}
	pumpErr := errGrp.Wait()

	res := &Result{Status: StatusSuccess, Lines: lines, Duration: time.Since(start)}

	if runCtx.Err() != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errors.Wrapf(ErrTimeout, "%s after %s", cmd.Argv[0], r.Timeout)
		}
		return nil, errors.Wrapf(ctx.Err(), "%s interrupted", cmd.Argv[0])
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, errors.Wrapf(waitErr, "unable to wait for %s", cmd.Argv[0])
		}
		res.Status = StatusExitFailure
		res.ExitCode = exitErr.ExitCode()
	}
	if pumpErr != nil {
		return nil, pumpErr
	}

	if !capture && r.SettleDelay > 0 {
		r.pause(ctx, r.SettleDelay)
	}

	return res, nil
}

// pump reads rd until EOF and hands every line to the observer and to keep. A line longer
// than maxLineSize is delivered in maxLineSize pieces, so the pipe is always drained.
func (r *Runner) pump(rd io.Reader, keep func(line string)) error {
	emit := func(line []byte) {
		text := strings.TrimRight(string(line), " \t\r")
		if r.Observer != nil {
			r.Observer.Observe(text)
		}
		keep(text)
	}

	reader := bufio.NewReaderSize(rd, readBufferSize)
	var pending []byte
	split := false
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			if len(pending) > 0 {
				emit(pending)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			// Keep the child from blocking on a full pipe.
			_, _ = io.Copy(io.Discard, rd)
			return errors.Wrap(err, "unable to read program output")
		}

		pending = append(pending, chunk...)
		for len(pending) >= maxLineSize {
			emit(pending[:maxLineSize])
			pending = append(pending[:0], pending[maxLineSize:]...)
			split = true
		}
		if !isPrefix {
			if len(pending) > 0 || !split {
				emit(pending)
			}
			pending = pending[:0]
			split = false
		}
	}
}

// pause waits d or until ctx is done.
func (r *Runner) pause(ctx context.Context, d time.Duration) {
	if r.sleep != nil {
		r.sleep(d)
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
