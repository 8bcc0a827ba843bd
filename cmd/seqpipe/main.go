// Command seqpipe runs the transcriptome SNP discovery pipeline over one set of sequencing
// reads.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/convergence"
	"github.com/askiada/seqpipe/internal/display"
	"github.com/askiada/seqpipe/internal/logging"
	"github.com/askiada/seqpipe/internal/process"
	"github.com/askiada/seqpipe/internal/stages"
	"github.com/askiada/seqpipe/pkg/pipeline"
	"github.com/askiada/seqpipe/pkg/pipeline/drawer"
	"github.com/askiada/seqpipe/pkg/pipeline/measure"
	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

type cli struct {
	Input             string        `short:"i" help:"Source reads file (sff)." type:"path"`
	Output            string        `short:"o" required:"" help:"Base path every artifact is named after."`
	Config            string        `short:"c" help:"Configuration file. Defaults to ./seqpiperc then ~/.config/seqpiperc."`
	Steps             string        `short:"s" default:"123456789" help:"Stages to run, e.g. 1234 or 6,7,9."`
	MaxClipIterations int           `default:"${max_clip_iterations}" help:"Upper bound of extractor runs while searching the clip offset."`
	ToolTimeout       time.Duration `help:"Kill a program that runs longer than this. Zero disables the bound."`
	SettleDelay       time.Duration `default:"${settle_delay}" help:"Pause after each program whose output is not captured."`
	CheckInputs       bool          `help:"Fail a stage whose required artifacts are missing instead of running it."`
	Graph             string        `help:"Write a DOT graph of the run to this file." type:"path"`
	LogLevel          string        `default:"info" enum:"debug,info,warn,error" help:"Log level."`
	NoColor           bool          `help:"Disable colours."`
}

func (c *cli) options() config.Options {
	return config.Options{
		Input:             c.Input,
		Output:            c.Output,
		ConfigFile:        c.Config,
		Steps:             c.Steps,
		MaxClipIterations: c.MaxClipIterations,
		ToolTimeout:       c.ToolTimeout,
		SettleDelay:       c.SettleDelay,
		CheckInputs:       c.CheckInputs,
		GraphFile:         c.Graph,
		LogLevel:          c.LogLevel,
		NoColor:           c.NoColor,
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("seqpipe"),
		kong.Description("Extract, clean and assemble reads, then report SNPs, ORFs, annotations and SSRs."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
		kong.Vars{
			"max_clip_iterations": strconv.Itoa(convergence.DefaultMaxIterations),
			"settle_delay":        process.DefaultSettleDelay.String(),
		},
	)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailed
	}
	if _, err := parser.Parse(args); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		fmt.Fprintln(stderr, "hint: run seqpipe --help")
		return exitUsage
	}

	opts := c.options()
	palette := display.NewPalette(opts.NoColor)

	log, err := logging.NewWithWriter(stderr, opts.LogLevel, !opts.NoColor)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}
	defer log.Sync() //nolint:errcheck

	a, err := setup(opts, log)
	if err != nil {
		usageError(stderr, err)
		return exitUsage
	}

	display.PrintBanner(stdout, palette)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.execute(ctx, opts, log, stdout, palette)
	if err != nil {
		log.Error("Pipeline failed", zap.String("error", err.Error()))
		if errors.Is(err, config.ErrConfig) || errors.Is(err, process.ErrLaunch) {
			usageError(stderr, err)
			return exitUsage
		}
		return exitFailed
	}

	log.Info("Pipeline report",
		zap.String("run_id", report.RunID.String()),
		zap.Ints("stages", report.Executed()),
		zap.Duration("duration", measure.Round(report.Duration)))
	display.PrintFinished(stdout, palette)

	return exitOK
}

func usageError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err)
	if errors.Is(err, process.ErrLaunch) {
		fmt.Fprintln(w, "hint: check the program paths in the configuration file")
		return
	}
	if errors.Is(err, config.ErrConfig) {
		fmt.Fprintf(w, "hint: fix the configuration file or pass one with --config (looked for %s)\n", config.FileName)
		return
	}
	fmt.Fprintln(w, "hint: run seqpipe --help")
}

// app is everything resolved before the first stage starts.
type app struct {
	registry *pipeline.Registry
	request  pipeline.Request
	env      *pipeline.Env
}

// setup validates the options and the configuration for the selected stages. Every error it
// returns is a usage or configuration error.
func setup(opts config.Options, log *zap.Logger) (*app, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	req, err := pipeline.ParseRequest(opts.Steps)
	if err != nil {
		return nil, err
	}

	base, err := opts.BasePath()
	if err != nil {
		return nil, err
	}
	paths, err := artifact.New(base)
	if err != nil {
		return nil, errors.Wrapf(config.ErrConfig, "%v", err)
	}

	var input string
	if req.Has(stages.Extraction) {
		if input, err = opts.InputPath(); err != nil {
			return nil, err
		}
	}

	cwd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	file, err := config.Resolve(opts.ConfigFile, cwd, home)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}
	log.Debug("Configuration loaded", zap.String("file", cfg.Source))

	reg, err := stages.NewRegistry(stages.Settings{MaxClipIterations: opts.MaxClipIterations})
	if err != nil {
		return nil, errors.Wrap(err, "unable to register stages")
	}
	if err := cfg.Require(reg.Keys(req)...); err != nil {
		return nil, err
	}

	return &app{
		registry: reg,
		request:  req,
		env: &pipeline.Env{
			Input:  input,
			Paths:  paths,
			Config: cfg,
		},
	}, nil
}

func (a *app) execute(ctx context.Context, opts config.Options, log *zap.Logger, stdout io.Writer, palette display.Palette) (*pipeline.Report, error) {
	a.env.Exec = process.NewRunner(
		process.WithObserver(process.WriterObserver{W: stdout}),
		process.WithSettleDelay(opts.SettleDelay),
		process.WithTimeout(opts.ToolTimeout),
	)

	msr := measure.NewDefaultMeasure()
	hooks := []model.PipelineOption{
		display.Progress(stdout, palette),
		measure.PipelineMeasure(msr),
	}
	if opts.GraphFile != "" {
		hooks = append(hooks, drawer.PipelineDrawer(drawer.NewDOTDrawer(opts.GraphFile), msr))
	}

	p, err := pipeline.New(a.registry,
		pipeline.WithLogger(log),
		pipeline.CheckInputs(opts.CheckInputs),
		pipeline.WithHooks(hooks...),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pipeline")
	}
	log.Info("Starting pipeline",
		zap.String("run_id", p.RunID().String()),
		zap.String("stages", a.request.String()),
		zap.String("base", a.env.Paths.Base()))

	return p.Run(ctx, a.env, a.request)
}
