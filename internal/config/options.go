package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/seqpipe/internal/convergence"
	"github.com/askiada/seqpipe/internal/process"
)

// Options is the pre-validated invocation record built by the CLI.
type Options struct {
	Input      string
	Output     string
	ConfigFile string
	Steps      string

	MaxClipIterations int
	ToolTimeout       time.Duration
	SettleDelay       time.Duration
	CheckInputs       bool
	GraphFile         string
	LogLevel          string
	NoColor           bool
}

// DefaultOptions returns the engine bounds used when the caller does not override them.
func DefaultOptions() Options {
	return Options{
		Steps:             "123456789",
		MaxClipIterations: convergence.DefaultMaxIterations,
		SettleDelay:       process.DefaultSettleDelay,
		LogLevel:          "info",
	}
}

// BasePath validates the output stem: it must not name a directory and its parent must
// exist. The result is absolute.
func (o Options) BasePath() (string, error) {
	if o.Output == "" {
		return "", errors.Wrap(ErrConfig, "output base path must be set")
	}
	abs, err := filepath.Abs(o.Output)
	if err != nil {
		return "", errors.Wrapf(ErrConfig, "invalid output path %q: %v", o.Output, err)
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return "", errors.Wrapf(ErrConfig, "output path %s points to a directory, use a file stem inside it", abs)
	}
	parent := filepath.Dir(abs)
	if fi, err := os.Stat(parent); err != nil || !fi.IsDir() {
		return "", errors.Wrapf(ErrConfig, "output directory %s does not exist", parent)
	}
	return abs, nil
}

// InputPath returns the absolute path of the source reads file. Its existence is checked by
// the extraction stage, the only consumer.
func (o Options) InputPath() (string, error) {
	if o.Input == "" {
		return "", errors.Wrap(ErrConfig, "input file must be set")
	}
	abs, err := filepath.Abs(o.Input)
	if err != nil {
		return "", errors.Wrapf(ErrConfig, "invalid input path %q: %v", o.Input, err)
	}
	return abs, nil
}

// Validate checks the engine bounds.
func (o Options) Validate() error {
	if o.MaxClipIterations < 1 {
		return errors.Wrapf(ErrConfig, "max clip iterations must be positive, got %d", o.MaxClipIterations)
	}
	if o.ToolTimeout < 0 {
		return errors.Wrapf(ErrConfig, "tool timeout must not be negative, got %s", o.ToolTimeout)
	}
	if o.SettleDelay < 0 {
		return errors.Wrapf(ErrConfig, "settle delay must not be negative, got %s", o.SettleDelay)
	}
	return nil
}
