package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrRegistryMustBeSet = errors.New("registry must be set")
	ErrEnvMustBeSet      = errors.New("environment must be set")
	// ErrInvalidStage is returned when a stage declaration is rejected by the registry.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrUnknownStage is returned for a stage ID with no registered stage.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrEmptyRequest is returned when a selection names no stage.
	ErrEmptyRequest = errors.New("no stage selected")
	// ErrToolFailed is returned when a program exits non-zero in a stage that does not
	// tolerate it.
	ErrToolFailed = errors.New("program failed")
	// ErrMissingArtifact is returned by the input check when a required artifact is absent.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrAlreadyRun is returned when Run is called twice on the same Pipeline.
	ErrAlreadyRun = errors.New("pipeline already ran")
)

// StageError is the error returned by Run when a stage fails.
type StageError struct {
	ID   int
	Name string
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.ID, e.Name, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause walk through the stage boundary.
func (e *StageError) Cause() error { return e.Err }
