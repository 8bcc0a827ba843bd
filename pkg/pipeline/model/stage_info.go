package model

import (
	"strconv"
	"time"
)

// StageStatus is the outcome of a stage as seen by the options.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusRunning   StageStatus = "running"
	StatusSucceeded StageStatus = "succeeded"
	StatusFailed    StageStatus = "failed"
)

// StageInfo describes one selected stage.
type StageInfo struct {
	ID   int
	Name string
	// Dependencies lists the stages whose artifacts this stage needs.
	Dependencies []int
}

// Label is the display name, for example "3 - assembly".
func (s *StageInfo) Label() string {
	if s.ID == 0 {
		return s.Name
	}
	return strconv.Itoa(s.ID) + " - " + s.Name
}

// Invocation describes one external program run by a stage.
type Invocation struct {
	Tool     string
	Command  string
	ExitCode int
	Success  bool
	Duration time.Duration
}

var (
	StartStage = &StageInfo{Name: "start"}
	EndStage   = &StageInfo{Name: "end"}
)
