package measure

import "time"

// Measure collects one Metric per stage.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric holds the timings of one stage.
type Metric interface {
	// AddInvocation records one external program run by the stage.
	AddInvocation(tool string, elapsed time.Duration)
	// AVGDuration is the mean duration of the stage's program runs.
	AVGDuration() time.Duration
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
	SetFailed(failed bool)
	Failed() bool
	// AllTools returns the accumulated time and run count per program.
	AllTools() map[string]*ToolInfo
}
