package measure

import (
	"sync"
	"time"
)

type ToolInfo struct {
	Elapsed time.Duration
	Runs    int64
}

type DefaultMetric struct {
	tools       map[string]*ToolInfo
	mu          *sync.Mutex
	EndDuration time.Duration
	elapsed     time.Duration
	total       int64
	failed      bool
}

func (mt *DefaultMetric) AddInvocation(tool string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.elapsed += elapsed

	if mt.tools[tool] == nil {
		mt.tools[tool] = &ToolInfo{}
	}
	info := mt.tools[tool]
	info.Elapsed += elapsed
	info.Runs++
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) SetFailed(failed bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.failed = failed
}

func (mt *DefaultMetric) Failed() bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.failed
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return Round(time.Duration(float64(mt.elapsed) / float64(mt.total)))
}

func (mt *DefaultMetric) AllTools() map[string]*ToolInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	res := make(map[string]*ToolInfo, len(mt.tools))
	for name, info := range mt.tools {
		cp := *info
		res[name] = &cp
	}

	return res
}

// Round trims d to a precision that reads well next to its magnitude.
func Round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
