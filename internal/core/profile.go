// Per-stage timing collected in debug mode
package core

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// StageTiming accumulates the run time of one pipeline position.
type StageTiming struct {
	Stage string
	Calls int
	Total time.Duration
	Max   time.Duration
}

// Average returns the mean duration per call.
func (s StageTiming) Average() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

// StageProfiler records how long every stage of a pipeline takes across
// ticks.
type StageProfiler struct {
	mu      sync.Mutex
	timings []StageTiming
}

// NewStageProfiler creates a profiler with one slot per stage name.
func NewStageProfiler(names []string) *StageProfiler {
	timings := make([]StageTiming, len(names))
	for i, name := range names {
		timings[i].Stage = name
	}
	return &StageProfiler{timings: timings}
}

// Record adds one call of the stage at position step.
func (sp *StageProfiler) Record(step int, d time.Duration) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if step < 0 || step >= len(sp.timings) {
		return
	}
	t := &sp.timings[step]
	t.Calls++
	t.Total += d
	if d > t.Max {
		t.Max = d
	}
}

// Snapshot returns a copy of the timings in pipeline order.
func (sp *StageProfiler) Snapshot() []StageTiming {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return append([]StageTiming(nil), sp.timings...)
}

// Log writes one debug line per stage plus the live Mat count.
func (sp *StageProfiler) Log(logger *logrus.Logger) {
	for i, t := range sp.Snapshot() {
		logger.WithFields(logrus.Fields{
			"step":    i,
			"stage":   t.Stage,
			"calls":   t.Calls,
			"average": t.Average(),
			"max":     t.Max,
		}).Debug("PIPELINE: Stage timing")
	}
	// Only counts when built with -tags matprofile.
	logger.WithField("open_mats", gocv.MatProfile.Count()).Debug("PIPELINE: Mat profile")
}
