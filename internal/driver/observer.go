package driver

import (
	"time"

	"github.com/roach88/scancheck/internal/assertion"
	"github.com/roach88/scancheck/internal/hid"
)

// Lifetime says which container an evaluated assertion came from.
type Lifetime string

const (
	LifetimeQueued    Lifetime = "queued"
	LifetimePermanent Lifetime = "permanent"
	// LifetimeEach marks the per-cycle list passed to Cycles.
	LifetimeEach Lifetime = "each"
	// LifetimeStop marks stop assertions of Cycle, Cycles and SkipTime.
	LifetimeStop Lifetime = "stop"
)

// Outcome is one assertion evaluation.
type Outcome struct {
	Cycle       uint64
	Time        time.Duration
	Domain      assertion.Domain
	Lifetime    Lifetime
	Description string
	Passed      bool
}

// Observer receives run events as they happen. Callbacks run on the
// driver's goroutine and must not schedule ticks.
type Observer interface {
	CycleStarted(cycle uint64)
	ReportProcessed(seq int, cycle uint64, r hid.Report)
	AssertionEvaluated(o Outcome)
	CycleFinished(cycle uint64, elapsed time.Duration, reports int)
}
