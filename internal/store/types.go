package store

import (
	"errors"
	"time"

	"github.com/roach88/scancheck/internal/hid"
)

// ErrRunNotFound is returned when a run id is not in the log.
var ErrRunNotFound = errors.New("run not found")

// Run is the header row of one scenario execution.
type Run struct {
	ID            string
	Name          string
	CycleDuration time.Duration

	// Finished is set by FinishRun; Passed, Cycles and Reports are only
	// meaningful once it is true.
	Finished bool
	Passed   bool
	Cycles   uint64
	Reports  int
}

// Cycle records one completed tick.
type Cycle struct {
	RunID   string
	Cycle   uint64
	Elapsed time.Duration
	Reports int
}

// Report records one processed report.
type Report struct {
	RunID  string
	Seq    int
	Cycle  uint64
	Report hid.Report
}

// Outcome records one assertion evaluation.
type Outcome struct {
	RunID   string
	Ordinal int
	Cycle   uint64
	Elapsed time.Duration

	// ReportSeq is the report a report-domain outcome was evaluated
	// against, 0 for cycle-domain outcomes.
	ReportSeq int

	Domain      string
	Lifetime    string
	Description string
	Passed      bool
}
