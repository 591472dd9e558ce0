package harness

import (
	"context"
	"time"

	"github.com/roach88/scancheck/internal/assertion"
	"github.com/roach88/scancheck/internal/driver"
	"github.com/roach88/scancheck/internal/hid"
	"github.com/roach88/scancheck/internal/store"
)

// recorder writes driver events into the run log.
//
// Observer callbacks cannot fail, so the first write error is kept and
// every later event is dropped. Run checks Err after the driver finalized.
type recorder struct {
	ctx   context.Context
	store *store.Store
	runID string

	ordinal int
	lastSeq int
	err     error
}

var _ driver.Observer = (*recorder)(nil)

func newRecorder(ctx context.Context, st *store.Store, runID string) *recorder {
	return &recorder{ctx: ctx, store: st, runID: runID}
}

func (r *recorder) CycleStarted(uint64) {}

func (r *recorder) ReportProcessed(seq int, cycle uint64, rep hid.Report) {
	r.lastSeq = seq
	if r.err != nil {
		return
	}
	r.err = r.store.WriteReport(r.ctx, store.Report{
		RunID:  r.runID,
		Seq:    seq,
		Cycle:  cycle,
		Report: rep,
	})
}

func (r *recorder) AssertionEvaluated(o driver.Outcome) {
	r.ordinal++
	if r.err != nil {
		return
	}
	var reportSeq int
	if o.Domain == assertion.DomainReport {
		reportSeq = r.lastSeq
	}
	r.err = r.store.WriteOutcome(r.ctx, store.Outcome{
		RunID:       r.runID,
		Ordinal:     r.ordinal,
		Cycle:       o.Cycle,
		Elapsed:     o.Time,
		ReportSeq:   reportSeq,
		Domain:      o.Domain.String(),
		Lifetime:    string(o.Lifetime),
		Description: o.Description,
		Passed:      o.Passed,
	})
}

func (r *recorder) CycleFinished(cycle uint64, elapsed time.Duration, reports int) {
	if r.err != nil {
		return
	}
	r.err = r.store.WriteCycle(r.ctx, store.Cycle{
		RunID:   r.runID,
		Cycle:   cycle,
		Elapsed: elapsed,
		Reports: reports,
	})
}

// Err returns the first write error.
func (r *recorder) Err() error {
	return r.err
}
