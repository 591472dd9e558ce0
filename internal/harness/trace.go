package harness

import (
	"context"
	"fmt"

	"github.com/roach88/scancheck/internal/hid"
	"github.com/roach88/scancheck/internal/store"
)

// ReadTrace rebuilds the ordered trace of a run from the run log.
//
// Reports and outcomes live in separate tables. They are merged so that
// every report precedes the outcomes evaluated against it, and every
// cycle-domain outcome follows all reports of its cycle.
func ReadTrace(ctx context.Context, st *store.Store, runID string) ([]TraceEvent, error) {
	reports, err := st.ReadReports(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	outcomes, err := st.ReadOutcomes(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	trace := make([]TraceEvent, 0, len(reports)+len(outcomes))
	next := 0
	emitReportsWhile := func(keep func(store.Report) bool) {
		for next < len(reports) && keep(reports[next]) {
			trace = append(trace, reportEvent(reports[next]))
			next++
		}
	}

	for _, o := range outcomes {
		if o.ReportSeq > 0 {
			emitReportsWhile(func(r store.Report) bool { return r.Seq <= o.ReportSeq })
		} else {
			emitReportsWhile(func(r store.Report) bool { return r.Cycle <= o.Cycle })
		}
		trace = append(trace, TraceEvent{
			Type:        EventAssertion,
			Cycle:       o.Cycle,
			Domain:      o.Domain,
			Lifetime:    o.Lifetime,
			Description: o.Description,
			Passed:      o.Passed,
		})
	}
	emitReportsWhile(func(store.Report) bool { return true })

	return trace, nil
}

func reportEvent(r store.Report) TraceEvent {
	return TraceEvent{
		Type:  EventReport,
		Cycle: r.Cycle,
		Seq:   r.Seq,
		Keys:  usageNames(r.Report),
	}
}

// usageNames lists modifiers first, then keys.
func usageNames(r hid.Report) []string {
	names := []string{}
	for _, k := range r.ActiveModifiers() {
		names = append(names, k.String())
	}
	for _, k := range r.ActiveKeycodes() {
		names = append(names, k.String())
	}
	return names
}
