package assertion

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/scancheck/internal/hid"
)

// Report-domain assertions inspect ctx.CurrentReport(). Cycle-domain
// assertions inspect counters at the end of a cycle. Counter checks work in
// either domain.

// KeycodeActive passes if k is active in the current report.
func KeycodeActive(k hid.Keycode) *Check {
	return New("keycode_active", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r.IsKeycodeActive(k), fmt.Sprintf("keycode %s active", k), r.String()
	})
}

// KeycodesActive passes if exactly the given non-modifier keycodes are
// active in the current report.
func KeycodesActive(keys ...hid.Keycode) *Check {
	want := hid.NewReport(keys...)
	wantKeys := want.ActiveKeycodes()
	return New("keycodes_active", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r.Keys == want.Keys,
			fmt.Sprintf("exactly keycodes [%s] active", joinKeycodes(wantKeys)),
			r.String()
	})
}

// ModifierActive passes if the modifier k is active in the current report.
func ModifierActive(k hid.Keycode) *Check {
	return New("modifier_active", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r.IsModifierActive(k), fmt.Sprintf("modifier %s active", k), r.String()
	})
}

// ModifiersActive passes if exactly the given modifiers are active.
func ModifiersActive(mods ...hid.Keycode) *Check {
	want := hid.NewReport(mods...)
	wantMods := want.ActiveModifiers()
	return New("modifiers_active", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r.Modifiers == want.Modifiers,
			fmt.Sprintf("exactly modifiers [%s] active", joinKeycodes(wantMods)),
			r.String()
	})
}

// AnyKeycodeActive passes if at least one non-modifier key is active.
func AnyKeycodeActive() *Check {
	return New("any_keycode_active", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r.AnyKeycodeActive(), "any keycode active", r.String()
	})
}

// AnyModifierActive passes if at least one modifier is active.
func AnyModifierActive() *Check {
	return New("any_modifier_active", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r.AnyModifierActive(), "any modifier active", r.String()
	})
}

// ReportEmpty passes if nothing is active in the current report.
func ReportEmpty() *Check {
	return New("report_empty", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r.IsEmpty(), "empty report", r.String()
	})
}

// ReportEquals passes if the current report equals want.
func ReportEquals(want hid.Report) *Check {
	return New("report_equals", func(ctx Context) (bool, string, string) {
		r := ctx.CurrentReport()
		return r == want, want.String(), r.String()
	})
}

// NthReportInCycle passes if the current report is the n-th of its cycle.
func NthReportInCycle(n int) *Check {
	return New("nth_report_in_cycle", func(ctx Context) (bool, string, string) {
		got := ctx.ReportsInCycle()
		return got == n,
			fmt.Sprintf("report %d of cycle", n),
			fmt.Sprintf("report %d of cycle %d", got, ctx.CycleID())
	})
}

// OverallReports passes if exactly n reports have been emitted in the run.
func OverallReports(n int) *Check {
	return New("overall_reports", func(ctx Context) (bool, string, string) {
		got := ctx.OverallReports()
		return got == n, fmt.Sprintf("%d reports overall", n), fmt.Sprintf("%d reports overall", got)
	})
}

// ReportsInCycle passes if exactly n reports were emitted in the cycle.
func ReportsInCycle(n int) *Check {
	return New("reports_in_cycle", func(ctx Context) (bool, string, string) {
		got := ctx.ReportsInCycle()
		return got == n,
			fmt.Sprintf("%d reports in cycle", n),
			fmt.Sprintf("%d reports in cycle %d", got, ctx.CycleID())
	})
}

// CycleIs passes if the current cycle id equals id.
func CycleIs(id uint64) *Check {
	return New("cycle_is", func(ctx Context) (bool, string, string) {
		got := ctx.CycleID()
		return got == id, fmt.Sprintf("cycle %d", id), fmt.Sprintf("cycle %d", got)
	})
}

// TimeAtLeast passes if the elapsed simulated time is at least d.
func TimeAtLeast(d time.Duration) *Check {
	return New("time_at_least", func(ctx Context) (bool, string, string) {
		got := ctx.Time()
		return got >= d, fmt.Sprintf("time >= %v", d), fmt.Sprintf("time = %v", got)
	})
}

// DumpReport always passes; its report shows the current keyboard report.
func DumpReport() *Check {
	return New("dump_report", func(ctx Context) (bool, string, string) {
		return true, ctx.CurrentReport().String(), ""
	})
}

func joinKeycodes(keys []hid.Keycode) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return strings.Join(names, " ")
}
