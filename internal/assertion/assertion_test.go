package assertion

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scancheck/internal/hid"
)

type fakeContext struct {
	report         hid.Report
	cycle          uint64
	elapsed        time.Duration
	reportsInCycle int
	overall        int
}

func (c *fakeContext) CurrentReport() hid.Report { return c.report }
func (c *fakeContext) CycleID() uint64           { return c.cycle }
func (c *fakeContext) Time() time.Duration       { return c.elapsed }
func (c *fakeContext) ReportsInCycle() int       { return c.reportsInCycle }
func (c *fakeContext) OverallReports() int       { return c.overall }

func bound(a Assertion, ctx Context) Assertion {
	a.Bind(ctx)
	return a
}

func TestUnboundAssertionFails(t *testing.T) {
	a := ReportEmpty()
	assert.False(t, a.Eval())

	buf := &bytes.Buffer{}
	a.Report(buf)
	assert.Contains(t, buf.String(), "Assertion failed: report_empty")
	assert.Contains(t, buf.String(), "unbound")
}

func TestReportBeforeEval(t *testing.T) {
	buf := &bytes.Buffer{}
	KeycodeActive(hid.KeyA).Report(buf)
	assert.Equal(t, "Assertion not evaluated: keycode_active\n", buf.String())
}

func TestReportDomainBuiltins(t *testing.T) {
	ctx := &fakeContext{report: hid.NewReport(hid.KeyA, hid.KeyEnter, hid.KeyLeftShift)}

	tests := []struct {
		name string
		a    Assertion
		want bool
	}{
		{"keycode active", KeycodeActive(hid.KeyA), true},
		{"keycode inactive", KeycodeActive(hid.KeyZ), false},
		{"modifier as keycode", KeycodeActive(hid.KeyLeftShift), false},
		{"exact keycodes", KeycodesActive(hid.KeyEnter, hid.KeyA), true},
		{"keycodes subset", KeycodesActive(hid.KeyA), false},
		{"keycodes ignore modifiers", KeycodesActive(hid.KeyA, hid.KeyEnter, hid.KeyLeftShift), true},
		{"modifier active", ModifierActive(hid.KeyLeftShift), true},
		{"modifier inactive", ModifierActive(hid.KeyRightShift), false},
		{"exact modifiers", ModifiersActive(hid.KeyLeftShift), true},
		{"exact modifiers mismatch", ModifiersActive(hid.KeyLeftShift, hid.KeyLeftAlt), false},
		{"any keycode", AnyKeycodeActive(), true},
		{"any modifier", AnyModifierActive(), true},
		{"empty", ReportEmpty(), false},
		{"equals", ReportEquals(hid.NewReport(hid.KeyLeftShift, hid.KeyEnter, hid.KeyA)), true},
		{"not equals", ReportEquals(hid.NewReport(hid.KeyA)), false},
		{"dump", DumpReport(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bound(tt.a, ctx).Eval())
		})
	}
}

func TestCounterBuiltins(t *testing.T) {
	ctx := &fakeContext{cycle: 4, elapsed: 40 * time.Millisecond, reportsInCycle: 2, overall: 5}

	assert.True(t, bound(ReportsInCycle(2), ctx).Eval())
	assert.False(t, bound(ReportsInCycle(1), ctx).Eval())
	assert.True(t, bound(NthReportInCycle(2), ctx).Eval())
	assert.True(t, bound(OverallReports(5), ctx).Eval())
	assert.False(t, bound(OverallReports(4), ctx).Eval())
	assert.True(t, bound(CycleIs(4), ctx).Eval())
	assert.False(t, bound(CycleIs(3), ctx).Eval())
	assert.True(t, bound(TimeAtLeast(40*time.Millisecond), ctx).Eval())
	assert.False(t, bound(TimeAtLeast(41*time.Millisecond), ctx).Eval())
}

func TestCheckReport_Failure(t *testing.T) {
	ctx := &fakeContext{report: hid.NewReport(hid.KeyB)}
	a := bound(KeycodesActive(hid.KeyA), ctx)
	require.False(t, a.Eval())

	buf := &bytes.Buffer{}
	a.Report(buf)
	assert.Equal(t,
		"Assertion failed: keycodes_active\n"+
			"  Expected: exactly keycodes [A] active\n"+
			"  Actual:   mods=[] keys=[B]\n",
		buf.String())
}

func TestCheckReport_Success(t *testing.T) {
	ctx := &fakeContext{report: hid.NewReport(hid.KeyA)}
	a := bound(KeycodeActive(hid.KeyA), ctx)
	require.True(t, a.Eval())

	buf := &bytes.Buffer{}
	a.Report(buf)
	assert.Equal(t, "Assertion passed: keycode_active\n  Expected: keycode A active\n", buf.String())
}

func TestFunc(t *testing.T) {
	ctx := &fakeContext{overall: 3}
	a := Func("odd report count", func(c Context) bool { return c.OverallReports()%2 == 1 })
	a.Bind(ctx)
	assert.True(t, a.Eval())
	assert.Equal(t, "custom", a.Name())
	assert.Equal(t, "custom: odd report count", a.String())

	ctx.overall = 4
	assert.False(t, a.Eval())
}

func TestNot(t *testing.T) {
	ctx := &fakeContext{}
	a := Not(ReportEmpty())
	a.Bind(ctx)
	assert.False(t, a.Eval())

	buf := &bytes.Buffer{}
	a.Report(buf)
	assert.Contains(t, buf.String(), "Negated assertion failed")
	assert.Contains(t, buf.String(), "Assertion passed: report_empty")

	ctx.report = hid.NewReport(hid.KeyA)
	assert.True(t, a.Eval())
}

func TestAll_EvaluatesEveryMember(t *testing.T) {
	ctx := &fakeContext{report: hid.NewReport(hid.KeyA)}
	second := KeycodeActive(hid.KeyA)
	g := All(ReportEmpty(), second)
	g.Bind(ctx)

	assert.False(t, g.Eval())
	assert.True(t, second.evaluated, "members after a failure are still evaluated")

	buf := &bytes.Buffer{}
	g.Report(buf)
	assert.Contains(t, buf.String(), "Group of 2 assertions")
	assert.Contains(t, buf.String(), "Assertion failed: report_empty")
	assert.Contains(t, buf.String(), "Assertion passed: keycode_active")
}
