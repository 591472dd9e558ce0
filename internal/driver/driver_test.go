package driver

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scancheck/internal/assertion"
	"github.com/roach88/scancheck/internal/device"
	"github.com/roach88/scancheck/internal/hid"
	"github.com/roach88/scancheck/internal/testutil"
)

// newKeyboard returns a 4x5 keyboard with KeyA at (2,3) and LeftShift at (0,0).
func newKeyboard(t *testing.T) *device.Keyboard {
	t.Helper()
	keymap := make([][]hid.Keycode, 4)
	for r := range keymap {
		keymap[r] = make([]hid.Keycode, 5)
	}
	keymap[2][3] = hid.KeyA
	keymap[0][0] = hid.KeyLeftShift
	kb, err := device.NewKeyboard(4, 5, keymap)
	require.NoError(t, err)
	return kb
}

// abortRecorder counts abort hook calls.
type abortRecorder struct {
	calls int
}

func (a *abortRecorder) abort() { a.calls++ }

func TestScenarioA_TicksAdvanceTimeAndCycleID(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(10*time.Millisecond))

	require.NoError(t, d.Cycles(3, nil, nil))

	assert.Equal(t, 30*time.Millisecond, d.Time())
	assert.Equal(t, uint64(3), d.CycleID())
	assert.True(t, d.Passed())
	assert.True(t, d.CheckStatus())
	assert.NoError(t, d.Finalize())
}

func TestScenarioB_QueuedReportAssertionConsumed(t *testing.T) {
	kb := newKeyboard(t)
	d := New(kb)

	d.QueueReportAssertion(assertion.KeycodeActive(hid.KeyA))
	require.NoError(t, d.KeyDown(2, 3))
	require.NoError(t, d.Cycle())

	assert.Equal(t, 0, d.QueuedReportAssertions())
	assert.Equal(t, 1, d.OverallReports())
	assert.True(t, d.CurrentReport().IsKeycodeActive(hid.KeyA))
	assert.True(t, d.Passed())
}

func TestScenarioC_LeftoverQueueFailsStatus(t *testing.T) {
	var out bytes.Buffer
	d := New(testutil.NewScriptedSubject(nil), WithOutput(&out))

	d.QueueReportAssertion(assertion.ReportEmpty())
	require.NoError(t, d.Cycle())

	assert.Equal(t, 1, d.QueuedReportAssertions())
	assert.True(t, d.Passed())
	assert.False(t, d.CheckStatus())
	assert.Contains(t, out.String(), "There are 1 left over assertions in the queue")

	err := d.Finalize()
	require.Error(t, err)
	assert.True(t, IsLeftoverQueueError(err))
	assert.False(t, IsAssertionFailure(err))
}

func TestScenarioD_AbortOnFirstError(t *testing.T) {
	rec := &abortRecorder{}
	subject := testutil.NewScriptedSubject(nil)
	d := New(subject,
		WithAbortOnFirstError(true),
		WithAbortFunc(rec.abort),
	)

	err := d.SkipTime(10 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, 1, rec.calls)
	assert.True(t, d.Aborted())

	assert.ErrorIs(t, d.Cycle(), ErrAborted)
	assert.ErrorIs(t, d.Cycles(3, nil, nil), ErrAborted)
	assert.Equal(t, uint64(0), d.CycleID())
	assert.Equal(t, uint64(0), subject.Scans())
}

func TestScenarioD_FailingAssertionStopsRemainingTicks(t *testing.T) {
	rec := &abortRecorder{}
	subject := testutil.NewScriptedSubject(nil)
	d := New(subject,
		WithAbortOnFirstError(true),
		WithAbortFunc(rec.abort),
	)

	d.AddPermanentCycleAssertion(assertion.Func("cycle below 2", func(ctx assertion.Context) bool {
		return ctx.CycleID() < 2
	}))

	err := d.Cycles(5, nil, nil)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, uint64(2), d.CycleID())
	assert.Equal(t, uint64(2), subject.Scans())
}

func TestScenarioD_DefaultAbortExits(t *testing.T) {
	var codes []int
	prev := exit
	exit = func(code int) { codes = append(codes, code) }
	t.Cleanup(func() { exit = prev })

	d := New(testutil.NewScriptedSubject(nil), WithAbortOnFirstError(true))
	_ = d.SkipTime(time.Millisecond)

	assert.Equal(t, []int{1}, codes)
}

func TestScenarioE_SkipTimeRoundsUpToWholeCycles(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(10*time.Millisecond))

	require.NoError(t, d.SkipTime(25*time.Millisecond))

	assert.Equal(t, uint64(3), d.CycleID())
	assert.Equal(t, 30*time.Millisecond, d.Time())
}

func TestSkipTime_ExactMultiple(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(10*time.Millisecond))

	require.NoError(t, d.SkipTime(30*time.Millisecond))

	assert.Equal(t, uint64(3), d.CycleID())
	assert.Equal(t, 30*time.Millisecond, d.Time())
}

func TestSkipTime_LogsTicksSkipped(t *testing.T) {
	var out bytes.Buffer
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(10*time.Millisecond), WithOutput(&out))

	require.NoError(t, d.Cycles(2, nil, nil))
	require.NoError(t, d.SkipTime(25*time.Millisecond))

	assert.Equal(t, uint64(5), d.CycleID())
	assert.Contains(t, out.String(), "30 ms (3 cycles) skipped")
}

func TestSkipTime_ZeroRunsNoTicks(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(10*time.Millisecond))

	require.NoError(t, d.SkipTime(0, assertion.CycleIs(0)))

	assert.Equal(t, uint64(0), d.CycleID())
	assert.True(t, d.Passed())
}

func TestSkipTime_StopAssertionsAfterSkip(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(10*time.Millisecond))

	require.NoError(t, d.SkipTime(25*time.Millisecond,
		assertion.TimeAtLeast(25*time.Millisecond),
		assertion.CycleIs(3),
	))
	assert.True(t, d.Passed())
}

func TestSkipTime_WithoutCycleDuration(t *testing.T) {
	var out bytes.Buffer
	d := New(testutil.NewScriptedSubject(nil), WithOutput(&out))

	err := d.SkipTime(10 * time.Millisecond)

	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "cycle duration not set")
	assert.False(t, d.Passed())
	assert.Equal(t, uint64(0), d.CycleID())
	assert.Contains(t, out.String(), "cycle duration not set")
}

func TestSkipTime_NegativeDuration(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(10*time.Millisecond))

	err := d.SkipTime(-time.Millisecond)

	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, uint64(0), d.CycleID())
}

func TestSkipTime_OverBudget(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil),
		WithCycleDuration(10*time.Millisecond),
		WithMaxCycles(5),
	)

	err := d.SkipTime(51 * time.Millisecond)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, uint64(0), d.CycleID())

	require.NoError(t, d.SkipTime(50*time.Millisecond))
	assert.Equal(t, uint64(5), d.CycleID())
}

func TestCycles_DefaultCount(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil))
	require.NoError(t, d.Cycles(0, nil, nil))
	assert.Equal(t, uint64(DefaultCycleCount), d.CycleID())

	d = New(testutil.NewScriptedSubject(nil), WithDefaultCycles(2))
	require.NoError(t, d.Cycles(0, nil, nil))
	assert.Equal(t, uint64(2), d.CycleID())
}

func TestCycles_NegativeCount(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil))

	err := d.Cycles(-1, nil, nil)

	assert.True(t, IsConfigurationError(err))
	assert.False(t, d.Passed())
	assert.Equal(t, uint64(0), d.CycleID())
}

func TestCycles_OverBudget(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithMaxCycles(3))

	err := d.Cycles(4, nil, nil)

	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, uint64(0), d.CycleID())
}

func TestCycles_EachAfterEveryTickStopOnce(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil))

	var eachCycles, stopCycles []uint64
	each := assertion.Func("each", func(ctx assertion.Context) bool {
		eachCycles = append(eachCycles, ctx.CycleID())
		return true
	})
	stop := assertion.Func("stop", func(ctx assertion.Context) bool {
		stopCycles = append(stopCycles, ctx.CycleID())
		return true
	})

	require.NoError(t, d.Cycles(3, []assertion.Assertion{stop}, []assertion.Assertion{each}))

	assert.Equal(t, []uint64{1, 2, 3}, eachCycles)
	assert.Equal(t, []uint64{3}, stopCycles)
}

func TestCycle_StopAssertionSeesAdvancedClock(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil), WithCycleDuration(5*time.Millisecond))

	require.NoError(t, d.Cycle(assertion.CycleIs(1), assertion.TimeAtLeast(5*time.Millisecond)))
	assert.True(t, d.Passed())
}

func TestQueuedCycleAssertions_RunOnceThenCleared(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil))

	calls := 0
	d.QueueCycleAssertion(assertion.Func("once", func(assertion.Context) bool {
		calls++
		return true
	}))
	assert.Equal(t, 1, d.QueuedCycleAssertions())

	require.NoError(t, d.Cycles(3, nil, nil))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, d.QueuedCycleAssertions())
}

func TestReportsInCycle_ResetEachTick(t *testing.T) {
	subject := testutil.NewScriptedSubject(nil).
		Emit(1, hid.NewReport(hid.KeyA), hid.Report{}).
		Emit(2, hid.NewReport(hid.KeyB))
	d := New(subject)

	d.QueueReportAssertion(
		assertion.NthReportInCycle(1),
		assertion.NthReportInCycle(2),
		assertion.NthReportInCycle(1),
	)
	require.NoError(t, d.Cycle(assertion.ReportsInCycle(2)))
	require.NoError(t, d.Cycle(assertion.ReportsInCycle(1), assertion.OverallReports(3)))

	assert.True(t, d.Passed())
	assert.True(t, d.CheckStatus())
}

func TestOneQueuedAssertionPerReport(t *testing.T) {
	subject := testutil.NewScriptedSubject(nil).Emit(1, hid.NewReport(hid.KeyA))
	d := New(subject)

	d.QueueReportAssertion(assertion.KeycodeActive(hid.KeyA), assertion.KeycodeActive(hid.KeyA))
	require.NoError(t, d.Cycle())

	assert.Equal(t, 1, d.QueuedReportAssertions())
}

func TestFailedAssertion_AccumulatesAndReports(t *testing.T) {
	var out bytes.Buffer
	subject := testutil.NewScriptedSubject(nil).Emit(1, hid.NewReport(hid.KeyA))
	d := New(subject, WithOutput(&out))

	d.QueueReportAssertion(assertion.KeycodeActive(hid.KeyB))
	require.NoError(t, d.Cycles(2, nil, nil))

	assert.False(t, d.Passed())
	assert.Equal(t, uint64(2), d.CycleID())
	assert.Contains(t, out.String(), "*** Assertion failed: keycode_active")

	err := d.Finalize()
	assert.True(t, IsAssertionFailure(err))
	assert.False(t, IsLeftoverQueueError(err))
	assert.Contains(t, err.Error(), "ASSERTION_FAILED=1")
}

func TestStrictMode_QueueUnderflow(t *testing.T) {
	var out bytes.Buffer
	subject := testutil.NewScriptedSubject(nil).Emit(1, hid.NewReport(hid.KeyA))
	d := New(subject, WithOutput(&out), WithStrict(true))

	require.NoError(t, d.Cycle())

	assert.False(t, d.Passed())
	assert.Contains(t, out.String(), "Encountered a report without assertions being queued")
	err := d.Finalize()
	assert.Contains(t, err.Error(), "QUEUE_UNDERFLOW: reports arrived with no assertion queued, QUEUE_UNDERFLOW=1")
	assert.False(t, IsAssertionFailure(err))
}

func TestFinalize_CodeFollowsRecordedFailure(t *testing.T) {
	tests := []struct {
		name    string
		run     func(d *Driver)
		want    ErrorCode
		summary string
	}{
		{
			name:    "configuration only",
			run:     func(d *Driver) { _ = d.Cycles(-1, nil, nil) },
			want:    ErrCodeConfiguration,
			summary: "CONFIGURATION: scheduling requests were rejected, CONFIGURATION=1",
		},
		{
			name:    "skip without duration",
			run:     func(d *Driver) { _ = d.SkipTime(10 * time.Millisecond) },
			want:    ErrCodeConfiguration,
			summary: "CONFIGURATION: scheduling requests were rejected, CONFIGURATION=1",
		},
		{
			name: "assertion and configuration",
			run: func(d *Driver) {
				_ = d.Cycles(-1, nil, nil)
				_ = d.Cycle(assertion.Func("never", func(assertion.Context) bool { return false }))
			},
			want:    ErrCodeAssertionFailed,
			summary: "ASSERTION_FAILED: not all assertions passed, ASSERTION_FAILED=1, CONFIGURATION=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(testutil.NewScriptedSubject(nil))
			tt.run(d)

			err := d.Finalize()
			require.Error(t, err)
			var de *Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.want, de.Code)
			assert.Contains(t, err.Error(), tt.summary)
			assert.Equal(t, tt.want == ErrCodeAssertionFailed, IsAssertionFailure(err))
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestNonStrict_UnexpectedReportIsFine(t *testing.T) {
	subject := testutil.NewScriptedSubject(nil).Emit(1, hid.NewReport(hid.KeyA))
	d := New(subject)

	require.NoError(t, d.Cycle())
	assert.True(t, d.Passed())
}

func TestCheckStatus_Idempotent(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil))
	d.QueueReportAssertion(assertion.ReportEmpty())

	first := d.CheckStatus()
	second := d.CheckStatus()

	assert.False(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, d.QueuedReportAssertions())
}

func TestFinalize_OnlyOnce(t *testing.T) {
	var out bytes.Buffer
	d := New(testutil.NewScriptedSubject(nil), WithOutput(&out))
	d.QueueReportAssertion(assertion.ReportEmpty())

	first := d.Finalize()
	n := out.Len()
	second := d.Finalize()

	assert.Equal(t, first, second)
	assert.Equal(t, n, out.Len())
}

func TestDebug_ReportsPassingAssertions(t *testing.T) {
	var out bytes.Buffer
	d := New(testutil.NewScriptedSubject(nil), WithOutput(&out), WithDebug(true))

	require.NoError(t, d.Cycle(assertion.CycleIs(1)))

	assert.Contains(t, out.String(), "Assertion passed: cycle_is")
	assert.Contains(t, out.String(), "No keyboard reports processed")
	assert.True(t, d.Passed())
}

func TestTranscript_PrefixesAndBanners(t *testing.T) {
	var out bytes.Buffer
	subject := testutil.NewScriptedSubject(nil).Emit(2, hid.NewReport(hid.KeyA))
	d := New(subject,
		WithOutput(&out),
		WithCycleDuration(10*time.Millisecond),
		WithRunID("run-1"),
		WithBannerWidth(20),
	)

	d.QueueReportAssertion(assertion.KeycodeActive(hid.KeyA))
	require.NoError(t, d.Cycles(3, nil, nil))
	require.NoError(t, d.Finalize())

	hashes := strings.Repeat("#", 20)
	want := strings.Join([]string{
		hashes,
		"t=   0, c=   0: scancheck keyboard scan test",
		"t=   0, c=   0: run: run-1",
		"t=   0, c=   0: cycle duration: 10ms",
		hashes,
		"t=   0, c=   0: Running 3 scan cycles",
		"t=  10, c=   2: Processing keyboard report 1 (1. in cycle 2)",
		"t=  10, c=   2: 1 queued report assertions",
		"t=  10, c=   2: 1 keyboard reports processed",
		"t=  30, c=   3: ",
		hashes,
		"t=  30, c=   3: Testing done",
		hashes,
		"t=  30, c=   3: All tests passed.",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestInput_TapLastsOneScan(t *testing.T) {
	kb := newKeyboard(t)
	d := New(kb)

	d.QueueReportAssertion(assertion.KeycodeActive(hid.KeyA), assertion.ReportEmpty())
	require.NoError(t, d.TapKey(2, 3))
	require.NoError(t, d.Cycles(2, nil, nil))

	assert.Equal(t, 2, d.OverallReports())
	assert.True(t, d.CheckStatus())
}

func TestInput_KeyUpAndClearAll(t *testing.T) {
	kb := newKeyboard(t)
	d := New(kb)

	require.NoError(t, d.KeyDown(0, 0))
	require.NoError(t, d.KeyDown(2, 3))
	d.QueueReportAssertion(assertion.All(
		assertion.ModifierActive(hid.KeyLeftShift),
		assertion.KeycodeActive(hid.KeyA),
	))
	require.NoError(t, d.Cycle())

	require.NoError(t, d.KeyUp(2, 3))
	d.QueueReportAssertion(assertion.KeycodesActive())
	require.NoError(t, d.Cycle())

	require.NoError(t, d.ClearAllKeys())
	d.QueueReportAssertion(assertion.ReportEmpty())
	require.NoError(t, d.Cycle())

	assert.True(t, d.CheckStatus())
	assert.Equal(t, device.NotPressed, kb.Keystate(0, 0))
}

func TestInput_OutsideMatrix(t *testing.T) {
	d := New(newKeyboard(t))

	err := d.KeyDown(9, 9)

	assert.True(t, IsConfigurationError(err))
	assert.False(t, d.Passed())
}

func TestInput_SubjectWithoutMatrix(t *testing.T) {
	d := New(testutil.NewScriptedSubject(nil))

	assert.ErrorIs(t, d.KeyDown(0, 0), ErrNoMatrix)
	assert.ErrorIs(t, d.ClearAllKeys(), ErrNoMatrix)
}

func TestInitKeyboard_ResetsSubject(t *testing.T) {
	kb := newKeyboard(t)
	d := New(kb)

	require.NoError(t, d.KeyDown(2, 3))
	require.NoError(t, d.Cycle())
	require.Equal(t, uint64(1), kb.Scans())

	require.NoError(t, d.InitKeyboard())

	assert.Equal(t, uint64(0), kb.Scans())
	assert.Equal(t, device.NotPressed, kb.Keystate(2, 3))
}

type recordingObserver struct {
	events   []string
	outcomes []Outcome
}

func (r *recordingObserver) CycleStarted(cycle uint64) {
	r.events = append(r.events, "start")
}

func (r *recordingObserver) ReportProcessed(seq int, cycle uint64, rep hid.Report) {
	r.events = append(r.events, "report")
}

func (r *recordingObserver) AssertionEvaluated(o Outcome) {
	r.events = append(r.events, "eval")
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingObserver) CycleFinished(cycle uint64, elapsed time.Duration, reports int) {
	r.events = append(r.events, "finish")
}

func TestObserver_SeesEventsInOrder(t *testing.T) {
	obs := &recordingObserver{}
	subject := testutil.NewScriptedSubject(nil).Emit(1, hid.NewReport(hid.KeyA))
	d := New(subject, WithObserver(obs))

	d.QueueReportAssertion(assertion.KeycodeActive(hid.KeyA))
	d.AddPermanentCycleAssertion(assertion.CycleIs(1))
	require.NoError(t, d.Cycle())

	assert.Equal(t, []string{"start", "report", "eval", "eval", "finish"}, obs.events)
	require.Len(t, obs.outcomes, 2)
	assert.Equal(t, assertion.DomainReport, obs.outcomes[0].Domain)
	assert.Equal(t, LifetimeQueued, obs.outcomes[0].Lifetime)
	assert.Equal(t, "keycode_active: keycode A active", obs.outcomes[0].Description)
	assert.Equal(t, LifetimePermanent, obs.outcomes[1].Lifetime)
	assert.True(t, obs.outcomes[1].Passed)
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: ErrCodeConfiguration, Message: "bad", Cycle: 3}
	assert.Equal(t, "CONFIGURATION: bad (cycle=3)", err.Error())

	err = &Error{Code: ErrCodeAborted, Message: "stop"}
	assert.Equal(t, "ABORTED: stop", err.Error())
}
