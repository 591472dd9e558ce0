package driver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/roach88/scancheck/internal/assertion"
	"github.com/roach88/scancheck/internal/diag"
	"github.com/roach88/scancheck/internal/hid"
)

// Driver schedules scan cycles and evaluates assertions.
//
// A Driver is not safe for concurrent use. All calls, including those made
// by the subject while it scans, happen on one goroutine.
type Driver struct {
	cfg      config
	subject  Subject
	consumer *ReportConsumer
	sink     *diag.Sink
	logger   *slog.Logger
	clock    *Clock

	queuedReports    *assertion.Queue
	permanentReports *assertion.Set
	queuedCycles     *assertion.Queue
	permanentCycles  *assertion.Set

	current        hid.Report
	reportsInCycle int
	overallReports int

	passed    bool
	aborted   bool
	failures  map[ErrorCode]int
	finalized bool
	finalErr  error
}

// exit terminates the process when no abort hook is configured.
var exit = os.Exit

var _ assertion.Context = (*Driver)(nil)
var _ diag.Clock = (*Driver)(nil)

// New creates a driver for subject, registers itself as the subject's report
// sink and writes the header banner.
func New(subject Subject, opts ...Option) *Driver {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Driver{
		cfg:      cfg,
		subject:  subject,
		logger:   cfg.logger,
		clock:    NewClock(cfg.cycleDuration),
		passed:   true,
		failures: make(map[ErrorCode]int),
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sinkOpts := []diag.Option{
		diag.WithAbortOnError(cfg.abortOnFirstError),
		diag.WithAbortFunc(d.abort),
	}
	if cfg.width > 0 {
		sinkOpts = append(sinkOpts, diag.WithWidth(cfg.width))
	}
	d.sink = diag.New(cfg.out, d, sinkOpts...)

	d.queuedReports = assertion.NewQueue(assertion.DomainReport, d)
	d.permanentReports = assertion.NewSet(assertion.DomainReport, d)
	d.queuedCycles = assertion.NewQueue(assertion.DomainCycle, d)
	d.permanentCycles = assertion.NewSet(assertion.DomainCycle, d)

	d.consumer = &ReportConsumer{d: d}
	subject.SetReportSink(d.consumer)

	d.header()
	return d
}

// CurrentReport returns the most recently processed report.
func (d *Driver) CurrentReport() hid.Report { return d.current }

// CycleID returns the id of the current (or last completed) cycle.
func (d *Driver) CycleID() uint64 { return d.clock.Cycle() }

// Time returns the simulated elapsed time.
func (d *Driver) Time() time.Duration { return d.clock.Elapsed() }

// ReportsInCycle returns the reports processed in the current cycle.
func (d *Driver) ReportsInCycle() int { return d.reportsInCycle }

// OverallReports returns the reports processed since the driver was created.
func (d *Driver) OverallReports() int { return d.overallReports }

// CycleDuration returns the simulated duration of one tick.
func (d *Driver) CycleDuration() time.Duration { return d.clock.Step() }

// Passed returns the aggregate result so far.
func (d *Driver) Passed() bool { return d.passed }

// Aborted reports whether the abort hook fired and returned.
func (d *Driver) Aborted() bool { return d.aborted }

// Consumer returns the adapter registered as the subject's report sink.
func (d *Driver) Consumer() *ReportConsumer { return d.consumer }

// Sink returns the diagnostic sink.
func (d *Driver) Sink() *diag.Sink { return d.sink }

// QueuedReportAssertions returns how many queued report assertions are
// waiting for a report.
func (d *Driver) QueuedReportAssertions() int { return d.queuedReports.Len() }

// PermanentReportAssertions returns the permanent report assertion count.
func (d *Driver) PermanentReportAssertions() int { return d.permanentReports.Len() }

// QueuedCycleAssertions returns how many queued cycle assertions will run
// after the next tick.
func (d *Driver) QueuedCycleAssertions() int { return d.queuedCycles.Len() }

// PermanentCycleAssertions returns the permanent cycle assertion count.
func (d *Driver) PermanentCycleAssertions() int { return d.permanentCycles.Len() }

// QueueReportAssertion appends assertions to the queued report queue. Each
// report processed consumes exactly one of them.
func (d *Driver) QueueReportAssertion(as ...assertion.Assertion) {
	d.queuedReports.PushBack(as...)
}

// AddPermanentReportAssertion registers assertions evaluated on every report.
func (d *Driver) AddPermanentReportAssertion(as ...assertion.Assertion) {
	d.permanentReports.Add(as...)
}

// QueueCycleAssertion appends assertions evaluated after the next tick only.
func (d *Driver) QueueCycleAssertion(as ...assertion.Assertion) {
	d.queuedCycles.PushBack(as...)
}

// AddPermanentCycleAssertion registers assertions evaluated after every tick.
func (d *Driver) AddPermanentCycleAssertion(as ...assertion.Assertion) {
	d.permanentCycles.Add(as...)
}

// Cycle runs one tick, then evaluates stop.
func (d *Driver) Cycle(stop ...assertion.Assertion) error {
	if d.aborted {
		return ErrAborted
	}
	d.sink.Logf("Running single scan cycle\n")
	d.cycle(stop, LifetimeStop)
	d.sink.Logf("\n")
	return d.abortErr()
}

// Cycles runs n ticks, evaluating each after every tick and stop once after
// the last. n == 0 runs the configured default count.
func (d *Driver) Cycles(n int, stop, each []assertion.Assertion) error {
	if d.aborted {
		return ErrAborted
	}
	if n < 0 {
		return d.configurationError(fmt.Sprintf("cycle count must not be negative (got %d)", n))
	}
	if n == 0 {
		n = d.cfg.defaultCycles
	}
	if err := checkCycleBudget(int64(n), d.cfg.maxCycles); err != nil {
		return d.configurationError(err.Error())
	}

	d.sink.Logf("Running %d scan cycles\n", n)
	d.bind(stop)
	for i := 0; i < n && !d.aborted; i++ {
		d.cycle(each, LifetimeEach)
	}
	d.evaluateStop(stop)
	d.sink.Logf("\n")
	return d.abortErr()
}

// SkipTime runs ticks until at least dt of simulated time has passed, then
// evaluates stop. It requires a non-zero cycle duration.
func (d *Driver) SkipTime(dt time.Duration, stop ...assertion.Assertion) error {
	if d.aborted {
		return ErrAborted
	}
	step := d.clock.Step()
	if step == 0 {
		return d.configurationError("cycle duration not set: " +
			"configure a cycle duration greater than zero before using time based testing")
	}
	if dt < 0 {
		return d.configurationError(fmt.Sprintf("time to skip must not be negative (got %v)", dt))
	}
	if err := checkCycleBudget(cyclesToSkip(dt, step), d.cfg.maxCycles); err != nil {
		return d.configurationError(fmt.Sprintf("skipping %v: %v", dt, err))
	}

	d.sink.Logf("Skipping dt >= %d ms\n", dt.Milliseconds())
	d.bind(stop)
	start := d.Time()
	ticks := 0
	for d.Time()-start < dt && !d.aborted {
		d.cycle(nil, LifetimeStop)
		ticks++
	}
	d.sink.Logf("%d ms (%d cycles) skipped\n", (d.Time() - start).Milliseconds(), ticks)
	d.evaluateStop(stop)
	d.sink.Logf("\n")
	return d.abortErr()
}

// CheckStatus reports whether the run has passed so far: no queued report
// assertion is left over and every evaluation passed. It writes a summary
// diagnostic and changes nothing else.
func (d *Driver) CheckStatus() bool {
	ok := true
	if n := d.queuedReports.Len(); n > 0 {
		d.sink.Errorf("There are %d left over assertions in the queue\n", n)
		ok = false
	}
	if !d.passed {
		d.sink.Errorf("Not all assertions passed\n")
		ok = false
	}
	if ok {
		d.sink.Logf("All tests passed.\n")
	} else {
		d.sink.Errorf("Errors occurred\n")
	}
	return ok
}

// Finalize writes the footer and returns nil if the run passed. Otherwise it
// returns LEFTOVER_QUEUE joined with a summary coded after the first failure
// category recorded (ASSERTION_FAILED, QUEUE_UNDERFLOW, then CONFIGURATION). Later calls
// return the same result without writing anything.
func (d *Driver) Finalize() error {
	if d.finalized {
		return d.finalErr
	}
	d.finalized = true

	d.sink.Banner("Testing done")
	if d.CheckStatus() {
		return nil
	}

	var errs []error
	if n := d.queuedReports.Len(); n > 0 {
		errs = append(errs, &Error{
			Code:    ErrCodeLeftoverQueue,
			Message: fmt.Sprintf("%d queued report assertions left over", n),
			Cycle:   d.CycleID(),
		})
	}
	if !d.passed {
		details := make(map[string]string, len(d.failures))
		for code, n := range d.failures {
			details[string(code)] = strconv.Itoa(n)
		}
		code := d.failureCode()
		errs = append(errs, &Error{
			Code:    code,
			Message: d.failureSummary(code),
			Cycle:   d.CycleID(),
			Details: details,
		})
	}
	d.finalErr = errors.Join(errs...)
	d.logger.Info("run finalized", "passed", false, "cycles", d.CycleID(), "reports", d.overallReports)
	return d.finalErr
}

// failureSummaryCodes orders the failure categories by precedence.
var failureSummaryCodes = []ErrorCode{ErrCodeAssertionFailed, ErrCodeQueueUnderflow, ErrCodeConfiguration}

// failureCode returns the first recorded failure category, so a run that
// only failed on configuration is not reported as an assertion failure.
func (d *Driver) failureCode() ErrorCode {
	for _, code := range failureSummaryCodes {
		if d.failures[code] > 0 {
			return code
		}
	}
	return ErrCodeAssertionFailed
}

func (d *Driver) failureSummary(code ErrorCode) string {
	var msg string
	switch code {
	case ErrCodeQueueUnderflow:
		msg = "reports arrived with no assertion queued"
	case ErrCodeConfiguration:
		msg = "scheduling requests were rejected"
	default:
		msg = "not all assertions passed"
	}
	for _, c := range failureSummaryCodes {
		if n := d.failures[c]; n > 0 {
			msg += fmt.Sprintf(", %s=%d", c, n)
		}
	}
	return msg
}

// cycle runs one tick. list is bound before the subject scans and
// evaluated after the clock advances.
func (d *Driver) cycle(list []assertion.Assertion, lifetime Lifetime) {
	id := d.clock.Next()
	d.reportsInCycle = 0
	d.logger.Debug("cycle started", "cycle", id)
	for _, o := range d.cfg.observers {
		o.CycleStarted(id)
	}

	d.bind(list)

	if d.cfg.debug {
		d.sink.Logf("Scan cycle %d\n", id)
	}
	d.subject.Scan()
	if d.reportsInCycle == 0 {
		if d.cfg.debug {
			d.sink.Logf("No keyboard reports processed\n")
		}
	} else {
		d.sink.Logf("%d keyboard reports processed\n", d.reportsInCycle)
	}

	d.clock.Advance()

	if len(list) > 0 {
		d.sink.Logf("Processing %d cycle assertions\n", len(list))
		for _, a := range list {
			d.evaluate(a, assertion.DomainCycle, lifetime)
		}
	}

	if !d.queuedCycles.Empty() {
		d.sink.Logf("Processing %d queued cycle assertions\n", d.queuedCycles.Len())
		for _, a := range d.queuedCycles.All() {
			d.evaluate(a, assertion.DomainCycle, LifetimeQueued)
		}
		d.queuedCycles.Clear()
	}

	if !d.permanentCycles.Empty() {
		d.sink.Logf("Processing %d permanent cycle assertions\n", d.permanentCycles.Len())
		for _, a := range d.permanentCycles.All() {
			d.evaluate(a, assertion.DomainCycle, LifetimePermanent)
		}
	}

	for _, o := range d.cfg.observers {
		o.CycleFinished(id, d.Time(), d.reportsInCycle)
	}
}

// processReport handles one report emitted during Scan.
func (d *Driver) processReport(r hid.Report) {
	d.current = r
	d.overallReports++
	d.reportsInCycle++
	d.logger.Debug("report processed",
		"seq", d.overallReports,
		"cycle", d.CycleID(),
		"report", r.String(),
	)
	for _, o := range d.cfg.observers {
		o.ReportProcessed(d.overallReports, d.CycleID(), r)
	}

	d.sink.Logf("Processing keyboard report %d (%d. in cycle %d)\n",
		d.overallReports, d.reportsInCycle, d.CycleID())

	queued := d.queuedReports.Len()
	d.sink.Logf("%d queued report assertions\n", queued)
	if queued > 0 {
		a, err := d.queuedReports.PopFront()
		if err != nil {
			d.fail(ErrCodeQueueUnderflow, fmt.Sprintf("queued report assertion unavailable: %v", err))
		} else {
			d.evaluate(a, assertion.DomainReport, LifetimeQueued)
		}
	}

	if !d.permanentReports.Empty() {
		d.sink.Logf("%d permanent report assertions\n", d.permanentReports.Len())
		for _, a := range d.permanentReports.All() {
			d.evaluate(a, assertion.DomainReport, LifetimePermanent)
		}
	}

	if queued == 0 && d.cfg.strict {
		d.fail(ErrCodeQueueUnderflow, "Encountered a report without assertions being queued")
	}
}

// evaluate applies the evaluation policy to one assertion.
func (d *Driver) evaluate(a assertion.Assertion, domain assertion.Domain, lifetime Lifetime) {
	if d.aborted {
		return
	}
	ok := a.Eval()
	if !ok {
		d.passed = false
		d.failures[ErrCodeAssertionFailed]++
	}

	o := Outcome{
		Cycle:       d.CycleID(),
		Time:        d.Time(),
		Domain:      domain,
		Lifetime:    lifetime,
		Description: describe(a),
		Passed:      ok,
	}
	d.logger.Debug("assertion evaluated",
		"cycle", o.Cycle,
		"domain", domain.String(),
		"lifetime", string(lifetime),
		"passed", ok,
	)
	for _, obs := range d.cfg.observers {
		obs.AssertionEvaluated(o)
	}

	switch {
	case !ok:
		st := d.sink.Error()
		a.Report(st)
		st.Close()
	case d.cfg.debug:
		st := d.sink.Log()
		a.Report(st)
		st.Close()
	}
}

func (d *Driver) evaluateStop(stop []assertion.Assertion) {
	if len(stop) == 0 || d.aborted {
		return
	}
	d.sink.Logf("Processing %d cycle assertions on stop\n", len(stop))
	for _, a := range stop {
		d.evaluate(a, assertion.DomainCycle, LifetimeStop)
	}
}

func (d *Driver) bind(list []assertion.Assertion) {
	for _, a := range list {
		a.Bind(d)
	}
}

// fail records a failure that is not an assertion outcome.
func (d *Driver) fail(code ErrorCode, msg string) {
	d.passed = false
	d.failures[code]++
	d.logger.Warn("run failure", "code", string(code), "cycle", d.CycleID(), "message", msg)
	d.sink.Errorf("%s\n", msg)
}

func (d *Driver) configurationError(msg string) error {
	err := &Error{Code: ErrCodeConfiguration, Message: msg, Cycle: d.CycleID()}
	d.fail(ErrCodeConfiguration, msg)
	return err
}

// abort is the sink's abort hook.
func (d *Driver) abort() {
	d.aborted = true
	d.logger.Warn("aborting on first error", "cycle", d.CycleID())
	if d.cfg.abort != nil {
		d.cfg.abort()
		return
	}
	exit(1)
}

func (d *Driver) abortErr() error {
	if d.aborted {
		return ErrAborted
	}
	return nil
}

func (d *Driver) header() {
	lines := []string{"scancheck keyboard scan test"}
	if d.cfg.runID != "" {
		lines = append(lines, "run: "+d.cfg.runID)
	}
	if step := d.clock.Step(); step > 0 {
		lines = append(lines, fmt.Sprintf("cycle duration: %v", step))
	} else {
		lines = append(lines, "cycle duration: not set")
	}
	d.sink.Banner(lines...)
}

func describe(a assertion.Assertion) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", a)
}
