package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/scancheck/internal/device"
	"github.com/roach88/scancheck/internal/driver"
	"github.com/roach88/scancheck/internal/store"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger            *slog.Logger
	out               io.Writer
	runIDs            RunIDGenerator
	width             int
	debug             bool
	abortOnFirstError bool
}

// WithLogger sets the structured logger passed to the driver.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOutput mirrors the transcript to w while the run executes.
func WithOutput(w io.Writer) Option {
	return func(c *runConfig) {
		c.out = w
	}
}

// WithRunIDGenerator sets the generator used when a scenario has no run_id.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *runConfig) {
		if g != nil {
			c.runIDs = g
		}
	}
}

// WithBannerWidth sets the transcript banner width.
func WithBannerWidth(n int) Option {
	return func(c *runConfig) {
		c.width = n
	}
}

// WithDebug forces debug transcript output on, regardless of the
// scenario config.
func WithDebug(enabled bool) Option {
	return func(c *runConfig) {
		c.debug = enabled
	}
}

// WithAbortOnFirstError forces abort-on-first-error on, regardless of the
// scenario config.
func WithAbortOnFirstError(enabled bool) Option {
	return func(c *runConfig) {
		c.abortOnFirstError = enabled
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory run log for isolation.
//
// Execution flow:
// 1. Build the simulated keyboard and a driver over it
// 2. Execute steps in order, recording reports and outcomes
// 3. Finalize the driver (Testing done banner and status check)
// 4. Evaluate checks against the run log
// 5. Return result with pass/fail, trace, transcript and errors
//
// A returned error means the harness itself failed (run log, context);
// test failures are reported through Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	keymap, err := scenario.Keyboard.keymap()
	if err != nil {
		return nil, fmt.Errorf("keyboard: %w", err)
	}
	kb, err := device.NewKeyboard(uint8(scenario.Keyboard.Rows), uint8(scenario.Keyboard.Cols), keymap)
	if err != nil {
		return nil, fmt.Errorf("keyboard: %w", err)
	}

	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := scenario.RunID
	if runID == "" {
		runID = cfg.runIDs.Generate()
	}

	if err := st.BeginRun(ctx, store.Run{
		ID:            runID,
		Name:          scenario.Name,
		CycleDuration: scenario.Config.CycleDuration.Std(),
	}); err != nil {
		return nil, err
	}

	var transcript bytes.Buffer
	var out io.Writer = &transcript
	if cfg.out != nil {
		out = io.MultiWriter(&transcript, cfg.out)
	}

	rec := newRecorder(ctx, st, runID)
	d := driver.New(kb, driverOptions(scenario.Config, cfg, out, rec, runID)...)

	result := NewResult()
	result.RunID = runID

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := executeStep(d, step)
		if err != nil && !errors.Is(err, driver.ErrAborted) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, stepKind(step), err))
		}
		if d.Aborted() {
			result.AddError(fmt.Sprintf("steps[%d]: run aborted on first error", i))
			break
		}

		cfg.logger.Debug("step completed",
			"step", i,
			"kind", stepKind(step),
			"cycle", d.CycleID(),
			"reports", d.OverallReports(),
		)
	}

	for _, err := range splitErrors(d.Finalize()) {
		result.AddError(err.Error())
	}
	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	if err := st.FinishRun(ctx, runID, result.Pass, d.CycleID(), d.OverallReports()); err != nil {
		return nil, err
	}

	checkErrors, err := EvaluateChecks(ctx, st, runID, scenario.Checks)
	if err != nil {
		return nil, err
	}
	for _, msg := range checkErrors {
		result.AddError(msg)
	}

	trace, err := ReadTrace(ctx, st, runID)
	if err != nil {
		return nil, err
	}

	result.Trace = trace
	result.Cycles = d.CycleID()
	result.Elapsed = d.Time()
	result.Reports = d.OverallReports()
	result.Aborted = d.Aborted()
	result.Transcript = transcript.String()

	return result, nil
}

func driverOptions(sc Config, cfg runConfig, out io.Writer, obs driver.Observer, runID string) []driver.Option {
	opts := []driver.Option{
		driver.WithOutput(out),
		driver.WithLogger(cfg.logger),
		driver.WithObserver(obs),
		driver.WithRunID(runID),
		driver.WithCycleDuration(sc.CycleDuration.Std()),
		driver.WithDebug(sc.Debug || cfg.debug),
		driver.WithStrict(sc.Strict),
		driver.WithAbortOnFirstError(sc.AbortOnFirstError || cfg.abortOnFirstError),
		// The run log must survive an abort, so the driver only enters
		// its aborted state instead of exiting the process.
		driver.WithAbortFunc(func() {}),
	}
	if cfg.width > 0 {
		opts = append(opts, driver.WithBannerWidth(cfg.width))
	}
	if sc.DefaultCycles > 0 {
		opts = append(opts, driver.WithDefaultCycles(sc.DefaultCycles))
	}
	if sc.MaxCycles > 0 {
		opts = append(opts, driver.WithMaxCycles(sc.MaxCycles))
	}
	return opts
}

// executeStep performs one scenario step on the driver.
func executeStep(d *driver.Driver, step Step) error {
	switch {
	case step.Press != nil:
		return d.KeyDown(step.Press.Row, step.Press.Col)
	case step.Release != nil:
		return d.KeyUp(step.Release.Row, step.Release.Col)
	case step.Tap != nil:
		return d.TapKey(step.Tap.Row, step.Tap.Col)
	case step.Clear:
		return d.ClearAllKeys()
	case step.Init:
		return d.InitKeyboard()

	case len(step.QueueReport) > 0:
		as, err := BuildAssertions(step.QueueReport)
		if err != nil {
			return err
		}
		d.QueueReportAssertion(as...)
	case len(step.PermanentReport) > 0:
		as, err := BuildAssertions(step.PermanentReport)
		if err != nil {
			return err
		}
		d.AddPermanentReportAssertion(as...)
	case len(step.QueueCycle) > 0:
		as, err := BuildAssertions(step.QueueCycle)
		if err != nil {
			return err
		}
		d.QueueCycleAssertion(as...)
	case len(step.PermanentCycle) > 0:
		as, err := BuildAssertions(step.PermanentCycle)
		if err != nil {
			return err
		}
		d.AddPermanentCycleAssertion(as...)

	case step.Cycle != nil:
		stop, err := BuildAssertions(step.Cycle.Stop)
		if err != nil {
			return err
		}
		return d.Cycle(stop...)
	case step.Cycles != nil:
		stop, err := BuildAssertions(step.Cycles.Stop)
		if err != nil {
			return err
		}
		each, err := BuildAssertions(step.Cycles.Each)
		if err != nil {
			return err
		}
		return d.Cycles(step.Cycles.N, stop, each)
	case step.Skip != nil:
		stop, err := BuildAssertions(step.Skip.Stop)
		if err != nil {
			return err
		}
		return d.SkipTime(step.Skip.Time.Std(), stop...)

	default:
		return fmt.Errorf("no action set")
	}
	return nil
}

func stepKind(s Step) string {
	if kinds := s.Kinds(); len(kinds) > 0 {
		return kinds[0]
	}
	return "empty"
}

// splitErrors unwraps an errors.Join result into its members.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
