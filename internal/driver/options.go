package driver

import (
	"io"
	"log/slog"
	"time"
)

type config struct {
	out               io.Writer
	width             int
	debug             bool
	cycleDuration     time.Duration
	abortOnFirstError bool
	abort             func()
	defaultCycles     int
	maxCycles         int
	strict            bool
	logger            *slog.Logger
	runID             string
	observers         []Observer
}

func defaultConfig() config {
	return config{
		defaultCycles: DefaultCycleCount,
		maxCycles:     DefaultMaxCycles,
	}
}

// Option configures a Driver.
type Option func(*config)

// WithOutput sets the writer receiving the diagnostic transcript.
// Default: discard.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// WithBannerWidth sets the width of error and banner borders.
func WithBannerWidth(n int) Option {
	return func(c *config) {
		c.width = n
	}
}

// WithDebug renders the report of passing assertions too, and logs idle
// cycles.
func WithDebug(enabled bool) Option {
	return func(c *config) {
		c.debug = enabled
	}
}

// WithCycleDuration sets the simulated time each tick takes.
// Zero (the default) disables SkipTime. Negative values are treated as zero.
func WithCycleDuration(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			d = 0
		}
		c.cycleDuration = d
	}
}

// WithAbortOnFirstError makes the first error diagnostic call the abort hook.
func WithAbortOnFirstError(enabled bool) Option {
	return func(c *config) {
		c.abortOnFirstError = enabled
	}
}

// WithAbortFunc replaces the abort hook. The default exits the process with
// status 1. If the hook returns, the driver refuses further ticks.
func WithAbortFunc(fn func()) Option {
	return func(c *config) {
		c.abort = fn
	}
}

// WithDefaultCycles sets the count Cycles runs when asked for 0.
//
// Default: 5 (DefaultCycleCount).
func WithDefaultCycles(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.defaultCycles = n
		}
	}
}

// WithMaxCycles bounds the ticks a single scheduling call may run.
//
// Default: 1_000_000 (DefaultMaxCycles).
func WithMaxCycles(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxCycles = n
		}
	}
}

// WithStrict makes a report that arrives with no queued report assertion a
// failure.
func WithStrict(enabled bool) Option {
	return func(c *config) {
		c.strict = enabled
	}
}

// WithLogger sets the structured logger for operational events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObserver registers an observer. Observers are notified in
// registration order.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithRunID sets the identifier printed in the header banner.
func WithRunID(id string) Option {
	return func(c *config) {
		c.runID = id
	}
}
