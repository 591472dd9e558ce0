// Package diag writes the human-readable diagnostic transcript of a run.
//
// Every line written through a Stream starts with the simulated time and
// cycle id of the moment it was written:
//
//	t=  30, c=   3: Running 3 scan cycles
//
// Three stream flavors exist. Log streams write plain lines. Error streams
// frame their lines with a border of '!' characters, prefix each line with
// "*** " and, when the sink is configured to abort on the first error, call
// the abort hook once the stream is closed. Header streams frame a banner with
// '#' borders.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultWidth is the border width used when none is configured.
const DefaultWidth = 80

// Clock supplies the line prefix values.
type Clock interface {
	Time() time.Duration
	CycleID() uint64
}

// Sink owns the output writer and the error policy shared by all streams.
type Sink struct {
	out          io.Writer
	clock        Clock
	width        int
	abortOnError bool
	abort        func()
	errors       int
}

// Option configures a Sink.
type Option func(*Sink)

// WithWidth sets the border width. Values below 16 are ignored.
func WithWidth(n int) Option {
	return func(s *Sink) {
		if n >= 16 {
			s.width = n
		}
	}
}

// WithAbortOnError makes every closed error stream call the abort hook.
func WithAbortOnError(enabled bool) Option {
	return func(s *Sink) {
		s.abortOnError = enabled
	}
}

// WithAbortFunc replaces the abort hook. The default exits the process
// with status 1.
func WithAbortFunc(fn func()) Option {
	return func(s *Sink) {
		if fn != nil {
			s.abort = fn
		}
	}
}

// New creates a sink writing to out. A nil out discards everything.
func New(out io.Writer, clock Clock, opts ...Option) *Sink {
	if out == nil {
		out = io.Discard
	}
	s := &Sink{
		out:   out,
		clock: clock,
		width: DefaultWidth,
		abort: func() { os.Exit(1) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrorCount returns how many error streams have been opened.
func (s *Sink) ErrorCount() int {
	return s.errors
}

// AbortOnError reports whether closing an error stream aborts.
func (s *Sink) AbortOnError() bool {
	return s.abortOnError
}

// Log opens a plain stream.
func (s *Sink) Log() *Stream {
	return &Stream{sink: s, kind: kindLog, lineStart: true}
}

// Error opens an error stream and writes its top border.
func (s *Sink) Error() *Stream {
	s.errors++
	st := &Stream{sink: s, kind: kindError, lineStart: true}
	border := strings.Repeat("!", s.width)
	fmt.Fprintf(s.out, "%s\nError:\n%s\n", border, border)
	return st
}

// Header opens a banner stream and writes its top border.
func (s *Sink) Header() *Stream {
	st := &Stream{sink: s, kind: kindHeader, lineStart: true}
	fmt.Fprintln(s.out, strings.Repeat("#", s.width))
	return st
}

// Logf writes one formatted log message.
func (s *Sink) Logf(format string, args ...any) {
	s.Log().Printf(format, args...)
}

// Errorf writes one formatted error message and closes the stream,
// which aborts if so configured.
func (s *Sink) Errorf(format string, args ...any) {
	st := s.Error()
	st.Printf(format, args...)
	st.Close()
}

// Banner writes each line inside a header stream.
func (s *Sink) Banner(lines ...string) {
	st := s.Header()
	for _, line := range lines {
		st.Printf("%s\n", line)
	}
	st.Close()
}

func (s *Sink) prefix() string {
	if s.clock == nil {
		return ""
	}
	return fmt.Sprintf("t=%4d, c=%4d: ", s.clock.Time().Milliseconds(), s.clock.CycleID())
}
