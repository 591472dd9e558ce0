package assertion

import (
	"fmt"
	"io"
	"time"

	"github.com/roach88/scancheck/internal/hid"
)

// Context is the run state an assertion may observe.
type Context interface {
	CurrentReport() hid.Report
	CycleID() uint64
	Time() time.Duration
	ReportsInCycle() int
	OverallReports() int
}

// Assertion is one expectation.
type Assertion interface {
	// Eval computes the outcome against the bound context.
	Eval() bool
	// Report renders a diagnostic of the most recent evaluation.
	Report(w io.Writer)
	// Bind attaches the context the assertion observes.
	Bind(ctx Context)
}

// CheckFunc computes an outcome plus human-readable expected and actual
// descriptions.
type CheckFunc func(ctx Context) (passed bool, expected, actual string)

// Check is the concrete assertion behind every built-in constructor.
type Check struct {
	name string
	fn   CheckFunc
	ctx  Context

	evaluated bool
	passed    bool
	expected  string
	actual    string
}

var _ Assertion = (*Check)(nil)

// New creates an assertion from a check function.
func New(name string, fn CheckFunc) *Check {
	return &Check{name: name, fn: fn}
}

// Func adapts a plain predicate. expected describes the condition.
func Func(expected string, fn func(ctx Context) bool) *Check {
	return New("custom", func(ctx Context) (bool, string, string) {
		return fn(ctx), expected, "predicate returned false"
	})
}

// Bind implements Assertion.
func (c *Check) Bind(ctx Context) {
	c.ctx = ctx
}

// Eval implements Assertion.
func (c *Check) Eval() bool {
	c.evaluated = true
	if c.ctx == nil {
		c.passed = false
		c.expected = "assertion bound to a driver"
		c.actual = "unbound"
		return false
	}
	c.passed, c.expected, c.actual = c.fn(c.ctx)
	return c.passed
}

// Report implements Assertion.
func (c *Check) Report(w io.Writer) {
	if !c.evaluated {
		fmt.Fprintf(w, "Assertion not evaluated: %s\n", c.name)
		return
	}
	status := "passed"
	if !c.passed {
		status = "failed"
	}
	fmt.Fprintf(w, "Assertion %s: %s\n", status, c.name)
	fmt.Fprintf(w, "  Expected: %s\n", c.expected)
	if !c.passed {
		fmt.Fprintf(w, "  Actual:   %s\n", c.actual)
	}
}

// Name returns the assertion type name.
func (c *Check) Name() string {
	return c.name
}

// String implements fmt.Stringer.
func (c *Check) String() string {
	if c.expected != "" {
		return c.name + ": " + c.expected
	}
	return c.name
}

// negation inverts another assertion.
type negation struct {
	inner Assertion
	last  bool
}

// Not inverts a.
func Not(a Assertion) Assertion {
	return &negation{inner: a}
}

func (n *negation) Bind(ctx Context) { n.inner.Bind(ctx) }

func (n *negation) Eval() bool {
	n.last = !n.inner.Eval()
	return n.last
}

func (n *negation) Report(w io.Writer) {
	status := "passed"
	if !n.last {
		status = "failed"
	}
	fmt.Fprintf(w, "Negated assertion %s, inner result follows\n", status)
	n.inner.Report(w)
}

func (n *negation) String() string {
	return fmt.Sprintf("not(%v)", n.inner)
}

// group requires all members to pass. Every member is evaluated so that the
// report shows each outcome.
type group struct {
	members []Assertion
	last    bool
}

// All combines assertions into one that passes only if every member passes.
func All(members ...Assertion) Assertion {
	return &group{members: members}
}

func (g *group) Bind(ctx Context) {
	for _, m := range g.members {
		m.Bind(ctx)
	}
}

func (g *group) Eval() bool {
	g.last = true
	for _, m := range g.members {
		if !m.Eval() {
			g.last = false
		}
	}
	return g.last
}

func (g *group) Report(w io.Writer) {
	fmt.Fprintf(w, "Group of %d assertions\n", len(g.members))
	for _, m := range g.members {
		m.Report(w)
	}
}

func (g *group) String() string {
	return fmt.Sprintf("all(%d)", len(g.members))
}
