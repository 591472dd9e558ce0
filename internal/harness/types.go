package harness

import "time"

// Trace event types.
const (
	EventReport    = "report"
	EventAssertion = "assertion"
)

// TraceEvent is one entry of a run trace: a processed report or an
// assertion evaluation.
type TraceEvent struct {
	Type  string `json:"type"`
	Cycle uint64 `json:"cycle"`

	// Report fields.
	Seq  int      `json:"seq,omitempty"`
	Keys []string `json:"keys,omitempty"`

	// Assertion fields.
	Domain      string `json:"domain,omitempty"`
	Lifetime    string `json:"lifetime,omitempty"`
	Description string `json:"description,omitempty"`
	Passed      bool   `json:"passed,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the driver finalized without error,
	// no step failed and every check held.
	Pass bool `json:"pass"`

	// RunID identifies the run in the run log and the transcript header.
	RunID string `json:"run_id"`

	// Cycles is the number of ticks run.
	Cycles uint64 `json:"cycles"`

	// Elapsed is the simulated time at the end of the run.
	Elapsed time.Duration `json:"elapsed"`

	// Reports is the number of reports processed.
	Reports int `json:"reports"`

	// Aborted is set when the run stopped on its first error.
	Aborted bool `json:"aborted,omitempty"`

	// Trace contains every report and assertion outcome in order.
	// Used for golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Transcript is the diagnostic output of the driver.
	Transcript string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
