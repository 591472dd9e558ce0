package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/scancheck/internal/hid"
	"github.com/roach88/scancheck/internal/store"
)

// CheckError is returned when a check fails.
type CheckError struct {
	Type     string // Check type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return fmt.Sprintf("Check failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateChecks runs every check against the run log of runID and returns
// one message per failed check. A non-nil error means the run log could not
// be queried.
func EvaluateChecks(ctx context.Context, st *store.Store, runID string, checks []Check) ([]string, error) {
	var failures []string

	for i, check := range checks {
		err := evaluateCheck(ctx, st, runID, check)
		var cerr *CheckError
		switch {
		case err == nil:
		case errors.As(err, &cerr):
			failures = append(failures, cerr.Error())
		default:
			return nil, fmt.Errorf("checks[%d]: %w", i, err)
		}
	}

	return failures, nil
}

func evaluateCheck(ctx context.Context, st *store.Store, runID string, check Check) error {
	switch check.Type {
	case CheckReportCount:
		n, err := st.CountReports(ctx, runID)
		if err != nil {
			return err
		}
		return expectCount(check, fmt.Sprintf("%d reports", check.Count), n, "reports")

	case CheckCycleCount:
		n, err := st.CountCycles(ctx, runID)
		if err != nil {
			return err
		}
		return expectCount(check, fmt.Sprintf("%d cycles", check.Count), n, "cycles")

	case CheckReportsInCycle:
		n, err := st.ReportsInCycle(ctx, runID, check.Cycle)
		if err != nil {
			return err
		}
		return expectCount(check,
			fmt.Sprintf("%d reports in cycle %d", check.Count, check.Cycle), n, "reports")

	case CheckFailedAssertions:
		n, err := st.FailedOutcomes(ctx, runID)
		if err != nil {
			return err
		}
		return expectCount(check, fmt.Sprintf("%d failed assertions", check.Count), n, "failed assertions")

	case CheckKeyReported:
		k, err := hid.ParseKeycode(check.Key)
		if err != nil {
			return err
		}
		found, err := st.KeyReported(ctx, runID, k)
		if err != nil {
			return err
		}
		if !found {
			return &CheckError{
				Type:     check.Type,
				Expected: fmt.Sprintf("a report with %s active", k),
				Actual:   "not found in run log",
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown check type %q", check.Type)
	}
}

func expectCount(check Check, expected string, actual int, unit string) error {
	if actual == check.Count {
		return nil
	}
	return &CheckError{
		Type:     check.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("%d %s", actual, unit),
	}
}
