package harness

import (
	"fmt"

	"github.com/roach88/scancheck/internal/assertion"
	"github.com/roach88/scancheck/internal/hid"
)

// BuildAssertion creates a driver assertion from its scenario description.
// A fresh assertion is returned on every call, so the same spec can be
// registered more than once.
func BuildAssertion(spec AssertionSpec) (assertion.Assertion, error) {
	a, err := buildAssertion(spec)
	if err != nil {
		return nil, err
	}
	if spec.Negate {
		return assertion.Not(a), nil
	}
	return a, nil
}

// BuildAssertions builds every spec in order.
func BuildAssertions(specs []AssertionSpec) ([]assertion.Assertion, error) {
	out := make([]assertion.Assertion, 0, len(specs))
	for i, spec := range specs {
		a, err := BuildAssertion(spec)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func buildAssertion(spec AssertionSpec) (assertion.Assertion, error) {
	switch spec.Type {
	case AssertKeycodeActive:
		k, err := parseKey(spec)
		if err != nil {
			return nil, err
		}
		return assertion.KeycodeActive(k), nil

	case AssertKeycodesActive:
		keys, err := hid.ParseKeycodes(spec.Keys)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Type, err)
		}
		for _, k := range keys {
			if k.IsModifier() {
				return nil, fmt.Errorf("%s: %s is a modifier, use modifiers_active", spec.Type, k)
			}
		}
		return assertion.KeycodesActive(keys...), nil

	case AssertModifierActive:
		k, err := parseKey(spec)
		if err != nil {
			return nil, err
		}
		if !k.IsModifier() {
			return nil, fmt.Errorf("%s: %s is not a modifier", spec.Type, k)
		}
		return assertion.ModifierActive(k), nil

	case AssertModifiersActive:
		mods, err := hid.ParseKeycodes(spec.Keys)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Type, err)
		}
		for _, k := range mods {
			if !k.IsModifier() {
				return nil, fmt.Errorf("%s: %s is not a modifier", spec.Type, k)
			}
		}
		return assertion.ModifiersActive(mods...), nil

	case AssertAnyKeycodeActive:
		return assertion.AnyKeycodeActive(), nil

	case AssertAnyModifier:
		return assertion.AnyModifierActive(), nil

	case AssertReportEmpty:
		return assertion.ReportEmpty(), nil

	case AssertNthReport:
		if spec.N < 1 {
			return nil, fmt.Errorf("%s: n must be at least 1", spec.Type)
		}
		return assertion.NthReportInCycle(spec.N), nil

	case AssertOverallReports:
		return assertion.OverallReports(spec.Count), nil

	case AssertReportsInCycle:
		return assertion.ReportsInCycle(spec.Count), nil

	case AssertCycleIs:
		return assertion.CycleIs(spec.Cycle), nil

	case AssertTimeAtLeast:
		return assertion.TimeAtLeast(spec.Time.Std()), nil

	case AssertDumpReport:
		return assertion.DumpReport(), nil

	case "":
		return nil, fmt.Errorf("assertion type is required")

	default:
		return nil, fmt.Errorf("unknown assertion type %q", spec.Type)
	}
}

func parseKey(spec AssertionSpec) (hid.Keycode, error) {
	if spec.Key == "" {
		return 0, fmt.Errorf("%s: key is required", spec.Type)
	}
	k, err := hid.ParseKeycode(spec.Key)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", spec.Type, err)
	}
	return k, nil
}
