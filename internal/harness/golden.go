package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/scancheck/internal/canonical"
)

// GoldenDir is where golden trace files live, relative to the test's
// package directory.
const GoldenDir = "testdata/golden"

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id"`
	Pass         bool         `json:"pass"`
	Cycles       uint64       `json:"cycles"`
	ElapsedMS    int64        `json:"elapsed_ms"`
	Trace        []TraceEvent `json:"trace"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(scenarioName string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenarioName,
		RunID:        result.RunID,
		Pass:         result.Pass,
		Cycles:       result.Cycles,
		ElapsedMS:    result.Elapsed.Milliseconds(),
		Trace:        result.Trace,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type":  event.Type,
			"cycle": event.Cycle,
		}
		switch event.Type {
		case EventReport:
			keys := make([]any, len(event.Keys))
			for j, k := range event.Keys {
				keys[j] = k
			}
			eventMap["seq"] = event.Seq
			eventMap["keys"] = keys
		case EventAssertion:
			eventMap["domain"] = event.Domain
			eventMap["lifetime"] = event.Lifetime
			eventMap["description"] = event.Description
			eventMap["passed"] = event.Passed
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.RunID,
		"pass":          s.Pass,
		"cycles":        s.Cycles,
		"elapsed_ms":    s.ElapsedMS,
		"trace":         traceList,
	}
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return canonical.Marshal(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	traceJSON, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

// GoldenPath returns the golden file for scenarioName under dir.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+".golden")
}

// CompareGolden checks a result against the golden file in dir outside of
// go test. It returns a descriptive error on mismatch.
func CompareGolden(dir, scenarioName string, result *Result) error {
	snapshot := NewSnapshot(scenarioName, result)
	got, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	path := GoldenPath(dir, scenarioName)
	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimRight(want, "\n"), got) {
		return fmt.Errorf("trace differs from %s\n  Expected: %s\n  Actual:   %s", path, want, got)
	}
	return nil
}

// WriteGolden writes the golden file for a result into dir.
func WriteGolden(dir, scenarioName string, result *Result) error {
	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create golden dir: %w", err)
	}
	if err := os.WriteFile(GoldenPath(dir, scenarioName), data, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}
