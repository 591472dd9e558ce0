package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scancheck/internal/harness"
)

// Golden states of a tested scenario.
const (
	goldenMatch   = "match"
	goldenUpdated = "updated"
)

// goldenSubdir holds the snapshots of a scenarios directory.
const goldenSubdir = "golden"

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden snapshots from this run
	Filter string // glob over scenario file names, without extension

	// RunIDs overrides the run id generator (for testing).
	RunIDs harness.RunIDGenerator
}

// ScenarioResult is the verdict for one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Cycles uint64   `json:"cycles,omitempty"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult aggregates the verdicts of a test command.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run every scenario file in a directory and compare each trace
against its golden snapshot in <scenarios-dir>/golden/<name>.golden.

A matching snapshot passes the scenario even when its assertions fail,
since the snapshot pins the expected failure. Scenarios without a
snapshot are judged by their assertions and checks only.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  scancheck test ./scenarios
  scancheck test ./scenarios --filter "tap_*"
  scancheck test ./scenarios --update
  scancheck test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	w := cmd.OutOrStdout()
	jsonOut := opts.Format == "json"
	if len(files) == 0 && !jsonOut {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	goldenDir := filepath.Join(dir, goldenSubdir)
	for _, file := range files {
		verdict := testScenario(file, goldenDir, opts, cmd)
		if !jsonOut {
			writeVerdict(w, verdict)
		}
		result.add(verdict)
	}

	var failed error
	if result.Failed > 0 {
		failed = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if jsonOut {
		resp := CLIResponse{Status: "ok", Data: result}
		if failed != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: failed.Error()}
		}
		if err := (&OutputFormatter{Format: "json", Writer: w}).JSON(resp); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failed == nil {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return failed
}

// findScenarioFiles lists the YAML files under dir in lexical order,
// skipping the golden directory.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if path != dir && d.Name() == goldenSubdir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// testScenario runs one scenario file and judges it against its snapshot.
func testScenario(file, goldenDir string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	verdict := ScenarioResult{Name: scenario.Name}
	result, err := harness.Run(commandContext(cmd), scenario,
		harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())),
		harness.WithRunIDGenerator(opts.RunIDs),
	)
	if err != nil {
		verdict.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return verdict
	}
	verdict.RunID = result.RunID
	verdict.Cycles = result.Cycles

	if opts.Update {
		if err := harness.WriteGolden(goldenDir, scenario.Name, result); err != nil {
			verdict.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return verdict
		}
		verdict.Pass = true
		verdict.Golden = goldenUpdated
		return verdict
	}

	_, statErr := os.Stat(harness.GoldenPath(goldenDir, scenario.Name))
	switch {
	case statErr == nil:
		if err := harness.CompareGolden(goldenDir, scenario.Name, result); err != nil {
			verdict.Errors = []string{"trace does not match golden file (run with --update to regenerate)"}
			return verdict
		}
		verdict.Pass = true
		verdict.Golden = goldenMatch
	case errors.Is(statErr, fs.ErrNotExist):
		verdict.Pass = result.Pass
		verdict.Errors = result.Errors
	default:
		verdict.Errors = []string{fmt.Sprintf("failed to read golden file: %v", statErr)}
	}
	return verdict
}

func writeVerdict(w io.Writer, v ScenarioResult) {
	if !v.Pass {
		fmt.Fprintf(w, "✗ %s\n", v.Name)
		for _, e := range v.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if v.Golden == goldenUpdated {
		fmt.Fprintf(w, "✓ %s (golden updated)\n", v.Name)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", v.Name)
}
