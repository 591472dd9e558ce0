package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scancheck/internal/harness"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Cycle  uint64 // optional - filter to one cycle
	Failed bool   // only failed assertions and the reports they ran on

	// RunIDs allows overriding the run id generator (for testing).
	RunIDs harness.RunIDGenerator
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	ScenarioName string               `json:"scenario_name"`
	RunID        string               `json:"run_id"`
	Pass         bool                 `json:"pass"`
	Timeline     []harness.TraceEvent `json:"timeline"`
	Stats        TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Cycles     uint64 `json:"cycles"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Reports    int    `json:"reports"`
	Assertions int    `json:"assertions"`
	Failed     int    `json:"failed"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario.yaml>",
		Short: "Show the per-report log of a scenario run",
		Long: `Run a scenario and print its run log: every processed report
followed by the assertions evaluated against it, then the cycle
assertions of each tick.

Examples:
  scancheck trace ./scenarios/tap_a.yaml
  scancheck trace ./scenarios/tap_a.yaml --cycle 2
  scancheck trace ./scenarios/tap_a.yaml --failed --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Cycle, "cycle", 0, "only show events of this cycle")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only show failed assertions and their reports")

	return cmd
}

func runTrace(opts *TraceOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoad, "failed to load scenario", err)
	}

	result, err := harness.Run(commandContext(cmd), scenario,
		harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())),
		harness.WithRunIDGenerator(opts.RunIDs),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRun, "failed to run scenario", err)
	}

	tr := TraceResult{
		ScenarioName: scenario.Name,
		RunID:        result.RunID,
		Pass:         result.Pass,
		Timeline:     filterTimeline(result.Trace, opts),
		Stats:        traceStats(result),
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: tr, RunID: tr.RunID})
	}
	writeTraceText(cmd.OutOrStdout(), tr)
	return nil
}

// filterTimeline applies the --cycle and --failed filters. With --failed a
// report is kept only if a failed report assertion ran on it.
func filterTimeline(trace []harness.TraceEvent, opts *TraceOptions) []harness.TraceEvent {
	out := make([]harness.TraceEvent, 0, len(trace))
	for i, ev := range trace {
		if opts.Cycle != 0 && ev.Cycle != opts.Cycle {
			continue
		}
		if opts.Failed {
			switch ev.Type {
			case harness.EventAssertion:
				if ev.Passed {
					continue
				}
			case harness.EventReport:
				if !reportHasFailure(trace[i+1:]) {
					continue
				}
			}
		}
		out = append(out, ev)
	}
	return out
}

// reportHasFailure inspects the report-domain assertions that follow a
// report in the trace.
func reportHasFailure(rest []harness.TraceEvent) bool {
	for _, ev := range rest {
		if ev.Type != harness.EventAssertion || ev.Domain != "report" {
			return false
		}
		if !ev.Passed {
			return true
		}
	}
	return false
}

func traceStats(result *harness.Result) TraceStats {
	stats := TraceStats{
		Cycles:    result.Cycles,
		ElapsedMS: result.Elapsed.Milliseconds(),
		Reports:   result.Reports,
	}
	for _, ev := range result.Trace {
		if ev.Type != harness.EventAssertion {
			continue
		}
		stats.Assertions++
		if !ev.Passed {
			stats.Failed++
		}
	}
	return stats
}

func writeTraceText(w io.Writer, tr TraceResult) {
	fmt.Fprintf(w, "Trace: %s (run %s)\n", tr.ScenarioName, tr.RunID)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	if len(tr.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range tr.Timeline {
		switch ev.Type {
		case harness.EventReport:
			fmt.Fprintf(w, "c=%4d  report #%d [%s]\n", ev.Cycle, ev.Seq, strings.Join(ev.Keys, " "))
		case harness.EventAssertion:
			status := "PASS"
			if !ev.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(w, "c=%4d    %s %s/%s %s\n", ev.Cycle, status, ev.Domain, ev.Lifetime, ev.Description)
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Stats: %d cycles, %d ms, %d reports, %d assertions (%d failed)\n",
		tr.Stats.Cycles, tr.Stats.ElapsedMS, tr.Stats.Reports, tr.Stats.Assertions, tr.Stats.Failed)
}
