package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scancheck/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Debug             bool
	AbortOnFirstError bool
	Width             int

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to harness.UUIDv7Generator.
	RunIDs harness.RunIDGenerator
}

// RunSummary is the JSON payload of the run command.
type RunSummary struct {
	Name      string   `json:"name"`
	RunID     string   `json:"run_id"`
	Pass      bool     `json:"pass"`
	Cycles    uint64   `json:"cycles"`
	ElapsedMS int64    `json:"elapsed_ms"`
	Reports   int      `json:"reports"`
	Aborted   bool     `json:"aborted,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario",
		Long: `Run one scenario and stream its diagnostic transcript.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (missing file, invalid scenario, etc.)

Examples:
  scancheck run ./scenarios/tap_a.yaml
  scancheck run ./scenarios/tap_a.yaml --debug
  scancheck run ./scenarios/tap_a.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "write debug diagnostics to the transcript")
	cmd.Flags().BoolVar(&opts.AbortOnFirstError, "abort-on-first-error", false, "stop the run at the first error")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "banner width (default: terminal width)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Loaded scenario %s (%d steps)", scenario.Name, len(scenario.Steps))

	width := opts.Width
	if width == 0 {
		width = bannerWidth(cmd.OutOrStdout())
	}

	hopts := []harness.Option{
		harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())),
		harness.WithDebug(opts.Debug),
		harness.WithAbortOnFirstError(opts.AbortOnFirstError),
		harness.WithRunIDGenerator(opts.RunIDs),
		harness.WithBannerWidth(width),
	}
	// The transcript would corrupt JSON output.
	if opts.Format != "json" {
		hopts = append(hopts, harness.WithOutput(cmd.OutOrStdout()))
	}

	result, err := harness.Run(commandContext(cmd), scenario, hopts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRun, "failed to run scenario", err)
	}

	summary := RunSummary{
		Name:      scenario.Name,
		RunID:     result.RunID,
		Pass:      result.Pass,
		Cycles:    result.Cycles,
		ElapsedMS: result.Elapsed.Milliseconds(),
		Reports:   result.Reports,
		Aborted:   result.Aborted,
		Errors:    result.Errors,
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary, RunID: result.RunID}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeFailed,
				Message: fmt.Sprintf("scenario %s failed", scenario.Name),
				Details: result.Errors,
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		writeRunText(cmd, summary)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func writeRunText(cmd *cobra.Command, s RunSummary) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	status := "PASS"
	if !s.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s: %d cycles, %d ms, %d reports (run %s)\n",
		status, s.Name, s.Cycles, s.ElapsedMS, s.Reports, s.RunID)
}
