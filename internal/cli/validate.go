package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/scancheck/internal/harness"
)

// ValidationIssue is one problem found in a scenario file.
type ValidationIssue struct {
	File    string `json:"file"`
	Kind    string `json:"kind"` // "schema" | "scenario" | "load"
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenarios without running them",
		Long: `Validate scenario files against the scenario schema and the
structural rules (one action per step, positions inside the matrix,
known keycodes and assertion types) without running them.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: len(paths)}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		if _, err := harness.LoadScenario(path); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, validationIssues(path, err)...)
		}
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("%d validation error(s)", len(result.Errors)),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, issue := range result.Errors {
			fmt.Fprintf(w, "%s: [%s] %s\n", issue.File, issue.Kind, issue.Message)
		}
		if result.Valid {
			fmt.Fprintf(w, "✓ %d scenario file(s) valid\n", result.Files)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
	}
	return nil
}

// validationIssues splits a load error into one issue per problem.
func validationIssues(path string, err error) []ValidationIssue {
	file := filepath.Base(path)

	var serr *harness.SchemaError
	if errors.As(err, &serr) {
		issues := make([]ValidationIssue, len(serr.Issues))
		for i, msg := range serr.Issues {
			issues[i] = ValidationIssue{File: file, Kind: "schema", Message: msg}
		}
		return issues
	}

	kind := "scenario"
	var perr *fs.PathError
	if errors.As(err, &perr) {
		kind = "load"
	}
	return []ValidationIssue{{File: file, Kind: kind, Message: err.Error()}}
}
