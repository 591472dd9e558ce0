package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONIndented(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.JSON(CLIResponse{Status: "ok", RunID: "run-1"}))
	assert.Equal(t, "{\n  \"status\": \"ok\",\n  \"run_id\": \"run-1\"\n}\n", buf.String())
}

func TestOutputFormatter_FailJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(ExitCommandError, ErrCodeLoad, "failed to load scenario", errors.New("no such file"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLoad, resp.Error.Code)
	assert.Equal(t, "no such file", resp.Error.Message)
	assert.Equal(t, "failed to load scenario", resp.Error.Details)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOutputFormatter_FailText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(ExitCommandError, ErrCodeRun, "failed to run scenario", errors.New("boom"))

	assert.Empty(t, buf.String())
	assert.EqualError(t, err, "failed to run scenario: boom")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		errOut  bool
		wantOut string
		wantErr string
	}{
		{name: "disabled", verbose: false, errOut: true},
		{name: "err writer", verbose: true, errOut: true, wantErr: "Validating tap_a.yaml\n"},
		{name: "fallback", verbose: true, errOut: false, wantOut: "Validating tap_a.yaml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, Verbose: tt.verbose}
			if tt.errOut {
				formatter.ErrWriter = errOut
			}

			formatter.VerboseLog("Validating %s", "tap_a.yaml")

			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantErr, errOut.String())
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to load scenario", inner)

	assert.Equal(t, "failed to load scenario: no such file", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, "scenario failed", NewExitError(ExitFailure, "scenario failed").Error())
}
