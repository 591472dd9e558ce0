package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: tap_a
description: "Tapping A reports A, then an empty report"
run_id: run-cli
config:
  cycle_duration: 10ms
keyboard:
  rows: 1
  cols: 1
  keymap:
    - [A]
steps:
  - tap: [0, 0]
  - queue_report:
      - type: keycode_active
        key: A
      - type: report_empty
  - cycles:
      n: 2
checks:
  - type: report_count
    count: 2
`

const failingScenario = `name: wrong_key
description: "Expects B while A is pressed"
run_id: run-cli-fail
keyboard:
  rows: 1
  cols: 1
  keymap:
    - [A]
steps:
  - press: [0, 0]
  - queue_report:
      - type: keycode_active
        key: B
  - cycle: {}
`

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs a root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommand(t, NewRootCommand(), args...)
}

func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
