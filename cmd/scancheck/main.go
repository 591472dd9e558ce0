// Command scancheck runs keyboard scan-loop test scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scancheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
