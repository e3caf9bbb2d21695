// Command sfmap inspects Salesforce mapping definitions and manages the
// mapping table and sync event outbox.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sfmap/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// ExitErrors have already been reported by the command's formatter.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
