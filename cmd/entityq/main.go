// Command entityq compiles, validates and runs entity query documents.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/entityq/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	// Commands print their own errors; cobra errors such as unknown flags
	// are not ExitErrors and still need reporting.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
