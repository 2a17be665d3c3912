package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chronostack-lang/chronostack/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands that already rendered their failure wrap it in an
		// ExitError; print only the ones that did not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Code == cli.ExitCommandError {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
