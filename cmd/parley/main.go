// Command parley runs the parley chat backend.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/parley/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
