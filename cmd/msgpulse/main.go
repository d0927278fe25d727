// Command msgpulse checks, renders and simulates event message
// configurations.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/msgpulse/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
