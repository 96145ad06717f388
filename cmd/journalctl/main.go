// Command journalctl records trades and queries the journal from a terminal.
package main

import (
	"os"

	"github.com/aristath/journal/cmd/journalctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
