// Command taleweaver is the offline-first story client.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/taleweaver/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
