// Command cdcsync reconciles table change stream batches into search index
// and SQLite replica writes.
package main

import (
	"fmt"
	"os"

	"github.com/HENNGE/lambda-container-example/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cdcsync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
