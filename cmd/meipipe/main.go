package main

import (
	"context"
	"fmt"
	"os"

	"github.com/e-laute/meipipe/internal/cli"
)

// main is a thin boundary: it canonicalizes the CLI inputs into an
// Invocation before any pipeline logic runs, and owns the process exit code.
func main() {
	code, err := cli.Run(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}
