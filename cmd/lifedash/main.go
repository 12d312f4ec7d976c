package main

import (
	"os"

	"lifedash/internal/cli"
)

func main() {
	// Cobra prints the error; only the exit status is left.
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
