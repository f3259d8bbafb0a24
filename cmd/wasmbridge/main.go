//go:build !js

// Command wasmbridge is the native host for the payload bridge.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/wasmbridge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
