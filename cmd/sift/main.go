package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sift/internal/pipeline"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, formatCLIError(err))
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command failure to a process status. Pipeline failures get
// a status per error kind; everything else exits 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var pipeErr *pipeline.Error
	if errors.As(err, &pipeErr) {
		return pipeline.ExitCode(pipeErr.Kind)
	}
	return 1
}

func formatCLIError(err error) string {
	var pipeErr *pipeline.Error
	if errors.As(err, &pipeErr) {
		return fmt.Sprintf("%s: %s", pipeErr.Kind, pipeline.MessageOf(err))
	}
	return err.Error()
}
