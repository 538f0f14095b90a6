// Package execrun runs project shell commands and captures their combined
// output. It wraps os/exec with a context-aware API in which a non-zero
// exit is a result, not an error.
package execrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Result holds the outcome of one command execution.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Run executes the shell command in dir, returning its exit code and
// combined stdout/stderr. Cancellation of ctx kills the process. A non-zero
// exit code is not an error; only execution failures (shell missing,
// permission denied, cancellation) return one.
func Run(ctx context.Context, command, dir string) (Result, error) {
	if command == "" {
		return Result{}, errors.New("command is required")
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Output:   combined.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("command aborted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("command execution failed: %w", err)
	}
	return result, nil
}

// BinaryExists reports whether a binary is present in PATH. Used by the
// doctor command to check the detected package manager.
func BinaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
