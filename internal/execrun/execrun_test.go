package execrun

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRun_CapturesOutput(t *testing.T) {
	result, err := Run(context.Background(), "echo hello; echo oops 1>&2", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(result.Output, "hello") || !strings.Contains(result.Output, "oops") {
		t.Errorf("combined output missing streams: %q", result.Output)
	}
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	result, err := Run(context.Background(), "exit 3", "")
	if err != nil {
		t.Fatalf("non-zero exit returned error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	if _, err := Run(context.Background(), "", ""); err == nil {
		t.Error("empty command should be rejected")
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, "sleep 5", "")
	if err == nil {
		t.Fatal("cancelled command should return an error")
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	result, err := Run(context.Background(), "pwd", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, dir) {
		t.Errorf("pwd output %q does not contain %q", result.Output, dir)
	}
}

func TestBinaryExists(t *testing.T) {
	if !BinaryExists("sh") {
		t.Error("sh should exist")
	}
	if BinaryExists("definitely-not-a-real-binary-xyz") {
		t.Error("phantom binary reported as present")
	}
}
