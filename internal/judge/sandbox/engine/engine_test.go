//go:build unix

package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/spec"
)

func TestRunEchoesStdin(t *testing.T) {
	eng := NewEngine(Config{})
	res, err := eng.Run(context.Background(), spec.RunSpec{
		WorkDir: t.TempDir(),
		Cmd:     []string{"/bin/sh", "-c", "cat; echo oops >&2"},
		Stdin:   "hello\n",
		Limits:  spec.ResourceLimit{WallTime: 5 * time.Second},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Fatalf("stderr = %q", res.Stderr)
	}
	if res.ExitCode != 0 || res.TimedOut {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	eng := NewEngine(Config{})
	res, err := eng.Run(context.Background(), spec.RunSpec{
		WorkDir: t.TempDir(),
		Cmd:     []string{"/bin/sh", "-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
}

func TestRunKillsOnWallTimeout(t *testing.T) {
	eng := NewEngine(Config{})
	start := time.Now()
	res, err := eng.Run(context.Background(), spec.RunSpec{
		WorkDir: t.TempDir(),
		Cmd:     []string{"/bin/sh", "-c", "sleep 10 & sleep 10"},
		Limits:  spec.ResourceLimit{WallTime: 200 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.TimedOut || res.ExitCode != -1 {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("process group was not killed promptly")
	}
}

func TestRunCapsOutput(t *testing.T) {
	eng := NewEngine(Config{OutputMaxBytes: 4})
	res, err := eng.Run(context.Background(), spec.RunSpec{
		WorkDir: t.TempDir(),
		Cmd:     []string{"/bin/sh", "-c", "printf abcdefgh"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Stdout != "abcd" || !res.Truncated {
		t.Fatalf("stdout = %q truncated = %v", res.Stdout, res.Truncated)
	}
}

func TestRunMissingBinary(t *testing.T) {
	eng := NewEngine(Config{})
	_, err := eng.Run(context.Background(), spec.RunSpec{
		WorkDir: t.TempDir(),
		Cmd:     []string{"/definitely/not/here"},
	})
	if err == nil {
		t.Fatalf("expected start error")
	}
}

func TestRunRejectsEmptyCommand(t *testing.T) {
	eng := NewEngine(Config{})
	if _, err := eng.Run(context.Background(), spec.RunSpec{WorkDir: t.TempDir()}); err == nil {
		t.Fatalf("expected validation error")
	}
}
