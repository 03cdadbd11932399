// Package engine runs a single process for the sandbox.
package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/result"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/spec"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultOutputMaxBytes int64 = 16 << 20
	// pipes held open by orphaned grandchildren stop blocking Wait after this.
	waitDelay = time.Second
)

// Engine executes a RunSpec as a host process.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error)
}

// Config controls engine behavior.
type Config struct {
	OutputMaxBytes int64
}

type processEngine struct {
	cfg Config
}

// NewEngine creates a process engine with a wall-clock watchdog.
func NewEngine(cfg Config) Engine {
	if cfg.OutputMaxBytes <= 0 {
		cfg.OutputMaxBytes = defaultOutputMaxBytes
	}
	return &processEngine{cfg: cfg}
}

func (e *processEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return result.RunResult{}, err
	}
	limit := runSpec.Limits.OutputBytes
	if limit <= 0 {
		limit = e.cfg.OutputMaxBytes
	}

	cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
	cmd.Dir = runSpec.WorkDir
	cmd.Env = append(os.Environ(), runSpec.Env...)
	cmd.Stdin = strings.NewReader(runSpec.Stdin)
	stdout := newLimitedBuffer(limit)
	stderr := newLimitedBuffer(limit)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return result.RunResult{}, appErr.Wrapf(err, appErr.ExecutionFailed, "start %s: %v", runSpec.Cmd[0], err)
	}

	var wallTimer <-chan time.Time
	if runSpec.Limits.WallTime > 0 {
		t := time.NewTimer(runSpec.Limits.WallTime)
		defer t.Stop()
		wallTimer = t.C
	}

	timedOut := false
	done := make(chan struct{})
	killed := make(chan struct{})
	go func() {
		defer close(killed)
		select {
		case <-ctx.Done():
			killProcessGroup(cmd)
		case <-wallTimer:
			timedOut = true
			killProcessGroup(cmd)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	<-killed

	runResult := result.RunResult{
		ExitCode:  exitCode(waitErr, cmd.ProcessState),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		WallTime:  time.Since(start),
		TimedOut:  timedOut,
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
	if timedOut {
		runResult.ExitCode = -1
	}
	if waitErr != nil && !timedOut && ctx.Err() != nil {
		return runResult, appErr.Wrapf(ctx.Err(), appErr.ExecutionFailed, "execution cancelled")
	}
	if waitErr != nil && errors.Is(waitErr, exec.ErrWaitDelay) {
		logger.Warn(ctx, "process left output pipes open", zap.Strings("cmd", runSpec.Cmd))
	}
	return runResult, nil
}

func exitCode(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if runSpec.WorkDir == "" {
		return appErr.ValidationError("work_dir", "required")
	}
	if len(runSpec.Cmd) == 0 || runSpec.Cmd[0] == "" {
		return appErr.ValidationError("cmd", "required")
	}
	return nil
}
