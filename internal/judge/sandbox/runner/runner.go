// Package runner drives the compile and run steps of one language on top of the engine.
package runner

import (
	"context"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/engine"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/observer"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/profile"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/result"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/spec"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// CompileRequest describes one compilation task.
type CompileRequest struct {
	Language profile.LanguageSpec
	WorkDir  string
	Timeout  time.Duration
}

// RunRequest describes one execution task.
type RunRequest struct {
	Language profile.LanguageSpec
	WorkDir  string
	Stdin    string
	Timeout  time.Duration
}

// Runner orchestrates compile and run workflows.
type Runner interface {
	Compile(ctx context.Context, req CompileRequest) (result.CompileResult, error)
	Run(ctx context.Context, req RunRequest) (result.RunResult, error)
}

// DefaultRunner implements Runner for template-driven languages.
type DefaultRunner struct {
	eng     engine.Engine
	metrics observer.Recorder
}

// NewRunner creates a runner backed by the engine.
func NewRunner(eng engine.Engine) *DefaultRunner {
	return NewRunnerWithObserver(eng, observer.NoopRecorder{})
}

// NewRunnerWithObserver creates a runner with observation hooks.
func NewRunnerWithObserver(eng engine.Engine, metrics observer.Recorder) *DefaultRunner {
	if metrics == nil {
		metrics = observer.NoopRecorder{}
	}
	return &DefaultRunner{eng: eng, metrics: metrics}
}

// Compile runs the language's compile command. A non-zero exit is reported
// through CompileResult.OK, not as an error.
func (r *DefaultRunner) Compile(ctx context.Context, req CompileRequest) (result.CompileResult, error) {
	if !req.Language.CompileEnabled {
		return result.CompileResult{OK: true}, nil
	}
	if req.WorkDir == "" {
		return result.CompileResult{}, appErr.ValidationError("work_dir", "required")
	}
	cmd, err := buildCommand(req.Language.CompileCmdTpl, req.Language, req.WorkDir)
	if err != nil {
		return result.CompileResult{}, err
	}

	res, err := r.eng.Run(ctx, spec.RunSpec{
		WorkDir: req.WorkDir,
		Cmd:     cmd,
		Env:     req.Language.Env,
		Limits:  spec.ResourceLimit{WallTime: req.Timeout},
	})
	if err != nil {
		return result.CompileResult{}, err
	}
	if res.TimedOut {
		r.metrics.ObserveCompile(ctx, req.Language.ID, false, res.WallTime)
		return result.CompileResult{}, appErr.Newf(appErr.ExecutionTimeout, "Compilation timed out after %s", req.Timeout)
	}

	log := res.Stderr
	if log == "" {
		log = res.Stdout
	}
	ok := res.ExitCode == 0
	r.metrics.ObserveCompile(ctx, req.Language.ID, ok, res.WallTime)
	return result.CompileResult{
		OK:       ok,
		ExitCode: res.ExitCode,
		Log:      log,
		WallTime: res.WallTime,
	}, nil
}

// Run executes the program. A wall-clock timeout is returned as an
// ExecutionTimeout error carrying the partial output as details.
func (r *DefaultRunner) Run(ctx context.Context, req RunRequest) (result.RunResult, error) {
	if req.WorkDir == "" {
		return result.RunResult{}, appErr.ValidationError("work_dir", "required")
	}
	cmd, err := buildCommand(req.Language.RunCmdTpl, req.Language, req.WorkDir)
	if err != nil {
		return result.RunResult{}, err
	}

	res, err := r.eng.Run(ctx, spec.RunSpec{
		WorkDir: req.WorkDir,
		Cmd:     cmd,
		Env:     req.Language.Env,
		Stdin:   req.Stdin,
		Limits:  spec.ResourceLimit{WallTime: req.Timeout},
	})
	if err != nil {
		return result.RunResult{}, err
	}
	r.metrics.ObserveRun(ctx, req.Language.ID, res.ExitCode, res.TimedOut, res.WallTime)
	if res.TimedOut {
		return res, appErr.Newf(appErr.ExecutionTimeout, "Execution timed out after %s", req.Timeout).
			WithDetail("stdout", res.Stdout).
			WithDetail("stderr", res.Stderr)
	}
	return res, nil
}
