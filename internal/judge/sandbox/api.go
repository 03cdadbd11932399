// Package sandbox is the entrypoint the judging layer uses to run untrusted code.
package sandbox

import (
	"context"
	"sort"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/profile"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/result"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/runner"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/workspace"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultRunTimeout = 5 * time.Second

// Executor runs one program against one input.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) (result.ExecutionResult, error)
	Supports(language string) bool
}

// ExecuteRequest is a single run of source code.
type ExecuteRequest struct {
	Language string
	Code     string
	Stdin    string
}

// Config controls the sandbox service.
type Config struct {
	WorkRoot       string
	RunTimeout     time.Duration
	CompileTimeout time.Duration
	ProbeTimeout   time.Duration
	Languages      []profile.LanguageSpec
}

// Service implements Executor with one workspace scope per call.
type Service struct {
	cfg       Config
	runner    runner.Runner
	languages map[string]profile.LanguageSpec
}

// NewService builds the sandbox service. An empty language list selects the defaults.
func NewService(cfg Config, r runner.Runner) (*Service, error) {
	if r == nil {
		return nil, appErr.ValidationError("runner", "required")
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultRunTimeout
	}
	specs := cfg.Languages
	if len(specs) == 0 {
		specs = profile.DefaultLanguages()
	}
	langs := make(map[string]profile.LanguageSpec, len(specs))
	for _, l := range specs {
		l = l.Normalize()
		if l.ID == "" || l.SourceFile == "" || l.RunCmdTpl == "" {
			return nil, appErr.ValidationError("languages", "id, sourceFile and runCmd are required")
		}
		if l.CompileEnabled && l.CompileCmdTpl == "" {
			return nil, appErr.ValidationError("languages", l.ID+": compileCmd is required when compileEnabled")
		}
		if _, dup := langs[l.ID]; dup {
			return nil, appErr.ValidationError("languages", "duplicate language "+l.ID)
		}
		langs[l.ID] = l
	}
	return &Service{cfg: cfg, runner: r, languages: langs}, nil
}

// Supports reports whether language is configured.
func (s *Service) Supports(language string) bool {
	_, ok := s.languages[language]
	return ok
}

// Languages returns the configured language ids in sorted order.
func (s *Service) Languages() []string {
	ids := make([]string, 0, len(s.languages))
	for id := range s.languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Execute writes the source into a fresh workspace, compiles when the language
// needs it and runs the program. The workspace is removed before returning.
// A compile failure is reported in the result, never as an error.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (result.ExecutionResult, error) {
	lang, ok := s.languages[req.Language]
	if !ok {
		return result.ExecutionResult{}, appErr.Newf(appErr.LanguageNotSupported, "Unsupported language: %s", req.Language)
	}

	scope, err := workspace.Acquire(s.cfg.WorkRoot, "judge-"+lang.ID+"-")
	if err != nil {
		return result.ExecutionResult{}, err
	}
	defer func() {
		if err := scope.Release(); err != nil {
			logger.Warn(ctx, "release workspace failed", zap.String("dir", scope.Dir()), zap.Error(err))
		}
	}()

	if err := scope.WriteFile(lang.SourceFile, []byte(req.Code)); err != nil {
		return result.ExecutionResult{}, err
	}

	compiled, err := s.runner.Compile(ctx, runner.CompileRequest{
		Language: lang,
		WorkDir:  scope.Dir(),
		Timeout:  s.cfg.CompileTimeout,
	})
	if err != nil {
		return result.ExecutionResult{}, err
	}
	if !compiled.OK {
		logText := compiled.Log
		return result.ExecutionResult{CompileError: &logText, ExitCode: compiled.ExitCode}, nil
	}

	run, err := s.runner.Run(ctx, runner.RunRequest{
		Language: lang,
		WorkDir:  scope.Dir(),
		Stdin:    req.Stdin,
		Timeout:  s.cfg.RunTimeout,
	})
	if err != nil {
		return result.ExecutionResult{}, err
	}
	return result.ExecutionResult{
		Stdout:   run.Stdout,
		Stderr:   run.Stderr,
		ExitCode: run.ExitCode,
	}, nil
}
