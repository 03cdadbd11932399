// Package service implements the comparison and judging algorithms on top of the sandbox.
package service

import (
	"context"
	"strings"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

const compileFailedMessage = "Compilation failed"

// TestCaseSource resolves the canonical test cases of a problem.
type TestCaseSource interface {
	FetchTestCases(ctx context.Context, problemSlug string) ([]model.TestCase, error)
}

// SubmissionRecorder appends judged submissions to the ledger.
type SubmissionRecorder interface {
	AddSubmission(ctx context.Context, sub model.NewSubmission) (string, error)
}

// EventPublisher announces recorded submissions. Optional.
type EventPublisher interface {
	PublishRecorded(ctx context.Context, id string, sub model.NewSubmission) error
}

// Config holds service dependencies.
type Config struct {
	Executor  sandbox.Executor
	TestCases TestCaseSource
	Store     SubmissionRecorder
	Events    EventPublisher
}

// Service runs ad-hoc executions and judged submissions.
type Service struct {
	executor  sandbox.Executor
	testCases TestCaseSource
	store     SubmissionRecorder
	events    EventPublisher
}

// NewService creates a new judging service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Executor == nil {
		return nil, appErr.ValidationError("executor", "required")
	}
	if cfg.TestCases == nil {
		return nil, appErr.ValidationError("test_cases", "required")
	}
	if cfg.Store == nil {
		return nil, appErr.ValidationError("store", "required")
	}
	return &Service{
		executor:  cfg.Executor,
		testCases: cfg.TestCases,
		store:     cfg.Store,
		events:    cfg.Events,
	}, nil
}

// runCase executes one test case and classifies it. When judged is false a
// case without expected output is left unknown instead of compared.
func (s *Service) runCase(ctx context.Context, language, code string, index int, tc model.TestCase, judged bool) model.Verdict {
	v := model.Verdict{
		TestCase:       index + 1,
		Input:          tc.Input,
		ExpectedOutput: strings.TrimSpace(tc.ExpectedOutput),
	}

	res, err := s.executor.Execute(ctx, sandbox.ExecuteRequest{
		Language: language,
		Code:     code,
		Stdin:    tc.Input,
	})
	if err != nil {
		logger.Debug(ctx, "test case execution failed", zap.Int("test_case", v.TestCase), zap.Error(err))
		msg := err.Error()
		v.Stderr = msg
		v.Error = &msg
		markFailed(&v)
		return v
	}
	if !res.Compiled() {
		msg := compileFailedMessage
		v.Stderr = *res.CompileError
		v.Error = &msg
		if v.ExpectedOutput == "" && !judged {
			return v
		}
		markFailed(&v)
		return v
	}

	v.ActualOutput = strings.TrimSpace(res.Stdout)
	v.Stderr = res.Stderr
	if v.ExpectedOutput == "" && !judged {
		return v
	}
	passed, diff := Compare(v.ActualOutput, v.ExpectedOutput)
	v.Passed = &passed
	if !passed && v.ExpectedOutput != "" {
		v.Diff = diff
	}
	return v
}

// markFailed sets a definite failure and keeps the diff invariant.
func markFailed(v *model.Verdict) {
	passed := false
	v.Passed = &passed
	v.Diff = nil
	if v.ExpectedOutput != "" {
		d := Diff(v.ExpectedOutput, v.ActualOutput)
		v.Diff = &d
	}
}

// record stores the submission and returns its id, or "" when the store failed.
// A storage failure never fails the judging response.
func (s *Service) record(ctx context.Context, sub model.NewSubmission) string {
	id, err := s.store.AddSubmission(ctx, sub)
	if err != nil {
		logger.Warn(ctx, "record submission failed, responding without submission id",
			zap.String("problem_slug", sub.ProblemSlug),
			zap.String("status", string(sub.Status)),
			zap.Error(err),
		)
		return ""
	}
	if s.events != nil {
		if err := s.events.PublishRecorded(ctx, id, sub); err != nil {
			logger.Warn(ctx, "publish submission event failed", zap.String("submission_id", id), zap.Error(err))
		}
	}
	return id
}
