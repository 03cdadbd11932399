package service

import (
	"context"
	"fmt"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// SubmitRequest asks for code to be judged against a problem.
type SubmitRequest struct {
	Language    string
	Code        string
	ProblemSlug string
}

// Submit judges the code fail-fast against the problem's test cases and records
// the outcome exactly once. When no test cases exist an error outcome is recorded
// and a TestCasesNotFound error is returned carrying the submission id as the
// "submissionId" detail.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (model.SubmitResult, error) {
	if !s.executor.Supports(req.Language) {
		return model.SubmitResult{}, appErr.New(appErr.LanguageNotSupported)
	}
	if req.ProblemSlug == "" {
		return model.SubmitResult{}, appErr.New(appErr.ProblemSlugRequired)
	}

	cases, err := s.testCases.FetchTestCases(ctx, req.ProblemSlug)
	if err != nil {
		logger.Warn(ctx, "fetch test cases failed", zap.String("problem_slug", req.ProblemSlug), zap.Error(err))
		cases = nil
	}
	if len(cases) == 0 {
		msg := appErr.TestCasesNotFound.Message()
		id := s.record(ctx, model.NewSubmission{
			ProblemSlug:  req.ProblemSlug,
			Language:     req.Language,
			Code:         req.Code,
			Status:       model.StatusError,
			ErrorMessage: msg,
		})
		e := appErr.New(appErr.TestCasesNotFound)
		if id != "" {
			e = e.WithDetail("submissionId", id)
		}
		return model.SubmitResult{}, e
	}

	total := len(cases)
	for i, tc := range cases {
		v := s.runCase(ctx, req.Language, req.Code, i, tc, true)
		if v.IsPassed() {
			continue
		}
		passedBefore := i
		msg := fmt.Sprintf("Test case %d failed", v.TestCase)
		id := s.record(ctx, model.NewSubmission{
			ProblemSlug: req.ProblemSlug,
			Language:    req.Language,
			Code:        req.Code,
			Status:      model.StatusFailed,
			TestResults: &model.TestResults{
				TotalTestCases:  total,
				PassedTestCases: passedBefore,
				FailedTestCase:  &v,
			},
			ErrorMessage: msg,
		})
		return model.SubmitResult{
			Failed:              true,
			FailedTestCase:      &v,
			TestCaseNumber:      v.TestCase,
			Message:             msg,
			SubmissionID:        id,
			Total:               total,
			PassedBeforeFailure: &passedBefore,
		}, nil
	}

	id := s.record(ctx, model.NewSubmission{
		ProblemSlug: req.ProblemSlug,
		Language:    req.Language,
		Code:        req.Code,
		Status:      model.StatusSuccess,
		TestResults: &model.TestResults{
			TotalTestCases:  total,
			PassedTestCases: total,
			AllPassed:       true,
		},
	})
	return model.SubmitResult{
		Failed:       false,
		AllPassed:    true,
		Message:      "All test cases passed!",
		SubmissionID: id,
		Total:        total,
		Passed:       &total,
	}, nil
}
