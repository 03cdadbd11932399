package service

import (
	"context"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// ExecuteRequest is an ad-hoc run. Input is used only when TestCases is empty.
type ExecuteRequest struct {
	Language  string
	Code      string
	TestCases []model.TestCase
	Input     string
}

// Execute runs every test case to completion and summarises the verdicts.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (model.ExecuteResult, error) {
	if !s.executor.Supports(req.Language) {
		return model.ExecuteResult{}, appErr.New(appErr.LanguageNotSupported)
	}
	cases := req.TestCases
	if len(cases) == 0 {
		cases = []model.TestCase{{Input: req.Input}}
	}

	out := model.ExecuteResult{Results: make([]model.Verdict, 0, len(cases))}
	for i, tc := range cases {
		v := s.runCase(ctx, req.Language, req.Code, i, tc, false)
		out.Results = append(out.Results, v)
		switch {
		case v.Passed == nil:
			out.Summary.NoExpectedOutput++
		case *v.Passed:
			out.Summary.Passed++
		default:
			out.Summary.Failed++
		}
	}
	out.Summary.Total = len(out.Results)
	return out, nil
}
