package rpc

import (
	"context"
	"encoding/json"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	"github.com/Diwakar-Gupta/pepper/internal/judge/service"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 1000
)

type languagesResponse struct {
	Languages map[string]*string `json:"languages"`
}

type codePayload struct {
	Code     *string `json:"code"`
	Language *string `json:"language"`
}

func (p codePayload) validate() error {
	if p.Language == nil {
		return appErr.New(appErr.RequiredFieldEmpty).WithMessage("language is required")
	}
	if p.Code == nil {
		return appErr.New(appErr.RequiredFieldEmpty).WithMessage("code is required")
	}
	return nil
}

type executePayload struct {
	codePayload
	TestCases []model.TestCase `json:"testCases"`
	Input     string           `json:"input"`
}

type submitPayload struct {
	codePayload
	ProblemSlug string `json:"problemSlug"`
}

type historyPayload struct {
	ProblemSlug string `json:"problemSlug"`
	IncludeCode bool   `json:"includeCode"`
}

type historyEntry struct {
	ID           string                 `json:"id"`
	Language     string                 `json:"language"`
	Status       model.SubmissionStatus `json:"status"`
	Timestamp    float64                `json:"timestamp"`
	Datetime     string                 `json:"datetime"`
	ErrorMessage *string                `json:"error_message"`
	TestResults  json.RawMessage        `json:"test_results,omitempty"`
	Code         *string                `json:"code,omitempty"`
}

type historyResponse struct {
	ProblemSlug      string         `json:"problemSlug"`
	History          []historyEntry `json:"history"`
	TotalSubmissions int            `json:"totalSubmissions"`
}

type checkStatusResponse struct {
	ProblemStatuses   map[string]model.SubmissionStatus `json:"problemStatuses"`
	TotalProblems     int                               `json:"totalProblems"`
	SolvedCount       int                               `json:"solvedCount"`
	FailedCount       int                               `json:"failedCount"`
	ErrorCount        int                               `json:"errorCount"`
	NotAttemptedCount int                               `json:"notAttemptedCount"`
}

type statsResponse struct {
	Stats model.Stats `json:"stats"`
}

type recentResponse struct {
	RecentSubmissions []model.RecentSubmission `json:"recentSubmissions"`
	Count             int                      `json:"count"`
}

func (d *Dispatcher) handleLanguages(ctx context.Context, _ *Request) (interface{}, error) {
	return languagesResponse{Languages: d.languages.DetectVersions(ctx)}, nil
}

func (d *Dispatcher) handleExecute(ctx context.Context, req *Request) (interface{}, error) {
	var p executePayload
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return d.judge.Execute(ctx, service.ExecuteRequest{
		Language:  *p.Language,
		Code:      *p.Code,
		TestCases: p.TestCases,
		Input:     p.Input,
	})
}

func (d *Dispatcher) handleSubmit(ctx context.Context, req *Request) (interface{}, error) {
	var p submitPayload
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return d.judge.Submit(ctx, service.SubmitRequest{
		Language:    *p.Language,
		Code:        *p.Code,
		ProblemSlug: p.ProblemSlug,
	})
}

func (d *Dispatcher) handleHistory(ctx context.Context, req *Request) (interface{}, error) {
	var p historyPayload
	if err := req.Bind(&p); err != nil {
		return nil, err
	}
	if p.ProblemSlug == "" {
		return nil, appErr.New(appErr.ProblemSlugRequired)
	}
	subs, err := d.ledger.History(ctx, p.ProblemSlug, p.IncludeCode)
	if err != nil {
		return nil, err
	}
	entries := make([]historyEntry, 0, len(subs))
	for _, s := range subs {
		e := historyEntry{
			ID:           s.ID,
			Language:     s.Language,
			Status:       s.Status,
			Timestamp:    s.Timestamp,
			Datetime:     s.Datetime,
			ErrorMessage: s.ErrorMessage,
			TestResults:  s.TestResults,
		}
		if p.IncludeCode {
			code := s.Code
			e.Code = &code
		}
		entries = append(entries, e)
	}
	return historyResponse{ProblemSlug: p.ProblemSlug, History: entries, TotalSubmissions: len(entries)}, nil
}

func (d *Dispatcher) handleCheckStatus(ctx context.Context, req *Request) (interface{}, error) {
	slugs := []string{}
	if raw, ok := req.Field("problemSlugs"); ok && string(raw) != "null" {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, appErr.BadRequest("problemSlugs must be a list")
		}
		for _, item := range items {
			var slug string
			if err := json.Unmarshal(item, &slug); err != nil {
				return nil, appErr.BadRequest("problemSlugs must contain strings")
			}
			slugs = append(slugs, slug)
		}
	}

	statuses, err := d.ledger.CheckStatus(ctx, slugs)
	if err != nil {
		return nil, err
	}
	resp := checkStatusResponse{ProblemStatuses: statuses, TotalProblems: len(slugs)}
	for _, st := range statuses {
		switch st {
		case model.StatusSuccess:
			resp.SolvedCount++
		case model.StatusFailed:
			resp.FailedCount++
		case model.StatusError:
			resp.ErrorCount++
		case model.StatusNotAttempted:
			resp.NotAttemptedCount++
		}
	}
	return resp, nil
}

func (d *Dispatcher) handleStats(ctx context.Context, _ *Request) (interface{}, error) {
	stats, err := d.ledger.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.LanguagesUsed == nil {
		stats.LanguagesUsed = []string{}
	}
	return statsResponse{Stats: stats}, nil
}

func (d *Dispatcher) handleRecent(ctx context.Context, req *Request) (interface{}, error) {
	limit, err := req.intField("limit", defaultRecentLimit)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	recent, err := d.ledger.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []model.RecentSubmission{}
	}
	return recentResponse{RecentSubmissions: recent, Count: len(recent)}, nil
}
