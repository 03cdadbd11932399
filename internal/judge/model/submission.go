package model

import "encoding/json"

// SubmissionStatus is the recorded outcome of a submission.
type SubmissionStatus string

const (
	StatusSuccess SubmissionStatus = "success"
	StatusFailed  SubmissionStatus = "failed"
	StatusError   SubmissionStatus = "error"
	// StatusNotAttempted is only reported by status queries, never stored.
	StatusNotAttempted SubmissionStatus = "not_attempted"
)

// Valid reports whether s may be stored.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusError:
		return true
	}
	return false
}

// TestResults is the judging summary stored with a submission.
type TestResults struct {
	TotalTestCases  int      `json:"total_test_cases"`
	PassedTestCases int      `json:"passed_test_cases"`
	AllPassed       bool     `json:"all_passed,omitempty"`
	FailedTestCase  *Verdict `json:"failed_test_case,omitempty"`
}

// NewSubmission is what the judge hands to the store.
type NewSubmission struct {
	ProblemSlug  string
	Language     string
	Code         string
	Status       SubmissionStatus
	TestResults  *TestResults
	ErrorMessage string
}

// Submission is one recorded attempt.
// Timestamp is seconds since the epoch with sub-second precision.
type Submission struct {
	ID           string           `json:"id"`
	ProblemSlug  string           `json:"problem_slug"`
	Language     string           `json:"language"`
	Code         string           `json:"code,omitempty"`
	Status       SubmissionStatus `json:"status"`
	Timestamp    float64          `json:"timestamp"`
	Datetime     string           `json:"datetime"`
	TestResults  json.RawMessage  `json:"test_results,omitempty"`
	ErrorMessage *string          `json:"error_message"`
}

// RecentSubmission is a submission without code or results.
type RecentSubmission struct {
	ID          string           `json:"id"`
	ProblemSlug string           `json:"problem_slug"`
	Language    string           `json:"language"`
	Status      SubmissionStatus `json:"status"`
	Timestamp   float64          `json:"timestamp"`
	Datetime    string           `json:"datetime"`
}

// Stats aggregates the whole ledger.
type Stats struct {
	TotalSubmissions        int      `json:"total_submissions"`
	SuccessfulSubmissions   int      `json:"successful_submissions"`
	FailedSubmissions       int      `json:"failed_submissions"`
	ErrorSubmissions        int      `json:"error_submissions"`
	UniqueProblemsAttempted int      `json:"unique_problems_attempted"`
	UniqueLanguages         int      `json:"unique_languages"`
	UniqueProblemsSolved    int      `json:"unique_problems_solved"`
	LanguagesUsed           []string `json:"languages_used"`
}
