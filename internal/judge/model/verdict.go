package model

// Verdict is the outcome and evidence of one test case run.
// Passed is nil when no expected output was available.
// Diff is set iff Passed is false and an expected output existed.
type Verdict struct {
	TestCase       int     `json:"testCase"`
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expectedOutput"`
	ActualOutput   string  `json:"actualOutput"`
	Stderr         string  `json:"stderr"`
	Passed         *bool   `json:"passed"`
	Diff           *string `json:"diff"`
	Error          *string `json:"error"`
}

// IsPassed reports a definite pass.
func (v Verdict) IsPassed() bool { return v.Passed != nil && *v.Passed }

// IsFailed reports a definite failure.
func (v Verdict) IsFailed() bool { return v.Passed != nil && !*v.Passed }

// Summary aggregates the verdicts of an ad-hoc execute call.
type Summary struct {
	Total            int `json:"total"`
	Passed           int `json:"passed"`
	Failed           int `json:"failed"`
	NoExpectedOutput int `json:"noExpectedOutput"`
}

// ExecuteResult is the response body of an execute call.
type ExecuteResult struct {
	Results []Verdict `json:"results"`
	Summary Summary   `json:"summary"`
}

// SubmitResult is the response body of a judged submission.
// Failure and success populate different fields.
type SubmitResult struct {
	Failed              bool     `json:"failed"`
	AllPassed           bool     `json:"allPassed,omitempty"`
	FailedTestCase      *Verdict `json:"failedTestCase,omitempty"`
	TestCaseNumber      int      `json:"testCaseNumber,omitempty"`
	Message             string   `json:"message"`
	SubmissionID        string   `json:"submissionId,omitempty"`
	Total               int      `json:"total"`
	Passed              *int     `json:"passed,omitempty"`
	PassedBeforeFailure *int     `json:"passedBeforeFailure,omitempty"`
}
