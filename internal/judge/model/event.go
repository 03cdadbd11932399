package model

// SubmissionEventRecorded is emitted once a submission has been stored.
const SubmissionEventRecorded = "submission.recorded"

// SubmissionEvent is the broker payload describing a recorded submission.
// Source code is never included.
type SubmissionEvent struct {
	Type         string           `json:"type"`
	SubmissionID string           `json:"submission_id"`
	ProblemSlug  string           `json:"problem_slug"`
	Language     string           `json:"language"`
	Status       SubmissionStatus `json:"status"`
	TestResults  *TestResults     `json:"test_results,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    int64            `json:"created_at"`
}
