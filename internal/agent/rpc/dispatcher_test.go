package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	"github.com/Diwakar-Gupta/pepper/internal/judge/service"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

type fakeJudge struct {
	executed  []service.ExecuteRequest
	submitted []service.SubmitRequest
	submitErr error
	panicMsg  string
}

func (f *fakeJudge) Execute(ctx context.Context, req service.ExecuteRequest) (model.ExecuteResult, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.executed = append(f.executed, req)
	passed := true
	return model.ExecuteResult{
		Results: []model.Verdict{{TestCase: 1, Passed: &passed}},
		Summary: model.Summary{Total: 1, Passed: 1},
	}, nil
}

func (f *fakeJudge) Submit(ctx context.Context, req service.SubmitRequest) (model.SubmitResult, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return model.SubmitResult{}, f.submitErr
	}
	total := 2
	return model.SubmitResult{AllPassed: true, Message: "All test cases passed!", SubmissionID: "sub-1", Total: 2, Passed: &total}, nil
}

type fakeProber struct{}

func (fakeProber) DetectVersions(ctx context.Context) map[string]*string {
	v := "Python 3.12.1"
	return map[string]*string{"python": &v, "cpp": nil}
}

type fakeLedger struct {
	history     []model.Submission
	statuses    map[string]model.SubmissionStatus
	recentLimit int
}

func (f *fakeLedger) History(ctx context.Context, slug string, includeCode bool) ([]model.Submission, error) {
	out := make([]model.Submission, len(f.history))
	copy(out, f.history)
	if !includeCode {
		for i := range out {
			out[i].Code = ""
		}
	}
	return out, nil
}

func (f *fakeLedger) CheckStatus(ctx context.Context, slugs []string) (map[string]model.SubmissionStatus, error) {
	out := map[string]model.SubmissionStatus{}
	for _, s := range slugs {
		if st, ok := f.statuses[s]; ok {
			out[s] = st
		} else {
			out[s] = model.StatusNotAttempted
		}
	}
	return out, nil
}

func (f *fakeLedger) Stats(ctx context.Context) (model.Stats, error) {
	return model.Stats{TotalSubmissions: 3, UniqueLanguages: 1, LanguagesUsed: []string{"python"}}, nil
}

func (f *fakeLedger) Recent(ctx context.Context, limit int) ([]model.RecentSubmission, error) {
	f.recentLimit = limit
	return []model.RecentSubmission{{ID: "a", ProblemSlug: "p", Language: "python", Status: model.StatusSuccess}}, nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeJudge, *fakeLedger) {
	t.Helper()
	judge := &fakeJudge{}
	ledger := &fakeLedger{statuses: map[string]model.SubmissionStatus{}}
	d, err := NewDispatcher(judge, fakeProber{}, ledger)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d, judge, ledger
}

func handle(t *testing.T, d *Dispatcher, frame string) map[string]interface{} {
	t.Helper()
	out := d.Handle(context.Background(), []byte(frame))
	var m map[string]interface{}
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("response %s is not a JSON object: %v", out, err)
	}
	return m
}

func TestCorrelationIDEcho(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	resp := handle(t, d, `{"type":"languages","_msgId":7}`)
	if resp["_msgId"] != float64(7) {
		t.Fatalf("numeric _msgId not echoed: %v", resp)
	}
	if _, ok := resp["languages"]; !ok {
		t.Fatalf("languages missing: %v", resp)
	}

	resp = handle(t, d, `{"type":"languages","msgId":"abc"}`)
	if resp["msgId"] != "abc" {
		t.Fatalf("msgId not echoed: %v", resp)
	}
	if _, ok := resp["_msgId"]; ok {
		t.Fatalf("msgId echoed under the wrong key: %v", resp)
	}

	resp = handle(t, d, `{"type":"languages"}`)
	if _, ok := resp["_msgId"]; ok {
		t.Fatalf("unexpected correlation id: %v", resp)
	}

	resp = handle(t, d, `{"type":"nope","_msgId":{"n":1}}`)
	if resp["error"] != "Unknown message type" {
		t.Fatalf("unknown type response = %v", resp)
	}
	if id, ok := resp["_msgId"].(map[string]interface{}); !ok || id["n"] != float64(1) {
		t.Fatalf("object _msgId not echoed verbatim: %v", resp)
	}
}

func TestInvalidJSON(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	for _, frame := range []string{`{not json`, `[1,2]`, `null`} {
		resp := handle(t, d, frame)
		if resp["error"] == nil || resp["error"] == "" {
			t.Fatalf("%q: expected error, got %v", frame, resp)
		}
	}
}

func TestExecute(t *testing.T) {
	d, judge, _ := newTestDispatcher(t)
	resp := handle(t, d, `{"type":"execute","_msgId":1,"language":"python","code":"print(1)","testCases":[{"input":"1","expectedOutput":"1"}]}`)
	if resp["summary"].(map[string]interface{})["passed"] != float64(1) {
		t.Fatalf("execute response = %v", resp)
	}
	if len(judge.executed) != 1 || judge.executed[0].TestCases[0].ExpectedOutput != "1" {
		t.Fatalf("executed = %+v", judge.executed)
	}

	handle(t, d, `{"type":"execute","language":"python","code":"","input":"x"}`)
	if judge.executed[1].Input != "x" || len(judge.executed[1].TestCases) != 0 {
		t.Fatalf("ad-hoc execute = %+v", judge.executed[1])
	}

	resp = handle(t, d, `{"type":"execute","language":"python","_msgId":2}`)
	if resp["error"] != "code is required" || resp["_msgId"] != float64(2) {
		t.Fatalf("missing code response = %v", resp)
	}
	resp = handle(t, d, `{"type":"execute","code":"x"}`)
	if resp["error"] != "language is required" {
		t.Fatalf("missing language response = %v", resp)
	}
	resp = handle(t, d, `{"type":"execute","code":5,"language":"python"}`)
	if resp["error"] == nil {
		t.Fatalf("mistyped code must fail: %v", resp)
	}
}

func TestSubmit(t *testing.T) {
	d, judge, _ := newTestDispatcher(t)
	resp := handle(t, d, `{"type":"submit","_msgId":"s1","language":"python","code":"x","problemSlug":"two-sum"}`)
	if resp["allPassed"] != true || resp["submissionId"] != "sub-1" || resp["_msgId"] != "s1" {
		t.Fatalf("submit response = %v", resp)
	}
	if judge.submitted[0].ProblemSlug != "two-sum" {
		t.Fatalf("submitted = %+v", judge.submitted)
	}

	judge.submitErr = appErr.New(appErr.TestCasesNotFound).WithDetail("submissionId", "sub-err")
	resp = handle(t, d, `{"type":"submit","_msgId":"s2","language":"python","code":"x","problemSlug":"missing"}`)
	if resp["error"] != "No test cases found for this problem" || resp["submissionId"] != "sub-err" || resp["_msgId"] != "s2" {
		t.Fatalf("no test cases response = %v", resp)
	}

	judge.submitErr = appErr.New(appErr.LanguageNotSupported)
	resp = handle(t, d, `{"type":"submit","language":"cobol","code":"x","problemSlug":"p"}`)
	if resp["error"] != "Unsupported language" {
		t.Fatalf("unsupported language response = %v", resp)
	}
	if _, ok := resp["submissionId"]; ok {
		t.Fatalf("unexpected submissionId: %v", resp)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	d, judge, _ := newTestDispatcher(t)
	judge.panicMsg = "boom"
	resp := handle(t, d, `{"type":"execute","_msgId":9,"language":"python","code":"x"}`)
	if resp["error"] != "boom" || resp["_msgId"] != float64(9) {
		t.Fatalf("panic response = %v", resp)
	}
}

func TestSubmissionHistory(t *testing.T) {
	d, _, ledger := newTestDispatcher(t)
	msg := "No test cases found for this problem"
	ledger.history = []model.Submission{
		{ID: "2", Language: "python", Status: model.StatusSuccess, Code: "print(2)", TestResults: json.RawMessage(`{"all_passed":true}`)},
		{ID: "1", Language: "cpp", Status: model.StatusError, Code: "int main(){}", ErrorMessage: &msg},
	}

	resp := handle(t, d, `{"type":"submission_history","problemSlug":"p"}`)
	if resp["problemSlug"] != "p" || resp["totalSubmissions"] != float64(2) {
		t.Fatalf("history response = %v", resp)
	}
	entries := resp["history"].([]interface{})
	first := entries[0].(map[string]interface{})
	second := entries[1].(map[string]interface{})
	if _, ok := first["code"]; ok {
		t.Fatalf("code included without includeCode: %v", first)
	}
	if first["test_results"] == nil || first["error_message"] != nil {
		t.Fatalf("first entry = %v", first)
	}
	if _, ok := second["test_results"]; ok || second["error_message"] != msg {
		t.Fatalf("second entry = %v", second)
	}

	resp = handle(t, d, `{"type":"submission_history","problemSlug":"p","includeCode":true}`)
	if resp["history"].([]interface{})[0].(map[string]interface{})["code"] != "print(2)" {
		t.Fatalf("code missing with includeCode: %v", resp)
	}

	resp = handle(t, d, `{"type":"submission_history"}`)
	if resp["error"] != "Problem slug is required" {
		t.Fatalf("missing slug response = %v", resp)
	}
}

func TestCheckProblemsStatus(t *testing.T) {
	d, _, ledger := newTestDispatcher(t)
	ledger.statuses["p1"] = model.StatusSuccess
	ledger.statuses["p3"] = model.StatusFailed

	resp := handle(t, d, `{"type":"check_problems_status","problemSlugs":["p1","p2","p3"]}`)
	statuses := resp["problemStatuses"].(map[string]interface{})
	if statuses["p1"] != "success" || statuses["p2"] != "not_attempted" {
		t.Fatalf("statuses = %v", statuses)
	}
	if resp["totalProblems"] != float64(3) || resp["solvedCount"] != float64(1) || resp["failedCount"] != float64(1) ||
		resp["errorCount"] != float64(0) || resp["notAttemptedCount"] != float64(1) {
		t.Fatalf("counts = %v", resp)
	}

	resp = handle(t, d, `{"type":"check_problems_status","problemSlugs":"p1"}`)
	if resp["error"] != "problemSlugs must be a list" {
		t.Fatalf("non-list response = %v", resp)
	}

	resp = handle(t, d, `{"type":"check_problems_status"}`)
	if resp["totalProblems"] != float64(0) {
		t.Fatalf("empty response = %v", resp)
	}
}

func TestStatsAndRecent(t *testing.T) {
	d, _, ledger := newTestDispatcher(t)
	resp := handle(t, d, `{"type":"submission_stats"}`)
	if resp["stats"].(map[string]interface{})["total_submissions"] != float64(3) {
		t.Fatalf("stats response = %v", resp)
	}

	tests := []struct {
		frame string
		want  int
	}{
		{`{"type":"recent_submissions"}`, 10},
		{`{"type":"recent_submissions","limit":25}`, 25},
		{`{"type":"recent_submissions","limit":0}`, 1},
		{`{"type":"recent_submissions","limit":-4}`, 1},
		{`{"type":"recent_submissions","limit":5000}`, 1000},
		{`{"type":"recent_submissions","limit":"3"}`, 3},
	}
	for _, tt := range tests {
		resp := handle(t, d, tt.frame)
		if ledger.recentLimit != tt.want || resp["count"] != float64(1) {
			t.Fatalf("%s: limit %d, want %d (%v)", tt.frame, ledger.recentLimit, tt.want, resp)
		}
	}

	resp = handle(t, d, `{"type":"recent_submissions","limit":"many"}`)
	if resp["error"] != "limit must be a number" {
		t.Fatalf("bad limit response = %v", resp)
	}
}

func TestEncodeSplicesCorrelation(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"x","_msgId":"m"}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := encode(req, struct{}{})
	if err != nil || string(out) != `{"_msgId":"m"}` {
		t.Fatalf("empty body = %s (%v)", out, err)
	}
	out, err = encode(req, map[string]int{"a": 1})
	if err != nil || string(out) != `{"_msgId":"m","a":1}` {
		t.Fatalf("body = %s (%v)", out, err)
	}
	if _, err := encode(req, []int{1}); err == nil {
		t.Fatalf("expected error for non-object body")
	}
}
