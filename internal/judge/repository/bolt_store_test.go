package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "submissions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	seq := 0
	store.newID = func() string {
		seq++
		return fmt.Sprintf("sub-%02d", seq)
	}
	return store
}

func add(t *testing.T, s *BoltStore, slug, lang string, status model.SubmissionStatus) string {
	t.Helper()
	id, err := s.AddSubmission(context.Background(), model.NewSubmission{
		ProblemSlug: slug,
		Language:    lang,
		Code:        "print('" + slug + "')",
		Status:      status,
	})
	if err != nil {
		t.Fatalf("add submission: %v", err)
	}
	return id
}

func TestAddAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.AddSubmission(ctx, model.NewSubmission{
		ProblemSlug: "two-sum",
		Language:    "python",
		Code:        "print(1)",
		Status:      model.StatusFailed,
		TestResults: &model.TestResults{TotalTestCases: 3, PassedTestCases: 1},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second := add(t, s, "two-sum", "cpp", model.StatusSuccess)
	add(t, s, "other", "java", model.StatusError)

	history, err := s.History(ctx, "two-sum", false)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != second || history[1].ID != first {
		t.Fatalf("history order = %+v", history)
	}
	if history[1].Code != "" {
		t.Fatalf("code must be omitted")
	}
	var results model.TestResults
	if err := json.Unmarshal(history[1].TestResults, &results); err != nil || results.TotalTestCases != 3 {
		t.Fatalf("test results = %s (%v)", history[1].TestResults, err)
	}
	if history[1].Datetime == "" || history[1].Timestamp <= 0 {
		t.Fatalf("missing time fields: %+v", history[1])
	}

	withCode, err := s.History(ctx, "two-sum", true)
	if err != nil {
		t.Fatalf("history with code: %v", err)
	}
	if withCode[1].Code != "print(1)" {
		t.Fatalf("code = %q", withCode[1].Code)
	}

	empty, err := s.History(ctx, "missing", false)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty history, got %v, %v", empty, err)
	}
}

func TestAddSubmissionValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.AddSubmission(ctx, model.NewSubmission{Language: "python", Status: model.StatusSuccess}); !appErr.Is(err, appErr.ProblemSlugRequired) {
		t.Fatalf("expected slug error, got %v", err)
	}
	if _, err := s.AddSubmission(ctx, model.NewSubmission{ProblemSlug: "p", Language: "python", Status: model.StatusNotAttempted}); err == nil {
		t.Fatalf("not_attempted must not be stored")
	}
	if _, err := s.History(ctx, "", false); !appErr.Is(err, appErr.ProblemSlugRequired) {
		t.Fatalf("expected slug error, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	s := newTestStore(t)
	add(t, s, "p1", "python", model.StatusSuccess)

	add(t, s, "p3", "python", model.StatusSuccess)
	add(t, s, "p3", "python", model.StatusFailed)
	add(t, s, "p3", "python", model.StatusError)

	add(t, s, "p4", "python", model.StatusError)
	add(t, s, "p4", "python", model.StatusError)

	got, err := s.CheckStatus(context.Background(), []string{"p1", "p2", "p3", "p4"})
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	want := map[string]model.SubmissionStatus{
		"p1": model.StatusSuccess,
		"p2": model.StatusNotAttempted,
		"p3": model.StatusFailed,
		"p4": model.StatusError,
	}
	for slug, status := range want {
		if got[slug] != status {
			t.Fatalf("%s: got %s, want %s", slug, got[slug], status)
		}
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	add(t, s, "p1", "python", model.StatusFailed)
	add(t, s, "p1", "python", model.StatusSuccess)
	add(t, s, "p2", "java", model.StatusError)
	add(t, s, "p3", "cpp", model.StatusFailed)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSubmissions != 4 || stats.SuccessfulSubmissions != 1 || stats.FailedSubmissions != 2 || stats.ErrorSubmissions != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.UniqueProblemsAttempted != 3 || stats.UniqueProblemsSolved != 1 || stats.UniqueLanguages != 3 {
		t.Fatalf("unique counts = %+v", stats)
	}
	if fmt.Sprint(stats.LanguagesUsed) != "[cpp java python]" {
		t.Fatalf("languages = %v", stats.LanguagesUsed)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSubmissions != 0 || len(stats.LanguagesUsed) != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRecent(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, add(t, s, fmt.Sprintf("p%d", i), "python", model.StatusSuccess))
	}
	recent, err := s.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != ids[4] || recent[2].ID != ids[2] {
		t.Fatalf("recent = %+v", recent)
	}

	all, err := s.Recent(context.Background(), 100)
	if err != nil || len(all) != 5 {
		t.Fatalf("expected all 5, got %d (%v)", len(all), err)
	}
}

func TestBackup(t *testing.T) {
	s := newTestStore(t)
	first := add(t, s, "p1", "python", model.StatusSuccess)
	add(t, s, "p2", "cpp", model.StatusFailed)

	var buf bytes.Buffer
	if err := s.Backup(context.Background(), &buf); err != nil {
		t.Fatalf("backup: %v", err)
	}
	var dumped []model.Submission
	if err := json.Unmarshal(buf.Bytes(), &dumped); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	if len(dumped) != 2 || dumped[0].ID != first || dumped[0].Code != "print('p1')" {
		t.Fatalf("backup = %+v", dumped)
	}
}

func TestReopenKeepsSubmissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := add(t, s, "p1", "python", model.StatusSuccess)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	history, err := s.History(context.Background(), "p1", true)
	if err != nil || len(history) != 1 || history[0].ID != id {
		t.Fatalf("history after reopen = %+v (%v)", history, err)
	}
}
