// Package repository persists judged submissions and publishes their events.
package repository

import (
	"context"
	"io"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
)

// SubmissionStore is the append-and-query ledger of submissions.
type SubmissionStore interface {
	AddSubmission(ctx context.Context, sub model.NewSubmission) (string, error)
	// History lists a problem's submissions newest first.
	History(ctx context.Context, problemSlug string, includeCode bool) ([]model.Submission, error)
	// CheckStatus maps every slug to its status; unknown slugs are not_attempted.
	CheckStatus(ctx context.Context, problemSlugs []string) (map[string]model.SubmissionStatus, error)
	Stats(ctx context.Context) (model.Stats, error)
	Recent(ctx context.Context, limit int) ([]model.RecentSubmission, error)
	// Backup writes every submission, oldest first, as a JSON array.
	Backup(ctx context.Context, w io.Writer) error
	Close() error
}
