package repository

import (
	"context"
	"time"

	"github.com/fastygo/lifequest/domain"
)

// CompletionTx exposes the reads and writes of one completion unit. Rows read through it
// stay locked until the unit ends.
type CompletionTx interface {
	TaskForUpdate(ctx context.Context, id string) (*domain.Task, error)
	// MarkCompleted returns domain.ErrTaskAlreadyCompleted when the task is already completed.
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	// ProgressForUpdate returns the category row, creating it at level 1 when missing.
	ProgressForUpdate(ctx context.Context, userID string, category domain.Category) (domain.CategoryProgress, error)
	SaveProgress(ctx context.Context, userID string, progress domain.CategoryProgress) error
	AppendCompletion(ctx context.Context, event domain.CompletionEvent) error
}

// CompletionRepository runs fn as a single atomic unit: every write made through the
// CompletionTx is committed together when fn returns nil and discarded otherwise.
type CompletionRepository interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx CompletionTx) error) error
}
