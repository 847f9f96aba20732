package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type completionRepository struct {
	pool *pgxpool.Pool
}

// NewCompletionRepository returns the transactional completion unit backed by Postgres.
func NewCompletionRepository(pool *pgxpool.Pool) repository.CompletionRepository {
	return &completionRepository{pool: pool}
}

func (r *completionRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.CompletionTx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &completionTx{tx: tx})
	})
}

type completionTx struct {
	tx pgx.Tx
}

func (c *completionTx) TaskForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`
	return scanTask(c.tx.QueryRow(ctx, query, id))
}

func (c *completionTx) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	const query = `
	UPDATE tasks
	SET status = 'completed', completed_at = $2, updated_at = NOW()
	WHERE id = $1 AND status <> 'completed'
	`
	tag, err := c.tx.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskAlreadyCompleted
	}
	return nil
}

func (c *completionTx) ProgressForUpdate(ctx context.Context, userID string, category domain.Category) (domain.CategoryProgress, error) {
	const upsert = `
	INSERT INTO category_progress (user_id, category, level, xp, total_completed)
	VALUES ($1, $2, 1, 0, 0)
	ON CONFLICT (user_id, category) DO NOTHING
	`
	if _, err := c.tx.Exec(ctx, upsert, userID, string(category)); err != nil {
		return domain.CategoryProgress{}, err
	}

	const query = `
	SELECT category, level, xp, total_completed, updated_at
	FROM category_progress
	WHERE user_id = $1 AND category = $2
	FOR UPDATE
	`
	return scanProgress(c.tx.QueryRow(ctx, query, userID, string(category)))
}

func (c *completionTx) SaveProgress(ctx context.Context, userID string, progress domain.CategoryProgress) error {
	const query = `
	UPDATE category_progress
	SET level = $3, xp = $4, total_completed = $5, updated_at = $6
	WHERE user_id = $1 AND category = $2
	`
	_, err := c.tx.Exec(ctx, query,
		userID,
		string(progress.Category),
		progress.Level,
		progress.XP,
		progress.TotalCompleted,
		progress.UpdatedAt,
	)
	return err
}

func (c *completionTx) AppendCompletion(ctx context.Context, event domain.CompletionEvent) error {
	const query = `
	INSERT INTO completion_events (id, task_id, user_id, actor_id, category, points, level_before, level_after, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.tx.Exec(ctx, query,
		event.ID,
		event.TaskID,
		event.UserID,
		event.ActorID,
		string(event.Category),
		event.Points,
		event.LevelBefore,
		event.LevelAfter,
		event.OccurredAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrTaskAlreadyCompleted
	}
	return err
}
