package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type progressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository returns a Postgres-backed ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) repository.ProgressRepository {
	return &progressRepository{pool: pool}
}

func (r *progressRepository) GetByUser(ctx context.Context, userID string) (*domain.UserProgress, error) {
	const query = `
	SELECT category, level, xp, total_completed, updated_at
	FROM category_progress
	WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	progress := &domain.UserProgress{
		UserID:     userID,
		Categories: make(map[domain.Category]domain.CategoryProgress),
	}
	for rows.Next() {
		entry, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		progress.Categories[entry.Category] = entry
	}
	return progress, rows.Err()
}

func scanProgress(row interface {
	Scan(dest ...interface{}) error
}) (domain.CategoryProgress, error) {
	var (
		entry    domain.CategoryProgress
		category string
	)
	if err := row.Scan(&category, &entry.Level, &entry.XP, &entry.TotalCompleted, &entry.UpdatedAt); err != nil {
		return domain.CategoryProgress{}, err
	}
	entry.Category = domain.Category(category)
	return entry, nil
}
