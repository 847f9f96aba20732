package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns the Postgres implementation of the aggregation queries.
func NewStatsRepository(pool *pgxpool.Pool) repository.StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) CompletedTotals(ctx context.Context, since *time.Time) ([]domain.PointsTotal, error) {
	const query = `
	SELECT user_id, COALESCE(SUM(points), 0)::BIGINT, COUNT(*)::BIGINT
	FROM tasks
	WHERE status = 'completed'
	  AND ($1::TIMESTAMPTZ IS NULL OR completed_at >= $1::TIMESTAMPTZ)
	GROUP BY user_id
	`
	rows, err := r.pool.Query(ctx, query, nullTimePtr(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.PointsTotal
	for rows.Next() {
		var total domain.PointsTotal
		if err := rows.Scan(&total.UserID, &total.Points, &total.TotalTasks); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

func (r *statsRepository) CreatedBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks
	WHERE user_id = $1
	  AND created_at >= $2
	  AND created_at <= $3
	ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}
