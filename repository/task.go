package repository

import (
	"context"
	"time"

	"github.com/fastygo/lifequest/domain"
)

type TaskFilter struct {
	UserID   string
	Status   string
	Category string
	Limit    int
	Offset   int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update never writes points or completion fields.
	Update(ctx context.Context, task *domain.Task) error
	// Delete removes the task and, transitively, its subtasks.
	Delete(ctx context.Context, id string) error
}

// StatsRepository runs the grouped read queries behind leaderboards and analytics.
type StatsRepository interface {
	// CompletedTotals groups completed tasks by owner. A nil since means no lower bound.
	CompletedTotals(ctx context.Context, since *time.Time) ([]domain.PointsTotal, error)
	// CreatedBetween lists tasks owned by userID created inside [from, to].
	CreatedBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error)
}
