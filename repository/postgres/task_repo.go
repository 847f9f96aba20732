package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

const taskColumns = `id, user_id, parent_id, category, title, description, status, priority, points,
	tags, collaborators, details, start_date, due_date, completed_at, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR user_id = $1 OR $1 = ANY(collaborators))
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR category = $3)
	ORDER BY created_at DESC, id
	LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query, filter.UserID, filter.Status, filter.Category, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, user_id, parent_id, category, title, description, status, priority, points,
		tags, collaborators, details, start_date, due_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.UserID,
		nullString(task.ParentID),
		string(task.Category),
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		task.Points,
		textArray(task.Tags),
		textArray(task.Collaborators),
		nullJSON(task.Details),
		nullTimePtr(task.StartDate),
		nullTimePtr(task.DueDate),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrTaskExists
		}
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	// points, completed_at and the completed status are owned by the completion unit.
	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		status = $4,
		priority = $5,
		tags = $6,
		collaborators = $7,
		details = $8,
		start_date = $9,
		due_date = $10,
		updated_at = NOW()
	WHERE id = $1
	  AND (status = 'completed') = ($4 = 'completed')
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		textArray(task.Tags),
		textArray(task.Collaborators),
		nullJSON(task.Details),
		nullTimePtr(task.StartDate),
		nullTimePtr(task.DueDate),
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		parentID *string
		category string
		status   string
		details  []byte
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&parentID,
		&category,
		&task.Title,
		&task.Description,
		&status,
		&task.Priority,
		&task.Points,
		&task.Tags,
		&task.Collaborators,
		&details,
		&task.StartDate,
		&task.DueDate,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	if parentID != nil {
		task.ParentID = *parentID
	}
	task.Category = domain.Category(category)
	task.Status = domain.TaskStatus(status)
	if len(details) > 0 {
		task.Details = append([]byte(nil), details...)
	}

	return &task, nil
}
