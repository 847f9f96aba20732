package task

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/pkg/logger"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/usecase"
)

// UseCase manages task records. Completion is not handled here: a task only reaches
// the completed status through the completion use case.
type UseCase struct {
	tasks  repository.TaskRepository
	buffer usecase.OperationBuffer
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		buffer: buffer,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, userID string, filter repository.TaskFilter) ([]domain.Task, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if filter.Status != "" && !domain.TaskStatus(filter.Status).Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if filter.Category != "" && !domain.Category(filter.Category).Valid() {
		return nil, domain.ErrInvalidCategory
	}
	filter.UserID = userID

	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, domain.StoreError("list tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// GetTask returns the task when userID owns it or collaborates on it.
func (uc *UseCase) GetTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StoreError("get task", err)
	}
	if !task.AccessibleBy(userID) {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// CreateTask stores a new task owned by userID.
func (uc *UseCase) CreateTask(ctx context.Context, userID string, task *domain.Task) (*domain.Task, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	task.UserID = userID
	task.CompletedAt = nil
	if task.Status == "" {
		task.Status = domain.StatusPending
	}
	if task.Status == domain.StatusCompleted {
		return nil, domain.ErrStatusRequiresComplete
	}
	if err := validate(task); err != nil {
		return nil, err
	}
	if task.ParentID != "" {
		if _, err := uc.GetTask(ctx, userID, task.ParentID); err != nil {
			return nil, err
		}
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationCreate, task, err) {
			return task, nil
		}
		return nil, domain.StoreError("create task", err)
	}
	return created, nil
}

// UpdateTask rewrites the editable fields of a task. Points, category, owner and
// completion state are kept from the stored record.
func (uc *UseCase) UpdateTask(ctx context.Context, userID string, patch *domain.Task) (*domain.Task, error) {
	if patch == nil {
		return nil, domain.ErrInvalidPayload
	}
	current, err := uc.GetTask(ctx, userID, patch.ID)
	if err != nil {
		return nil, err
	}

	status := patch.Status
	if status == "" {
		status = current.Status
	}
	switch {
	case current.IsCompleted() && status != domain.StatusCompleted:
		return nil, domain.ErrCompletedTaskReadOnly
	case !current.IsCompleted() && status == domain.StatusCompleted:
		return nil, domain.ErrStatusRequiresComplete
	}

	updated := current.Clone()
	updated.Status = status
	if title := strings.TrimSpace(patch.Title); title != "" {
		updated.Title = title
	}
	updated.Description = patch.Description
	updated.Priority = patch.Priority
	updated.Tags = patch.Tags
	updated.Collaborators = patch.Collaborators
	updated.Details = patch.Details
	updated.StartDate = patch.StartDate
	updated.DueDate = patch.DueDate
	if err := validate(&updated); err != nil {
		return nil, err
	}

	if err := uc.tasks.Update(ctx, &updated); err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationUpdate, &updated, err) {
			return &updated, nil
		}
		return nil, domain.StoreError("update task", err)
	}
	return &updated, nil
}

// DeleteTask removes a task and its subtasks. Only the owner may delete.
func (uc *UseCase) DeleteTask(ctx context.Context, userID, id string) error {
	current, err := uc.GetTask(ctx, userID, id)
	if err != nil {
		return err
	}
	if current.UserID != userID {
		return domain.ErrNotTaskOwner
	}

	if err := uc.tasks.Delete(ctx, id); err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationDelete, &domain.Task{ID: id, UserID: userID}, err) {
			return nil
		}
		return domain.StoreError("delete task", err)
	}
	return nil
}

func validate(task *domain.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	switch {
	case task.Title == "":
		return domain.ErrTitleRequired
	case !task.Category.Valid():
		return domain.ErrInvalidCategory
	case !task.Status.Valid():
		return domain.ErrInvalidStatus
	case task.Points < 0:
		return domain.ErrNegativePoints
	}
	return nil
}

// shouldBuffer parks the operation for replay when the store is failing.
// Domain errors are never buffered.
func (uc *UseCase) shouldBuffer(ctx context.Context, operation string, task *domain.Task, cause error) bool {
	var dErr *domain.Error
	if uc.buffer == nil || errors.As(cause, &dErr) || ctx.Err() != nil {
		return false
	}

	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("operation", operation), zap.String("task_id", task.ID))
	if err := uc.buffer.BufferTask(ctx, operation, task); err != nil {
		log.Error("failed to buffer task operation", zap.Error(err), zap.NamedError("cause", cause))
		return false
	}
	log.Warn("task operation buffered", zap.Error(cause))
	return true
}
