package memory

import (
	"context"
	"time"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type completionRepository struct{ s *Store }

// RunInTx holds the store's write lock for the whole unit, so units are serialized.
// Writes are staged and only applied when fn succeeds.
func (r *completionRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.CompletionTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &memoryTx{
		s:        r.s,
		tasks:    make(map[string]domain.Task),
		progress: make(map[progressKey]domain.CategoryProgress),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memoryTx struct {
	s        *Store
	tasks    map[string]domain.Task
	progress map[progressKey]domain.CategoryProgress
	events   []domain.CompletionEvent
}

func (t *memoryTx) task(id string) (domain.Task, bool) {
	if task, ok := t.tasks[id]; ok {
		return task, true
	}
	task, ok := t.s.tasks[id]
	return task, ok
}

func (t *memoryTx) TaskForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	task, ok := t.task(id)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := task.Clone()
	return &clone, nil
}

func (t *memoryTx) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task, ok := t.task(id)
	if !ok || task.IsCompleted() {
		return domain.ErrTaskAlreadyCompleted
	}
	task = task.Clone()
	task.Status = domain.StatusCompleted
	completedAt := at
	task.CompletedAt = &completedAt
	task.UpdatedAt = at
	t.tasks[id] = task
	return nil
}

func (t *memoryTx) ProgressForUpdate(ctx context.Context, userID string, category domain.Category) (domain.CategoryProgress, error) {
	if err := ctx.Err(); err != nil {
		return domain.CategoryProgress{}, err
	}
	key := progressKey{userID, category}
	if entry, ok := t.progress[key]; ok {
		return entry, nil
	}
	if entry, ok := t.s.progress[key]; ok {
		return entry, nil
	}
	return domain.NewCategoryProgress(category), nil
}

func (t *memoryTx) SaveProgress(ctx context.Context, userID string, progress domain.CategoryProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.progress[progressKey{userID, progress.Category}] = progress
	return nil
}

func (t *memoryTx) AppendCompletion(ctx context.Context, event domain.CompletionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := t.s.events[event.TaskID]; exists {
		return domain.ErrTaskAlreadyCompleted
	}
	for _, staged := range t.events {
		if staged.TaskID == event.TaskID {
			return domain.ErrTaskAlreadyCompleted
		}
	}
	t.events = append(t.events, event)
	return nil
}

func (t *memoryTx) commit() {
	for id, task := range t.tasks {
		t.s.tasks[id] = task
	}
	for key, entry := range t.progress {
		t.s.progress[key] = entry
	}
	for _, event := range t.events {
		t.s.events[event.TaskID] = event
	}
}
