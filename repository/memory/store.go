// Package memory keeps every repository in process memory. It mirrors the Postgres
// semantics closely enough to run the service locally and to back package tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type progressKey struct {
	userID   string
	category domain.Category
}

// Store is the shared state behind the memory repositories.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]domain.Task
	users    map[string]domain.User
	progress map[progressKey]domain.CategoryProgress
	events   map[string]domain.CompletionEvent
	now      func() time.Time
}

// New creates an empty store. A nil clock defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		tasks:    make(map[string]domain.Task),
		users:    make(map[string]domain.User),
		progress: make(map[progressKey]domain.CategoryProgress),
		events:   make(map[string]domain.CompletionEvent),
		now:      now,
	}
}

func (s *Store) Tasks() repository.TaskRepository             { return &taskRepository{s} }
func (s *Store) Stats() repository.StatsRepository            { return &statsRepository{s} }
func (s *Store) Users() repository.UserRepository             { return &userRepository{s} }
func (s *Store) Progress() repository.ProgressRepository      { return &progressRepository{s} }
func (s *Store) Completions() repository.CompletionRepository { return &completionRepository{s} }

// SeedTask stores the task exactly as given, timestamps included.
func (s *Store) SeedTask(task domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	s.tasks[task.ID] = task.Clone()
}

// SeedUser stores the user exactly as given.
func (s *Store) SeedUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// SeedProgress overwrites one category row of a user.
func (s *Store) SeedProgress(userID string, progress domain.CategoryProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey{userID, progress.Category}] = progress
}

// CompletionCount returns the number of recorded completion events.
func (s *Store) CompletionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

type taskRepository struct{ s *Store }

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	task, ok := r.s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := task.Clone()
	return &clone, nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	var tasks []domain.Task
	for _, task := range r.s.tasks {
		if filter.UserID != "" && !task.AccessibleBy(filter.UserID) {
			continue
		}
		if filter.Status != "" && string(task.Status) != filter.Status {
			continue
		}
		if filter.Category != "" && string(task.Category) != filter.Category {
			continue
		}
		tasks = append(tasks, task.Clone())
	}
	r.s.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})

	if filter.Offset >= len(tasks) {
		return nil, nil
	}
	if filter.Offset > 0 {
		tasks = tasks[filter.Offset:]
	}
	if limit := clampLimit(filter.Limit); len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.tasks[task.ID]; exists {
		return nil, domain.ErrTaskExists
	}
	if task.ParentID != "" {
		if _, ok := r.s.tasks[task.ParentID]; !ok {
			return nil, domain.ErrTaskNotFound
		}
	}
	now := r.s.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.CompletedAt = nil
	r.s.tasks[task.ID] = task.Clone()
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if task == nil {
		return domain.ErrInvalidPayload
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tasks[task.ID]
	if !ok || stored.IsCompleted() != (task.Status == domain.StatusCompleted) {
		return domain.ErrTaskNotFound
	}

	stored.Title = task.Title
	stored.Description = task.Description
	stored.Status = task.Status
	stored.Priority = task.Priority
	stored.Tags = task.Tags
	stored.Collaborators = task.Collaborators
	stored.Details = task.Details
	stored.StartDate = task.StartDate
	stored.DueDate = task.DueDate
	stored.UpdatedAt = r.s.now()
	r.s.tasks[task.ID] = stored.Clone()

	task.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}

	pending := []string{id}
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]
		delete(r.s.tasks, current)
		for childID, child := range r.s.tasks {
			if child.ParentID == current {
				pending = append(pending, childID)
			}
		}
	}
	return nil
}

type statsRepository struct{ s *Store }

func (r *statsRepository) CompletedTotals(ctx context.Context, since *time.Time) ([]domain.PointsTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byUser := make(map[string]*domain.PointsTotal)
	for _, task := range r.s.tasks {
		if !task.IsCompleted() || task.CompletedAt == nil {
			continue
		}
		if since != nil && task.CompletedAt.Before(*since) {
			continue
		}
		total, ok := byUser[task.UserID]
		if !ok {
			total = &domain.PointsTotal{UserID: task.UserID}
			byUser[task.UserID] = total
		}
		total.Points += int64(task.Points)
		total.TotalTasks++
	}

	totals := make([]domain.PointsTotal, 0, len(byUser))
	for _, total := range byUser {
		totals = append(totals, *total)
	}
	return totals, nil
}

func (r *statsRepository) CreatedBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tasks []domain.Task
	for _, task := range r.s.tasks {
		if task.UserID != userID || task.CreatedAt.Before(from) || task.CreatedAt.After(to) {
			continue
		}
		tasks = append(tasks, task.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	if existing, ok := r.s.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) Profiles(ctx context.Context, ids []string) (map[string]domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	profiles := make(map[string]domain.Profile, len(ids))
	for _, id := range ids {
		user, ok := r.s.users[id]
		if !ok {
			continue
		}
		progress := r.s.userProgressLocked(id)
		profiles[id] = domain.Profile{
			UserID:   user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Avatar:   user.Avatar,
			Progress: progress.Overall(),
		}
	}
	return profiles, nil
}

type progressRepository struct{ s *Store }

func (r *progressRepository) GetByUser(ctx context.Context, userID string) (*domain.UserProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.userProgressLocked(userID), nil
}

func (s *Store) userProgressLocked(userID string) *domain.UserProgress {
	progress := &domain.UserProgress{
		UserID:     userID,
		Categories: make(map[domain.Category]domain.CategoryProgress),
	}
	for key, entry := range s.progress {
		if key.userID == userID {
			progress.Categories[key.category] = entry
		}
	}
	return progress
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
