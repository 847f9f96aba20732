package completion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/internal/metrics"
	"github.com/fastygo/lifequest/pkg/logger"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/usecase"
)

const sideEffectTimeout = 2 * time.Second

// unknownCategory labels attempts rejected before the task could be read.
const unknownCategory = "unknown"

// UseCase turns a task into a completed one and awards its points to the owner's
// category. It is the only writer of progress.
type UseCase struct {
	completions repository.CompletionRepository
	cache       repository.LeaderboardCache
	events      usecase.EventPublisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*UseCase)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// WithCache invalidates cached leaderboards after every award.
func WithCache(cache repository.LeaderboardCache) Option {
	return func(uc *UseCase) { uc.cache = cache }
}

// WithPublisher announces every award after commit.
func WithPublisher(events usecase.EventPublisher) Option {
	return func(uc *UseCase) { uc.events = events }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCase) { uc.metrics = m }
}

func New(completions repository.CompletionRepository, log *zap.Logger, opts ...Option) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	uc := &UseCase{
		completions: completions,
		logger:      log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Complete marks the task completed on behalf of userID and credits the task owner.
// Completing an already completed task fails with domain.ErrTaskAlreadyCompleted and
// awards nothing; tasks the caller cannot access are reported as not found.
func (uc *UseCase) Complete(ctx context.Context, taskID, userID string) (*domain.CompletionResult, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if taskID == "" {
		return nil, domain.ErrTaskNotFound
	}

	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("task_id", taskID), zap.String("user_id", userID))
	now := uc.now().UTC()

	var (
		result   domain.CompletionResult
		event    domain.CompletionEvent
		category = unknownCategory
	)
	err := uc.completions.RunInTx(ctx, func(ctx context.Context, tx repository.CompletionTx) error {
		task, err := tx.TaskForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.AccessibleBy(userID) {
			return domain.ErrTaskNotFound
		}
		category = string(task.Category)
		if task.IsCompleted() {
			return domain.ErrTaskAlreadyCompleted
		}

		if err := tx.MarkCompleted(ctx, task.ID, now); err != nil {
			return err
		}

		progress, err := tx.ProgressForUpdate(ctx, task.UserID, task.Category)
		if err != nil {
			return err
		}
		levelBefore := progress.Level
		progress.Award(task.Points, now)
		if err := tx.SaveProgress(ctx, task.UserID, progress); err != nil {
			return err
		}

		event = domain.CompletionEvent{
			ID:          uuid.NewString(),
			TaskID:      task.ID,
			UserID:      task.UserID,
			ActorID:     userID,
			Category:    task.Category,
			Points:      task.Points,
			LevelBefore: levelBefore,
			LevelAfter:  progress.Level,
			OccurredAt:  now,
		}
		if err := tx.AppendCompletion(ctx, event); err != nil {
			return err
		}

		task.Status = domain.StatusCompleted
		task.CompletedAt = &now
		task.UpdatedAt = now
		result = domain.CompletionResult{
			Task:        task,
			Progress:    progress,
			XPAwarded:   task.Points,
			LevelBefore: levelBefore,
			LeveledUp:   progress.Level > levelBefore,
		}
		return nil
	})

	uc.metrics.ObserveCompletion(category, event.Points, err)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeConflict) || domain.IsDomainError(err, domain.ErrCodeNotFound) {
			log.Info("task completion rejected", zap.Error(err))
		} else {
			log.Error("task completion failed", zap.Error(err))
		}
		return nil, domain.StoreError("complete task", err)
	}

	log.Info("task completed",
		zap.String("category", string(event.Category)),
		zap.Int("xp_awarded", event.Points),
		zap.Int("level", event.LevelAfter))

	uc.afterCommit(ctx, log, event)
	return &result, nil
}

// afterCommit runs the side effects that must not undo a committed award.
func (uc *UseCase) afterCommit(ctx context.Context, log *zap.Logger, event domain.CompletionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx); err != nil {
			log.Warn("leaderboard cache invalidation failed", zap.Error(err))
		}
	}
	if uc.events != nil {
		if err := uc.events.PublishCompletion(ctx, event); err != nil {
			log.Warn("completion event not published", zap.Error(err))
		}
	}
}
