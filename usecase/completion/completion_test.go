package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/internal/metrics"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/repository/memory"
)

var fixedNow = time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) (*UseCase, *memory.Store) {
	t.Helper()
	store := memory.New(func() time.Time { return fixedNow })
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store.Completions(), nil, opts...), store
}

func seedTask(store *memory.Store, id, owner string, category domain.Category, points int) {
	store.SeedTask(domain.Task{
		ID:        id,
		UserID:    owner,
		Category:  category,
		Title:     "task " + id,
		Status:    domain.StatusPending,
		Points:    points,
		CreatedAt: fixedNow.Add(-time.Hour),
		UpdatedAt: fixedNow.Add(-time.Hour),
	})
}

func categoryXP(t *testing.T, store *memory.Store, userID string, category domain.Category) domain.CategoryProgress {
	t.Helper()
	progress, err := store.Progress().GetByUser(context.Background(), userID)
	require.NoError(t, err)
	return progress.Categories[category]
}

func TestCompleteAwardsPointsOnce(t *testing.T) {
	uc, store := newFixture(t)
	seedTask(store, "t1", "alice", domain.CategoryFitness, 50)

	result, err := uc.Complete(context.Background(), "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Task.Status)
	require.NotNil(t, result.Task.CompletedAt)
	assert.Equal(t, fixedNow, *result.Task.CompletedAt)
	assert.Equal(t, 50, result.XPAwarded)
	assert.Equal(t, int64(50), result.Progress.XP)
	assert.Equal(t, 1, result.Progress.Level)
	assert.False(t, result.LeveledUp)

	for i := 0; i < 3; i++ {
		_, err := uc.Complete(context.Background(), "t1", "alice")
		assert.ErrorIs(t, err, domain.ErrTaskAlreadyCompleted)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
	}

	progress := categoryXP(t, store, "alice", domain.CategoryFitness)
	assert.Equal(t, int64(50), progress.XP)
	assert.Equal(t, 1, progress.TotalCompleted)
	assert.Equal(t, 1, store.CompletionCount())

	stored, err := store.Tasks().GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
	require.NotNil(t, stored.CompletedAt)
}

func TestCompleteConcurrentSameTask(t *testing.T) {
	uc, store := newFixture(t)
	seedTask(store, "t1", "alice", domain.CategoryCareer, 50)

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Complete(context.Background(), "t1", "alice")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrTaskAlreadyCompleted):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
	assert.Equal(t, int64(50), categoryXP(t, store, "alice", domain.CategoryCareer).XP)
}

func TestCompleteConcurrentTasksSameCategory(t *testing.T) {
	uc, store := newFixture(t)
	const tasks = 25
	for i := 0; i < tasks; i++ {
		seedTask(store, fmt.Sprintf("t%d", i), "alice", domain.CategoryLearning, 10)
	}

	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := uc.Complete(context.Background(), id, "alice")
			assert.NoError(t, err)
		}(fmt.Sprintf("t%d", i))
	}
	wg.Wait()

	progress := categoryXP(t, store, "alice", domain.CategoryLearning)
	assert.Equal(t, int64(250), progress.XP)
	assert.Equal(t, tasks, progress.TotalCompleted)
	assert.Equal(t, 3, progress.Level)
}

func TestCompleteAccess(t *testing.T) {
	uc, store := newFixture(t)
	store.SeedTask(domain.Task{
		ID:            "shared",
		UserID:        "alice",
		Collaborators: []string{"bob"},
		Category:      domain.CategoryHome,
		Status:        domain.StatusInProgress,
		Points:        40,
		CreatedAt:     fixedNow.Add(-time.Hour),
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := uc.Complete(context.Background(), "nope", "alice")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("stranger sees not found", func(t *testing.T) {
		_, err := uc.Complete(context.Background(), "shared", "mallory")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
		assert.Equal(t, 0, store.CompletionCount())
	})

	t.Run("missing caller", func(t *testing.T) {
		_, err := uc.Complete(context.Background(), "shared", "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("collaborator completes and owner is credited", func(t *testing.T) {
		result, err := uc.Complete(context.Background(), "shared", "bob")
		require.NoError(t, err)
		assert.Equal(t, "alice", result.Task.UserID)
		assert.Equal(t, int64(40), categoryXP(t, store, "alice", domain.CategoryHome).XP)
		assert.Equal(t, int64(0), categoryXP(t, store, "bob", domain.CategoryHome).XP)
	})
}

func TestCompleteLevelUp(t *testing.T) {
	uc, store := newFixture(t)
	store.SeedProgress("alice", domain.CategoryProgress{Category: domain.CategoryFinance, Level: 1, XP: 90, TotalCompleted: 4})
	seedTask(store, "t1", "alice", domain.CategoryFinance, 20)

	result, err := uc.Complete(context.Background(), "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, result.LevelBefore)
	assert.Equal(t, 2, result.Progress.Level)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 5, result.Progress.TotalCompleted)
}

type failingRepo struct {
	inner repository.CompletionRepository
}

func (f failingRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.CompletionTx) error) error {
	return f.inner.RunInTx(ctx, func(ctx context.Context, tx repository.CompletionTx) error {
		return fn(ctx, failingTx{tx})
	})
}

type failingTx struct {
	repository.CompletionTx
}

func (failingTx) SaveProgress(context.Context, string, domain.CategoryProgress) error {
	return errors.New("connection reset")
}

func TestCompleteRollsBackOnProgressFailure(t *testing.T) {
	store := memory.New(func() time.Time { return fixedNow })
	seedTask(store, "t1", "alice", domain.CategoryHealth, 50)
	uc := New(failingRepo{store.Completions()}, nil, WithClock(func() time.Time { return fixedNow }))

	_, err := uc.Complete(context.Background(), "t1", "alice")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))

	stored, err := store.Tasks().GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.Equal(t, 0, store.CompletionCount())

	// a healthy retry still awards exactly once
	healthy := New(store.Completions(), nil, WithClock(func() time.Time { return fixedNow }))
	_, err = healthy.Complete(context.Background(), "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(50), categoryXP(t, store, "alice", domain.CategoryHealth).XP)
}

type recordingCache struct {
	invalidations atomic.Int32
}

func (c *recordingCache) Generation(context.Context) (int64, error) {
	return int64(c.invalidations.Load()), nil
}

func (c *recordingCache) Get(context.Context, int64, domain.Window) ([]domain.LeaderboardEntry, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) Set(context.Context, int64, domain.Window, []domain.LeaderboardEntry) error {
	return nil
}

func (c *recordingCache) Invalidate(context.Context) error {
	c.invalidations.Add(1)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CompletionEvent
	err    error
}

func (p *recordingPublisher) PublishCompletion(_ context.Context, event domain.CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestCompleteSideEffects(t *testing.T) {
	cache := &recordingCache{}
	publisher := &recordingPublisher{err: errors.New("nats down")}
	uc, store := newFixture(t, WithCache(cache), WithPublisher(publisher))
	seedTask(store, "t1", "alice", domain.CategoryCreativity, 30)

	_, err := uc.Complete(context.Background(), "t1", "bob")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Equal(t, int32(0), cache.invalidations.Load())

	_, err = uc.Complete(context.Background(), "t1", "alice")
	require.NoError(t, err, "publisher failures must not fail a committed completion")
	assert.Equal(t, int32(1), cache.invalidations.Load())

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, "t1", event.TaskID)
	assert.Equal(t, "alice", event.UserID)
	assert.Equal(t, 30, event.Points)
	assert.Equal(t, fixedNow, event.OccurredAt)
}

func TestCompleteCancelledContext(t *testing.T) {
	uc, store := newFixture(t)
	seedTask(store, "t1", "alice", domain.CategoryFitness, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Complete(ctx, "t1", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.CompletionCount())
}

func TestCompleteMetricsLabelRejections(t *testing.T) {
	reg := prometheus.NewRegistry()
	uc, store := newFixture(t, WithMetrics(metrics.New(reg)))
	seedTask(store, "t1", "alice", domain.CategoryFitness, 40)

	_, err := uc.Complete(context.Background(), "t1", "alice")
	require.NoError(t, err)
	_, err = uc.Complete(context.Background(), "t1", "alice")
	require.ErrorIs(t, err, domain.ErrTaskAlreadyCompleted)
	_, err = uc.Complete(context.Background(), "missing", "alice")
	require.ErrorIs(t, err, domain.ErrTaskNotFound)

	expected := `
# HELP lifequest_task_completions_total Task completion attempts by category and outcome.
# TYPE lifequest_task_completions_total counter
lifequest_task_completions_total{category="fitness",outcome="error"} 1
lifequest_task_completions_total{category="fitness",outcome="ok"} 1
lifequest_task_completions_total{category="unknown",outcome="error"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "lifequest_task_completions_total"))
}
