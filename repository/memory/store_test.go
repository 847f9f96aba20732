package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

var base = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	now := base
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestTaskListFiltersAndOrders(t *testing.T) {
	store := New(fixedClock())
	repo := store.Tasks()
	ctx := context.Background()

	for _, task := range []domain.Task{
		{ID: "a", UserID: "alice", Category: domain.CategoryFitness, Status: domain.StatusPending},
		{ID: "b", UserID: "alice", Category: domain.CategoryCareer, Status: domain.StatusPending},
		{ID: "c", UserID: "bob", Category: domain.CategoryFitness, Status: domain.StatusPending, Collaborators: []string{"alice"}},
		{ID: "d", UserID: "bob", Category: domain.CategoryFitness, Status: domain.StatusPending},
	} {
		task := task
		_, err := repo.Create(ctx, &task)
		require.NoError(t, err)
	}

	tasks, err := repo.List(ctx, repository.TaskFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "c", tasks[0].ID, "newest first")
	assert.Equal(t, "a", tasks[2].ID)

	tasks, err = repo.List(ctx, repository.TaskFilter{UserID: "alice", Category: "fitness", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].ID)

	tasks, err = repo.List(ctx, repository.TaskFilter{UserID: "alice", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskCreateRejectsDuplicatesAndMissingParent(t *testing.T) {
	repo := New(fixedClock()).Tasks()
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Task{ID: "a", UserID: "alice", Category: domain.CategoryHome})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.Task{ID: "a", UserID: "alice", Category: domain.CategoryHome})
	assert.True(t, errors.Is(err, domain.ErrTaskExists))

	_, err = repo.Create(ctx, &domain.Task{UserID: "alice", ParentID: "ghost", Category: domain.CategoryHome})
	assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
}

func TestTaskDeleteCascades(t *testing.T) {
	store := New(fixedClock())
	repo := store.Tasks()
	ctx := context.Background()

	for _, task := range []domain.Task{
		{ID: "root", UserID: "alice", Category: domain.CategoryHome},
		{ID: "child", ParentID: "root", UserID: "alice", Category: domain.CategoryHome},
		{ID: "grandchild", ParentID: "child", UserID: "alice", Category: domain.CategoryHome},
		{ID: "other", UserID: "alice", Category: domain.CategoryHome},
	} {
		task := task
		_, err := repo.Create(ctx, &task)
		require.NoError(t, err)
	}

	require.NoError(t, repo.Delete(ctx, "root"))
	for _, id := range []string{"root", "child", "grandchild"} {
		_, err := repo.GetByID(ctx, id)
		assert.True(t, errors.Is(err, domain.ErrTaskNotFound), id)
	}
	_, err := repo.GetByID(ctx, "other")
	assert.NoError(t, err)

	assert.True(t, errors.Is(repo.Delete(ctx, "root"), domain.ErrTaskNotFound))
}

func TestCompletedTotalsRespectsSince(t *testing.T) {
	store := New(nil)
	recent := base.Add(-24 * time.Hour)
	old := base.Add(-40 * 24 * time.Hour)
	store.SeedTask(domain.Task{ID: "1", UserID: "alice", Category: domain.CategoryFitness, Status: domain.StatusCompleted, Points: 30, CompletedAt: &recent})
	store.SeedTask(domain.Task{ID: "2", UserID: "alice", Category: domain.CategoryFitness, Status: domain.StatusCompleted, Points: 100, CompletedAt: &old})
	store.SeedTask(domain.Task{ID: "3", UserID: "alice", Category: domain.CategoryFitness, Status: domain.StatusPending, Points: 70})

	since := base.Add(-7 * 24 * time.Hour)
	totals, err := store.Stats().CompletedTotals(context.Background(), &since)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(30), totals[0].Points)
	assert.Equal(t, int64(1), totals[0].TotalTasks)

	totals, err = store.Stats().CompletedTotals(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(130), totals[0].Points)
}

func TestRunInTxDiscardsWritesOnError(t *testing.T) {
	store := New(nil)
	store.SeedTask(domain.Task{ID: "t", UserID: "alice", Category: domain.CategoryFitness, Status: domain.StatusPending, Points: 10})
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Completions().RunInTx(ctx, func(ctx context.Context, tx repository.CompletionTx) error {
		require.NoError(t, tx.MarkCompleted(ctx, "t", base))
		progress, err := tx.ProgressForUpdate(ctx, "alice", domain.CategoryFitness)
		require.NoError(t, err)
		progress.Award(10, base)
		require.NoError(t, tx.SaveProgress(ctx, "alice", progress))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	task, err := store.Tasks().GetByID(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, task.Status)
	progress, err := store.Progress().GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, progress.Categories)
	assert.Zero(t, store.CompletionCount())
}

func TestCreatedBetweenIsInclusive(t *testing.T) {
	store := New(nil)
	from := base.Add(-time.Hour)
	store.SeedTask(domain.Task{ID: "edge", UserID: "alice", Category: domain.CategoryHome, CreatedAt: from})
	store.SeedTask(domain.Task{ID: "before", UserID: "alice", Category: domain.CategoryHome, CreatedAt: from.Add(-time.Second)})
	store.SeedTask(domain.Task{ID: "mine-not", UserID: "bob", Category: domain.CategoryHome, CreatedAt: base})

	tasks, err := store.Stats().CreatedBetween(context.Background(), "alice", from, base)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "edge", tasks[0].ID)
}
