package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/repository/memory"
	completionUC "github.com/fastygo/lifequest/usecase/completion"
)

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func completedTask(id, owner string, points int, ago time.Duration) domain.Task {
	at := fixedNow.Add(-ago)
	return domain.Task{
		ID:          id,
		UserID:      owner,
		Category:    domain.CategoryFitness,
		Title:       id,
		Status:      domain.StatusCompleted,
		Points:      points,
		CompletedAt: &at,
		CreatedAt:   at.Add(-time.Hour),
		UpdatedAt:   at,
	}
}

func newStore() *memory.Store {
	store := memory.New(clock)
	store.SeedUser(domain.User{ID: "alice", Name: "Alice", Email: "alice@example.com", Avatar: "a.png"})
	store.SeedUser(domain.User{ID: "bob", Name: "Bob", Email: "bob@example.com"})
	return store
}

func TestLeaderboardWindows(t *testing.T) {
	store := newStore()
	day := 24 * time.Hour
	store.SeedTask(completedTask("a1", "alice", 50, 2*day))
	store.SeedTask(completedTask("a2", "alice", 30, 2*day))
	store.SeedTask(completedTask("a3", "alice", 100, 40*day))
	store.SeedTask(completedTask("b1", "bob", 60, 10*day))
	store.SeedTask(domain.Task{ID: "open", UserID: "bob", Status: domain.StatusPending, Points: 500, CreatedAt: fixedNow})

	uc := New(store.Stats(), store.Users(), nil, WithClock(clock))

	tests := []struct {
		window domain.Window
		want   []domain.PointsTotal
	}{
		{domain.Window7, []domain.PointsTotal{{UserID: "alice", Points: 80, TotalTasks: 2}}},
		{domain.Window30, []domain.PointsTotal{{UserID: "alice", Points: 80, TotalTasks: 2}, {UserID: "bob", Points: 60, TotalTasks: 1}}},
		{domain.WindowAll, []domain.PointsTotal{{UserID: "alice", Points: 180, TotalTasks: 3}, {UserID: "bob", Points: 60, TotalTasks: 1}}},
	}
	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			entries, err := uc.Leaderboard(context.Background(), tt.window)
			require.NoError(t, err)
			require.Len(t, entries, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, i+1, entries[i].Rank)
				assert.Equal(t, want.UserID, entries[i].UserID)
				assert.Equal(t, want.Points, entries[i].Points)
				assert.Equal(t, want.TotalTasks, entries[i].TotalTasks)
				assert.Equal(t, tt.window, entries[i].Window)
			}
		})
	}
}

func TestLeaderboardJoinsProfiles(t *testing.T) {
	store := newStore()
	store.SeedTask(completedTask("a1", "alice", 40, time.Hour))
	store.SeedTask(completedTask("g1", "ghost", 10, time.Hour))
	store.SeedProgress("alice", domain.CategoryProgress{Category: domain.CategoryFitness, Level: 2, XP: 120, TotalCompleted: 3})
	store.SeedProgress("alice", domain.CategoryProgress{Category: domain.CategoryCareer, Level: 1, XP: 90, TotalCompleted: 2})

	uc := New(store.Stats(), store.Users(), nil, WithClock(clock))
	entries, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	alice := entries[0]
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.Equal(t, "a.png", alice.Avatar)
	assert.Equal(t, int64(210), alice.XP)
	assert.Equal(t, 3, alice.Level)

	ghost := entries[1]
	assert.Equal(t, "ghost", ghost.UserID)
	assert.Empty(t, ghost.Name)
	assert.Equal(t, int64(10), ghost.Points)
}

func TestLeaderboardTieBreaks(t *testing.T) {
	store := memory.New(clock)
	store.SeedTask(completedTask("c1", "carol", 30, time.Hour))
	store.SeedTask(completedTask("c2", "carol", 20, time.Hour))
	store.SeedTask(completedTask("d1", "dave", 50, time.Hour))
	store.SeedTask(completedTask("e1", "erin", 50, time.Hour))

	uc := New(store.Stats(), store.Users(), nil, WithClock(clock))
	entries, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)

	var order []string
	for _, e := range entries {
		order = append(order, e.UserID)
	}
	assert.Equal(t, []string{"carol", "dave", "erin"}, order)
}

func TestLeaderboardTopN(t *testing.T) {
	store := memory.New(clock)
	for i := 0; i < 10; i++ {
		store.SeedTask(completedTask(fmt.Sprintf("t%d", i), fmt.Sprintf("user%02d", i), 10*(i+1), time.Hour))
	}

	uc := New(store.Stats(), store.Users(), nil, WithClock(clock), WithTopN(3))
	entries, err := uc.Leaderboard(context.Background(), domain.WindowAll)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "user09", entries[0].UserID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboardEmpty(t *testing.T) {
	store := memory.New(clock)
	uc := New(store.Stats(), store.Users(), nil, WithClock(clock))

	entries, err := uc.Leaderboard(context.Background(), domain.Window30)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLeaderboardInvalidWindow(t *testing.T) {
	store := memory.New(clock)
	uc := New(store.Stats(), store.Users(), nil, WithClock(clock))

	_, err := uc.Leaderboard(context.Background(), domain.Window("14"))
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestLeaderboardWindowTotalsNeverExceedAll(t *testing.T) {
	store := newStore()
	day := 24 * time.Hour
	for i := 0; i < 20; i++ {
		owner := "alice"
		if i%3 == 0 {
			owner = "bob"
		}
		store.SeedTask(completedTask(fmt.Sprintf("t%d", i), owner, 5+i, time.Duration(i*4)*day))
	}
	uc := New(store.Stats(), store.Users(), nil, WithClock(clock))

	points := func(window domain.Window) map[string]int64 {
		entries, err := uc.Leaderboard(context.Background(), window)
		require.NoError(t, err)
		out := make(map[string]int64, len(entries))
		for _, e := range entries {
			out[e.UserID] = e.Points
		}
		return out
	}
	all := points(domain.WindowAll)
	for _, window := range []domain.Window{domain.Window7, domain.Window30} {
		for user, p := range points(window) {
			assert.LessOrEqual(t, p, all[user], "user %s window %s", user, window)
		}
	}
}

type fakeCache struct {
	generation int64
	entries    map[domain.Window][]domain.LeaderboardEntry
	getErr     error
	sets       int
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	return c.generation, nil
}

func (c *fakeCache) Get(_ context.Context, _ int64, window domain.Window) ([]domain.LeaderboardEntry, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	entries, ok := c.entries[window]
	return entries, ok, nil
}

func (c *fakeCache) Set(_ context.Context, _ int64, window domain.Window, entries []domain.LeaderboardEntry) error {
	c.sets++
	c.entries[window] = entries
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.generation++
	c.entries = map[domain.Window][]domain.LeaderboardEntry{}
	return nil
}

func TestLeaderboardCache(t *testing.T) {
	store := newStore()
	store.SeedTask(completedTask("a1", "alice", 50, time.Hour))
	cache := &fakeCache{entries: map[domain.Window][]domain.LeaderboardEntry{}}
	uc := New(store.Stats(), store.Users(), nil, WithClock(clock), WithCache(cache))

	first, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	store.SeedTask(completedTask("b1", "bob", 500, time.Hour))
	second, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached view is served until invalidated")
	assert.Equal(t, 1, cache.sets)

	require.NoError(t, cache.Invalidate(context.Background()))
	third, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	require.Len(t, third, 2)
	assert.Equal(t, "bob", third[0].UserID)
}

func TestLeaderboardCacheFailureFallsBack(t *testing.T) {
	store := newStore()
	store.SeedTask(completedTask("a1", "alice", 50, time.Hour))
	cache := &fakeCache{entries: map[domain.Window][]domain.LeaderboardEntry{}, getErr: errors.New("redis down")}
	uc := New(store.Stats(), store.Users(), nil, WithClock(clock), WithCache(cache))

	entries, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(50), entries[0].Points)
}

// totalsHook runs once between loading the totals and handing them back.
type totalsHook struct {
	repository.StatsRepository
	once sync.Once
	run  func()
}

func (h *totalsHook) CompletedTotals(ctx context.Context, since *time.Time) ([]domain.PointsTotal, error) {
	totals, err := h.StatsRepository.CompletedTotals(ctx, since)
	h.once.Do(h.run)
	return totals, err
}

func TestLeaderboardCacheSkipsViewsOverlappingACompletion(t *testing.T) {
	store := newStore()
	store.SeedTask(completedTask("a1", "alice", 100, time.Hour))
	pending := completedTask("b1", "bob", 500, 2*time.Hour)
	pending.Status = domain.StatusPending
	pending.CompletedAt = nil
	store.SeedTask(pending)

	cache := memory.NewLeaderboardCache(time.Minute, clock)
	completer := completionUC.New(store.Completions(), nil,
		completionUC.WithClock(clock), completionUC.WithCache(cache))
	stats := &totalsHook{StatsRepository: store.Stats(), run: func() {
		_, err := completer.Complete(context.Background(), "b1", "bob")
		require.NoError(t, err)
	}}
	uc := New(stats, store.Users(), nil, WithClock(clock), WithCache(cache))

	during, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	require.Len(t, during, 1, "totals were loaded before the completion")

	after, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "bob", after[0].UserID)
	assert.Equal(t, int64(500), after[0].Points)

	cached, err := uc.Leaderboard(context.Background(), domain.Window7)
	require.NoError(t, err)
	assert.Equal(t, after, cached)
}

func TestRank(t *testing.T) {
	totals := []domain.PointsTotal{
		{UserID: "b", Points: 10, TotalTasks: 1},
		{UserID: "a", Points: 10, TotalTasks: 1},
		{UserID: "c", Points: 10, TotalTasks: 2},
		{UserID: "d", Points: 20, TotalTasks: 1},
	}
	Rank(totals)

	var order []string
	for _, total := range totals {
		order = append(order, total.UserID)
	}
	assert.Equal(t, []string{"d", "c", "a", "b"}, order)
}
