package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type cacheKey struct {
	generation int64
	window     domain.Window
}

type cachedView struct {
	entries []domain.LeaderboardEntry
	expires time.Time
}

// LeaderboardCache is the process-local counterpart of the Redis cache.
type LeaderboardCache struct {
	mu         sync.Mutex
	generation int64
	views      map[cacheKey]cachedView
	ttl        time.Duration
	now        func() time.Time
}

var _ repository.LeaderboardCache = (*LeaderboardCache)(nil)

// NewLeaderboardCache keeps views for ttl. A nil clock defaults to time.Now.
func NewLeaderboardCache(ttl time.Duration, now func() time.Time) *LeaderboardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &LeaderboardCache{
		views: make(map[cacheKey]cachedView),
		ttl:   ttl,
		now:   now,
	}
}

func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *LeaderboardCache) Get(ctx context.Context, generation int64, window domain.Window) ([]domain.LeaderboardEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	view, ok := c.views[cacheKey{generation, window}]
	if !ok || !c.now().Before(view.expires) {
		return nil, false, nil
	}
	return append([]domain.LeaderboardEntry(nil), view.entries...), true, nil
}

// Set drops views for generations that were already invalidated.
func (c *LeaderboardCache) Set(ctx context.Context, generation int64, window domain.Window, entries []domain.LeaderboardEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return nil
	}
	c.views[cacheKey{generation, window}] = cachedView{
		entries: append([]domain.LeaderboardEntry(nil), entries...),
		expires: c.now().Add(c.ttl),
	}
	return nil
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.views = make(map[cacheKey]cachedView)
	return nil
}
