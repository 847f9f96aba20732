package repository

import (
	"context"

	"github.com/fastygo/lifequest/domain"
)

// LeaderboardCache holds recently computed leaderboards scoped to a generation.
// Invalidate starts a new generation, so a view computed under an older one is
// never served again even if it is stored after the invalidation. A miss is
// reported with ok=false.
type LeaderboardCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, generation int64, window domain.Window) (entries []domain.LeaderboardEntry, ok bool, err error)
	Set(ctx context.Context, generation int64, window domain.Window, entries []domain.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}
