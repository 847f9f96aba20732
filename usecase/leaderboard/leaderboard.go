package leaderboard

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/internal/metrics"
	"github.com/fastygo/lifequest/pkg/logger"
	"github.com/fastygo/lifequest/repository"
)

const DefaultTopN = 50

type UseCase struct {
	stats   repository.StatsRepository
	users   repository.UserRepository
	cache   repository.LeaderboardCache
	topN    int
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// WithCache serves repeated reads of a window from cache until the next completion.
func WithCache(cache repository.LeaderboardCache) Option {
	return func(uc *UseCase) { uc.cache = cache }
}

// WithTopN limits the ranking length. Non-positive values keep DefaultTopN.
func WithTopN(n int) Option {
	return func(uc *UseCase) {
		if n > 0 {
			uc.topN = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCase) { uc.metrics = m }
}

func New(stats repository.StatsRepository, users repository.UserRepository, log *zap.Logger, opts ...Option) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	uc := &UseCase{
		stats:  stats,
		users:  users,
		topN:   DefaultTopN,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Leaderboard ranks users by the points of tasks they completed inside window.
// Ties break on completed task count, then on user id.
func (uc *UseCase) Leaderboard(ctx context.Context, window domain.Window) (entries []domain.LeaderboardEntry, err error) {
	window, err = domain.ParseWindow(string(window))
	if err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() { uc.metrics.ObserveAggregation("leaderboard", started, err) }()

	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("window", string(window)))

	generation, useCache := uc.generation(ctx, log)
	if useCache {
		if cached, ok := uc.cached(ctx, log, generation, window); ok {
			return cached, nil
		}
	}

	totals, err := uc.stats.CompletedTotals(ctx, window.Since(uc.now()))
	if err != nil {
		log.Error("leaderboard totals failed", zap.Error(err))
		return nil, domain.StoreError("leaderboard totals", err)
	}

	Rank(totals)
	if len(totals) > uc.topN {
		totals = totals[:uc.topN]
	}

	ids := make([]string, len(totals))
	for i, total := range totals {
		ids[i] = total.UserID
	}
	profiles := map[string]domain.Profile{}
	if len(ids) > 0 {
		profiles, err = uc.users.Profiles(ctx, ids)
		if err != nil {
			log.Error("leaderboard profiles failed", zap.Error(err))
			return nil, domain.StoreError("leaderboard profiles", err)
		}
	}

	entries = make([]domain.LeaderboardEntry, 0, len(totals))
	for i, total := range totals {
		entry := domain.LeaderboardEntry{
			Rank:       i + 1,
			UserID:     total.UserID,
			Points:     total.Points,
			TotalTasks: total.TotalTasks,
			Window:     window,
		}
		if profile, ok := profiles[total.UserID]; ok {
			entry.Name = profile.Name
			entry.Email = profile.Email
			entry.Avatar = profile.Avatar
			entry.Level = profile.Progress.Level
			entry.XP = profile.Progress.XP
		}
		entries = append(entries, entry)
	}

	if useCache {
		if err := uc.cache.Set(ctx, generation, window, entries); err != nil {
			log.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

// generation is read before the totals, so a completion committed while they load
// moves the cache past the view computed here.
func (uc *UseCase) generation(ctx context.Context, log *zap.Logger) (int64, bool) {
	if uc.cache == nil {
		return 0, false
	}
	generation, err := uc.cache.Generation(ctx)
	if err != nil {
		log.Warn("leaderboard cache generation failed", zap.Error(err))
		return 0, false
	}
	return generation, true
}

func (uc *UseCase) cached(ctx context.Context, log *zap.Logger, generation int64, window domain.Window) ([]domain.LeaderboardEntry, bool) {
	entries, ok, err := uc.cache.Get(ctx, generation, window)
	if err != nil {
		log.Warn("leaderboard cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, true
}

// Rank sorts totals in leaderboard order: points desc, task count desc, user id asc.
func Rank(totals []domain.PointsTotal) {
	sort.Slice(totals, func(i, j int) bool {
		a, b := totals[i], totals[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.TotalTasks != b.TotalTasks {
			return a.TotalTasks > b.TotalTasks
		}
		return a.UserID < b.UserID
	})
}
