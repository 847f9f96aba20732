package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/internal/metrics"
	"github.com/fastygo/lifequest/pkg/logger"
	"github.com/fastygo/lifequest/repository"
)

// MaxSkillScores caps the skill list of an overview.
const MaxSkillScores = 8

type UseCase struct {
	stats    repository.StatsRepository
	progress repository.ProgressRepository
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCase) { uc.metrics = m }
}

func New(stats repository.StatsRepository, progress repository.ProgressRepository, log *zap.Logger, opts ...Option) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	uc := &UseCase{
		stats:    stats,
		progress: progress,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Overview builds the analytics view of the tasks userID created during period.
func (uc *UseCase) Overview(ctx context.Context, userID string, period domain.Period) (overview *domain.AnalyticsOverview, err error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	period, err = domain.ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() { uc.metrics.ObserveAggregation("analytics", started, err) }()

	now := uc.now().UTC()
	buckets := period.Buckets(now)
	from := buckets[0]

	var (
		tasks    []domain.Task
		progress *domain.UserProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = uc.stats.CreatedBetween(gctx, userID, from, now)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = uc.progress.GetByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.WithRequestID(ctx, uc.logger).Error("analytics load failed",
			zap.String("user_id", userID), zap.String("period", string(period)), zap.Error(err))
		return nil, domain.StoreError("analytics overview", err)
	}

	result := Build(period, now, tasks, progress.Overall())
	return &result, nil
}

type tagStats struct {
	total     int
	completed int
	points    int64
}

// Build computes an overview from the tasks created inside the period ending at now.
// It does no I/O.
func Build(period domain.Period, now time.Time, tasks []domain.Task, snapshot domain.ProgressSnapshot) domain.AnalyticsOverview {
	now = now.UTC()
	starts := period.Buckets(now)
	from := starts[0]

	series := make([]domain.AnalyticsBucket, len(starts))
	index := make(map[string]int, len(starts))
	for i, start := range starts {
		key := period.BucketKey(start)
		series[i] = domain.AnalyticsBucket{Date: key}
		index[key] = i
	}

	var (
		summary domain.AnalyticsSummary
		byTag   = make(map[string]*tagStats)
	)
	for i := range tasks {
		task := &tasks[i]
		created, ok := index[period.BucketKey(task.CreatedAt)]
		if !ok || task.CreatedAt.Before(from) || task.CreatedAt.After(now) {
			continue
		}
		series[created].Created++
		summary.TotalTasks++

		done := false
		if task.CompletedWithin(from, now) {
			if slot, ok := index[period.BucketKey(*task.CompletedAt)]; ok {
				done = true
				series[slot].Completed++
				series[slot].XPEarned += int64(task.Points)
				summary.TotalCompleted++
				summary.TotalXPEarned += int64(task.Points)
			}
		}

		for _, tag := range task.AnalyticsTags() {
			stats, ok := byTag[tag]
			if !ok {
				stats = &tagStats{}
				byTag[tag] = stats
			}
			stats.total++
			if done {
				stats.completed++
				stats.points += int64(task.Points)
			}
		}
	}

	breakdown := make([]domain.CategoryBreakdown, 0, len(byTag))
	for tag, stats := range byTag {
		breakdown = append(breakdown, domain.CategoryBreakdown{
			Category:       tag,
			Total:          stats.total,
			Completed:      stats.completed,
			Points:         stats.points,
			CompletionRate: percent(stats.completed, stats.total),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Total != breakdown[j].Total {
			return breakdown[i].Total > breakdown[j].Total
		}
		return breakdown[i].Category < breakdown[j].Category
	})

	skills := make([]domain.SkillScore, 0, len(breakdown))
	for _, b := range breakdown {
		skills = append(skills, domain.SkillScore{
			Category:       b.Category,
			Score:          b.CompletionRate,
			TasksCompleted: b.Completed,
		})
	}
	sort.Slice(skills, func(i, j int) bool {
		if skills[i].TasksCompleted != skills[j].TasksCompleted {
			return skills[i].TasksCompleted > skills[j].TasksCompleted
		}
		return skills[i].Category < skills[j].Category
	})
	if len(skills) > MaxSkillScores {
		skills = skills[:MaxSkillScores]
	}

	summary.CompletionRate = percent(summary.TotalCompleted, summary.TotalTasks)
	if summary.TotalCompleted > 0 {
		avg := float64(summary.TotalXPEarned) / float64(summary.TotalCompleted)
		summary.AveragePointsPerTask = math.Round(avg*10) / 10
	}
	summary.Level = snapshot.Level
	summary.XP = snapshot.XP
	summary.LifetimeCompleted = snapshot.LifetimeCompleted

	return domain.AnalyticsOverview{
		Summary:           summary,
		CategoryBreakdown: breakdown,
		TimeSeriesData:    series,
		SkillScores:       skills,
		Period:            period,
	}
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
