package domain

import (
	"strings"
	"time"
)

// UncategorizedTag groups tasks that carry no tag.
const UncategorizedTag = "uncategorized"

// Period selects the range and granularity of an analytics overview.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates a raw period value. An empty value means PeriodMonth.
func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodYear:
		return PeriodYear, nil
	}
	return "", ErrInvalidPeriod
}

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// Buckets returns the start of every interval in the period ending at now, oldest first.
// Week and month bucket by UTC day, year by UTC month.
func (p Period) Buckets(now time.Time) []time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var starts []time.Time
	switch p {
	case PeriodYear:
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		for i := 11; i >= 0; i-- {
			starts = append(starts, month.AddDate(0, -i, 0))
		}
	default:
		days := 30
		if p == PeriodWeek {
			days = 7
		}
		for i := days - 1; i >= 0; i-- {
			starts = append(starts, today.AddDate(0, 0, -i))
		}
	}
	return starts
}

// BucketKey renders the canonical key of the bucket containing t.
func (p Period) BucketKey(t time.Time) string {
	if p == PeriodYear {
		return t.UTC().Format(monthKeyLayout)
	}
	return t.UTC().Format(dayKeyLayout)
}

// AnalyticsBucket is one interval of the time series.
type AnalyticsBucket struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Created   int    `json:"created"`
	XPEarned  int64  `json:"xpEarned"`
}

// CategoryBreakdown aggregates tasks sharing a tag.
type CategoryBreakdown struct {
	Category       string `json:"category"`
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Points         int64  `json:"points"`
	CompletionRate int    `json:"completionRate"`
}

// SkillScore ranks category strength by completion rate.
type SkillScore struct {
	Category       string `json:"category"`
	Score          int    `json:"score"`
	TasksCompleted int    `json:"tasksCompleted"`
}

// AnalyticsSummary holds period totals plus the user's current progress.
type AnalyticsSummary struct {
	TotalTasks           int     `json:"totalTasks"`
	TotalCompleted       int     `json:"totalCompleted"`
	TotalXPEarned        int64   `json:"totalXPEarned"`
	CompletionRate       int     `json:"completionRate"`
	AveragePointsPerTask float64 `json:"averagePointsPerTask"`
	Level                int     `json:"level"`
	XP                   int64   `json:"xp"`
	LifetimeCompleted    int     `json:"lifetimeCompleted"`
}

// AnalyticsOverview is the computed, never persisted, analytics view.
type AnalyticsOverview struct {
	Summary           AnalyticsSummary    `json:"summary"`
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
	TimeSeriesData    []AnalyticsBucket   `json:"timeSeriesData"`
	SkillScores       []SkillScore        `json:"skillScores"`
	Period            Period              `json:"period"`
}
