package domain

import "time"

// XPPerLevel is the amount of XP separating two consecutive levels.
const XPPerLevel = 100

// LevelForXP maps cumulative XP to a level. Integer division only; negative XP counts as 0.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// CategoryProgress is a user's level state within one life-category.
type CategoryProgress struct {
	Category       Category  `json:"category"`
	Level          int       `json:"level"`
	XP             int64     `json:"xp"`
	TotalCompleted int       `json:"totalCompleted"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// NewCategoryProgress returns the zero state of a category: level 1, no XP.
func NewCategoryProgress(category Category) CategoryProgress {
	return CategoryProgress{Category: category, Level: LevelForXP(0)}
}

// Award adds points to the category, counts one completion and refreshes the level.
// The level never drops, even if stored state was inconsistent.
func (p *CategoryProgress) Award(points int, at time.Time) {
	if points > 0 {
		p.XP += int64(points)
	}
	p.TotalCompleted++
	if lvl := LevelForXP(p.XP); lvl > p.Level {
		p.Level = lvl
	}
	p.UpdatedAt = at
}

// UserProgress maps each life-category to the user's level state.
type UserProgress struct {
	UserID     string                        `json:"userId"`
	Categories map[Category]CategoryProgress `json:"categories"`
}

// Overall collapses all categories into a single snapshot.
func (p *UserProgress) Overall() ProgressSnapshot {
	var snap ProgressSnapshot
	if p != nil {
		for _, c := range p.Categories {
			snap.XP += c.XP
			snap.LifetimeCompleted += c.TotalCompleted
		}
	}
	snap.Level = LevelForXP(snap.XP)
	return snap
}

// ProgressSnapshot is the overall level/xp view of a user.
type ProgressSnapshot struct {
	Level             int   `json:"level"`
	XP                int64 `json:"xp"`
	LifetimeCompleted int   `json:"lifetimeCompleted"`
}
