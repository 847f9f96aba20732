package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// TaskStatus is the scheduling state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Category is the life-category discriminator of a task. XP is tracked per category.
type Category string

const (
	CategoryHealth        Category = "health"
	CategoryFitness       Category = "fitness"
	CategoryCareer        Category = "career"
	CategoryFinance       Category = "finance"
	CategoryLearning      Category = "learning"
	CategoryRelationships Category = "relationships"
	CategoryHome          Category = "home"
	CategoryCreativity    Category = "creativity"
	CategoryMindfulness   Category = "mindfulness"
	CategoryPersonal      Category = "personal"
)

// Categories lists every supported life-category in display order.
var Categories = []Category{
	CategoryHealth,
	CategoryFitness,
	CategoryCareer,
	CategoryFinance,
	CategoryLearning,
	CategoryRelationships,
	CategoryHome,
	CategoryCreativity,
	CategoryMindfulness,
	CategoryPersonal,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Task represents a user-owned activity item. Details carries the category-specific
// payload so every category shares one store.
type Task struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	ParentID      string          `json:"parentId,omitempty"`
	Category      Category        `json:"category"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Status        TaskStatus      `json:"status"`
	Priority      int             `json:"priority"`
	Points        int             `json:"points"`
	Tags          []string        `json:"tags,omitempty"`
	Collaborators []string        `json:"collaborators,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	StartDate     *time.Time      `json:"startDate,omitempty"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusCompleted
}

// AccessibleBy reports whether userID owns the task or collaborates on it.
func (t *Task) AccessibleBy(userID string) bool {
	if t == nil || userID == "" {
		return false
	}
	return t.UserID == userID || slices.Contains(t.Collaborators, userID)
}

// CompletedWithin reports whether the task was completed inside [from, to].
func (t *Task) CompletedWithin(from, to time.Time) bool {
	if !t.IsCompleted() || t.CompletedAt == nil {
		return false
	}
	at := *t.CompletedAt
	return !at.Before(from) && !at.After(to)
}

// AnalyticsTags returns the distinct tags of the task, or UncategorizedTag when it has none.
func (t *Task) AnalyticsTags() []string {
	seen := make(map[string]struct{}, len(t.Tags))
	var out []string
	for _, tag := range t.Tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return []string{UncategorizedTag}
	}
	return out
}

// Clone returns a deep copy safe to hand out of a store.
func (t Task) Clone() Task {
	t.Tags = slices.Clone(t.Tags)
	t.Collaborators = slices.Clone(t.Collaborators)
	if t.Details != nil {
		t.Details = append(json.RawMessage(nil), t.Details...)
	}
	t.StartDate = cloneTime(t.StartDate)
	t.DueDate = cloneTime(t.DueDate)
	t.CompletedAt = cloneTime(t.CompletedAt)
	return t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
