package domain

import "time"

// CompletionEvent records one XP award. Exactly one event exists per completed task.
type CompletionEvent struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	UserID      string    `json:"userId"`
	ActorID     string    `json:"actorId"`
	Category    Category  `json:"category"`
	Points      int       `json:"points"`
	LevelBefore int       `json:"levelBefore"`
	LevelAfter  int       `json:"levelAfter"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// CompletionResult is returned to the caller of a successful completion.
type CompletionResult struct {
	Task        *Task            `json:"task"`
	Progress    CategoryProgress `json:"progress"`
	XPAwarded   int              `json:"xpAwarded"`
	LevelBefore int              `json:"levelBefore"`
	LeveledUp   bool             `json:"leveledUp"`
}
