package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Window is the trailing span over which leaderboard points are summed.
type Window string

const (
	Window7   Window = "7"
	Window30  Window = "30"
	WindowAll Window = "all"
)

// ParseWindow validates a raw window value. An empty value means Window7.
func ParseWindow(raw string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "7":
		return Window7, nil
	case "30":
		return Window30, nil
	case "all":
		return WindowAll, nil
	}
	return "", ErrInvalidWindow
}

// Days returns the window length, or 0 for an unbounded window.
func (w Window) Days() int {
	switch w {
	case Window7:
		return 7
	case Window30:
		return 30
	}
	return 0
}

// Since returns the start of the window relative to now, or nil when unbounded.
func (w Window) Since(now time.Time) *time.Time {
	days := w.Days()
	if days == 0 {
		return nil
	}
	start := now.AddDate(0, 0, -days)
	return &start
}

// MarshalJSON renders bounded windows as numbers and the unbounded one as "all".
func (w Window) MarshalJSON() ([]byte, error) {
	if days := w.Days(); days > 0 {
		return json.Marshal(days)
	}
	return json.Marshal(string(w))
}

// UnmarshalJSON accepts 7, 30, "7", "30" or "all".
func (w *Window) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseWindow(raw)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// PointsTotal is the grouped sum of completed task points for one user.
type PointsTotal struct {
	UserID     string
	Points     int64
	TotalTasks int64
}

// LeaderboardEntry is one ranked row. It is computed per request and never stored.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar,omitempty"`
	Level      int    `json:"level,omitempty"`
	XP         int64  `json:"xp,omitempty"`
	Points     int64  `json:"points"`
	TotalTasks int64  `json:"totalTasks"`
	Window     Window `json:"window"`
}
