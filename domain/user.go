package domain

import "time"

// User represents an authenticated identity in the platform.
type User struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email,omitempty"`
	Avatar    string            `json:"avatar,omitempty"`
	Role      string            `json:"role"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Profile is the public subset of a user joined into leaderboards.
type Profile struct {
	UserID   string
	Name     string
	Email    string
	Avatar   string
	Progress ProgressSnapshot
}

// ProfileView is a user together with their progress.
type ProfileView struct {
	User       *User              `json:"user"`
	Overall    ProgressSnapshot   `json:"overall"`
	Categories []CategoryProgress `json:"categories"`
}
