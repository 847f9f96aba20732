package transport

import (
	"encoding/json"
	"time"
)

type ProfileUpdateRequest struct {
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Avatar string            `json:"avatar"`
	Meta   map[string]string `json:"metadata"`
}

// TaskRequest is the body of task create and update calls. Points are only read on
// create; status "completed" is rejected in favour of the complete endpoint.
type TaskRequest struct {
	ID            string          `json:"id"`
	ParentID      string          `json:"parentId"`
	Category      string          `json:"category"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Status        string          `json:"status"`
	Priority      int             `json:"priority"`
	Points        int             `json:"points"`
	Tags          []string        `json:"tags"`
	Collaborators []string        `json:"collaborators"`
	Details       json.RawMessage `json:"details"`
	StartDate     *time.Time      `json:"startDate"`
	DueDate       *time.Time      `json:"dueDate"`
}
