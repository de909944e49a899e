package session

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session is the metadata of one conversation. The conversation state
// itself lives in the engine held by the manager.
type Session struct {
	ID             string    `json:"session_id"`
	Label          string    `json:"label,omitempty"`
	Status         Status    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}
