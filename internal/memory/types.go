// Package memory holds the per-session conversation log and the
// snapshot archives used to persist it.
package memory

import (
	"context"
	"errors"
	"time"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single role-tagged utterance. Immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is the timestamp-stripped projection of a turn, shaped for
// backend prompt assembly.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SnapshotMessage is one archived turn.
type SnapshotMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the persisted form of a session. Round-tripping through
// an Archive must be lossless.
type Snapshot struct {
	SessionStart time.Time         `json:"session_start"`
	SessionEnd   time.Time         `json:"session_end"`
	TotalTokens  int               `json:"total_tokens"`
	MessageCount int               `json:"message_count"`
	Messages     []SnapshotMessage `json:"messages"`
}

var ErrSnapshotNotFound = errors.New("session snapshot not found")

// Archive persists and retrieves session snapshots.
type Archive interface {
	SaveSession(ctx context.Context, sessionID string, snap Snapshot) error
	LoadSession(ctx context.Context, sessionID string) (Snapshot, error)
	ListSessions(ctx context.Context) ([]string, error)
	Close() error
}
