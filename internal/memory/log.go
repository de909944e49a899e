package memory

import (
	"sync"
	"time"
)

// TurnLog is the append-only record of one conversation. Turns are
// never mutated after Append and their timestamps are non-decreasing.
// Safe for concurrent use, though the engine serializes writers.
type TurnLog struct {
	mu          sync.RWMutex
	turns       []Turn
	startedAt   time.Time
	totalTokens int
}

func NewTurnLog() *TurnLog {
	return &TurnLog{startedAt: time.Now().UTC()}
}

// Append records a turn stamped with the current time.
func (l *TurnLog) Append(role Role, text string) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	if n := len(l.turns); n > 0 && now.Before(l.turns[n-1].CreatedAt) {
		// Clock went backwards; keep the sequence non-decreasing.
		now = l.turns[n-1].CreatedAt
	}
	t := Turn{Role: role, Text: text, CreatedAt: now}
	l.turns = append(l.turns, t)
	return t
}

// Recent returns the last limit turns as messages in original order.
// limit <= 0 returns everything. An empty log yields an empty slice.
func (l *TurnLog) Recent(limit int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(l.turns) {
		start = len(l.turns) - limit
	}
	out := make([]Message, 0, len(l.turns)-start)
	for _, t := range l.turns[start:] {
		out = append(out, Message{Role: t.Role, Content: t.Text})
	}
	return out
}

// All returns a copy of every recorded turn.
func (l *TurnLog) All() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *TurnLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// CountByRole returns how many turns the given role produced.
func (l *TurnLog) CountByRole(role Role) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, t := range l.turns {
		if t.Role == role {
			n++
		}
	}
	return n
}

func (l *TurnLog) AddTokens(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalTokens += n
}

func (l *TurnLog) TotalTokens() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalTokens
}

func (l *TurnLog) StartedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.startedAt
}

// Clear drops all turns and resets the derived counters.
func (l *TurnLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
	l.totalTokens = 0
	l.startedAt = time.Now().UTC()
}

// Snapshot captures the log in its archival form.
func (l *TurnLog) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	msgs := make([]SnapshotMessage, 0, len(l.turns))
	for _, t := range l.turns {
		msgs = append(msgs, SnapshotMessage{Role: t.Role, Content: t.Text, Timestamp: t.CreatedAt})
	}
	return Snapshot{
		SessionStart: l.startedAt,
		SessionEnd:   time.Now().UTC(),
		TotalTokens:  l.totalTokens,
		MessageCount: len(msgs),
		Messages:     msgs,
	}
}

// RestoreSnapshot replaces the log contents with an archived session.
func (l *TurnLog) RestoreSnapshot(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = make([]Turn, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		l.turns = append(l.turns, Turn{Role: m.Role, Text: m.Content, CreatedAt: m.Timestamp})
	}
	l.totalTokens = snap.TotalTokens
	if !snap.SessionStart.IsZero() {
		l.startedAt = snap.SessionStart
	}
}
