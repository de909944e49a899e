package memory

import (
	"testing"
	"time"
)

func TestTurnLogAppendAndRecent(t *testing.T) {
	l := NewTurnLog()
	l.Append(RoleUser, "hello")
	l.Append(RoleAssistant, "hi there")
	l.Append(RoleUser, "how are you?")

	all := l.Recent(0)
	if len(all) != 3 {
		t.Fatalf("Recent(0) len = %d, want 3", len(all))
	}
	if all[0].Role != RoleUser || all[0].Content != "hello" {
		t.Fatalf("unexpected first message: %+v", all[0])
	}

	last2 := l.Recent(2)
	if len(last2) != 2 {
		t.Fatalf("Recent(2) len = %d, want 2", len(last2))
	}
	if last2[0].Content != "hi there" || last2[1].Content != "how are you?" {
		t.Fatalf("Recent(2) order wrong: %+v", last2)
	}

	if got := l.Recent(10); len(got) != 3 {
		t.Fatalf("Recent(10) len = %d, want 3", len(got))
	}
}

func TestTurnLogEmptyRecent(t *testing.T) {
	l := NewTurnLog()
	if got := l.Recent(5); len(got) != 0 {
		t.Fatalf("Recent() on empty log = %v, want empty", got)
	}
}

func TestTurnLogTimestampsNonDecreasing(t *testing.T) {
	l := NewTurnLog()
	for i := 0; i < 50; i++ {
		l.Append(RoleUser, "msg")
	}
	turns := l.All()
	for i := 1; i < len(turns); i++ {
		if turns[i].CreatedAt.Before(turns[i-1].CreatedAt) {
			t.Fatalf("timestamp at %d decreased: %v < %v", i, turns[i].CreatedAt, turns[i-1].CreatedAt)
		}
	}
}

func TestTurnLogClearResetsCounters(t *testing.T) {
	l := NewTurnLog()
	l.Append(RoleUser, "a")
	l.Append(RoleAssistant, "b")
	l.AddTokens(12)

	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", l.Len())
	}
	if l.TotalTokens() != 0 {
		t.Fatalf("TotalTokens() after Clear = %d, want 0", l.TotalTokens())
	}
}

func TestTurnLogSnapshotRoundTrip(t *testing.T) {
	l := NewTurnLog()
	l.Append(RoleUser, "hello")
	l.Append(RoleAssistant, "hi, what brings you here?")
	l.Append(RoleUser, "practicing conversation")
	l.Append(RoleAssistant, "great choice")
	l.AddTokens(37)

	snap := l.Snapshot()
	if snap.MessageCount != 4 || snap.TotalTokens != 37 {
		t.Fatalf("snapshot counts = (%d, %d), want (4, 37)", snap.MessageCount, snap.TotalTokens)
	}
	if snap.SessionEnd.Before(snap.SessionStart) {
		t.Fatalf("session_end %v before session_start %v", snap.SessionEnd, snap.SessionStart)
	}

	restored := NewTurnLog()
	restored.RestoreSnapshot(snap)
	if restored.Len() != 4 || restored.TotalTokens() != 37 {
		t.Fatalf("restored counts = (%d, %d), want (4, 37)", restored.Len(), restored.TotalTokens())
	}
	orig, back := l.All(), restored.All()
	for i := range orig {
		if orig[i].Role != back[i].Role || orig[i].Text != back[i].Text || !orig[i].CreatedAt.Equal(back[i].CreatedAt) {
			t.Fatalf("turn %d mismatch: %+v vs %+v", i, orig[i], back[i])
		}
	}
}

func TestTurnLogCountByRole(t *testing.T) {
	l := NewTurnLog()
	l.Append(RoleSystem, "prompt")
	l.Append(RoleUser, "a")
	l.Append(RoleAssistant, "b")
	l.Append(RoleUser, "c")

	if got := l.CountByRole(RoleUser); got != 2 {
		t.Fatalf("CountByRole(user) = %d, want 2", got)
	}
	if got := l.CountByRole(RoleAssistant); got != 1 {
		t.Fatalf("CountByRole(assistant) = %d, want 1", got)
	}
}

func TestTurnLogStartedAt(t *testing.T) {
	l := NewTurnLog()
	if time.Since(l.StartedAt()) > time.Minute {
		t.Fatalf("StartedAt() = %v, not recent", l.StartedAt())
	}
}
