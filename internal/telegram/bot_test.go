package telegram

import (
	"context"
	"strings"
	"testing"
	"time"

	"parley/internal/backend"
	"parley/internal/engine"
	"parley/internal/session"
)

func newTestBot() *Bot {
	sessions := session.NewManager(func() *engine.Engine {
		return engine.New(backend.NewMockGenerator(), nil)
	}, time.Minute)
	return &Bot{
		sessions: sessions,
		byChat:   make(map[int64]string),
	}
}

func TestEngineForReusesSession(t *testing.T) {
	b := newTestBot()
	a := b.engineFor(42)
	if a == nil {
		t.Fatalf("engineFor returned nil")
	}
	if b.engineFor(42) != a {
		t.Fatalf("same chat should keep its engine")
	}
	if b.engineFor(43) == a {
		t.Fatalf("different chats must not share an engine")
	}
}

func TestTopicCommand(t *testing.T) {
	b := newTestBot()
	reply := b.handleCommand(context.Background(), 1, "topic", "travel")
	if reply == "" {
		t.Fatalf("topic command should return a starter")
	}
	if strings.Contains(reply, "don't know that topic") {
		t.Fatalf("travel is a known topic, got %q", reply)
	}

	stats := b.engineFor(1).Stats()
	if stats.AssistantMessages != 1 {
		t.Fatalf("starter should be recorded as assistant turn: %+v", stats)
	}
}

func TestUnknownTopicCommand(t *testing.T) {
	b := newTestBot()
	reply := b.handleCommand(context.Background(), 1, "topic", "astrology")
	if !strings.Contains(reply, "don't know that topic") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestClearAndStatsCommands(t *testing.T) {
	b := newTestBot()
	eng := b.engineFor(7)
	if _, err := eng.Respond(context.Background(), "hello"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	stats := b.handleCommand(context.Background(), 7, "stats", "")
	if !strings.Contains(stats, "Messages: 2") {
		t.Fatalf("stats reply = %q", stats)
	}

	b.handleCommand(context.Background(), 7, "clear", "")
	if b.engineFor(7).Stats().TotalMessages != 0 {
		t.Fatalf("clear should wipe the conversation")
	}
}
