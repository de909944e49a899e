package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"parley/internal/memory"
)

// MockGenerator produces deterministic replies for tests and for
// running without any provider configured.
type MockGenerator struct {
	mu    sync.Mutex
	calls int
}

var mockQuestions = []string{
	"What made you smile today?",
	"Which place would you visit next if you could?",
	"What's a small thing you're proud of this week?",
	"Who taught you something interesting recently?",
	"What's a habit you'd like to pick up?",
}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Name() string { return "mock" }

func (g *MockGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	g.mu.Lock()
	n := g.calls
	g.calls++
	g.mu.Unlock()

	last := lastUserLine(req.Turns)
	question := mockQuestions[n%len(mockQuestions)]
	text := question
	if last != "" {
		text = fmt.Sprintf("I hear you about %q. %s", trimWords(last, 6), question)
	}
	if req.Diversify {
		text = "Let me take this somewhere new. " + question
	}
	return Response{Text: text, TotalTokens: len(strings.Fields(text))}, nil
}

func lastUserLine(turns []memory.Message) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == memory.RoleUser {
			return strings.TrimSpace(turns[i].Content)
		}
	}
	return ""
}

func trimWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return s
	}
	return strings.Join(fields[:n], " ") + "..."
}
