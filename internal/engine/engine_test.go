package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"parley/internal/backend"
	"parley/internal/memory"
)

// scriptedGenerator replays canned responses and records requests.
type scriptedGenerator struct {
	replies  []string
	err      error
	calls    int
	requests []backend.Request
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(_ context.Context, req backend.Request) (backend.Response, error) {
	g.requests = append(g.requests, req)
	g.calls++
	if g.err != nil {
		return backend.Response{}, g.err
	}
	idx := g.calls - 1
	if idx >= len(g.replies) {
		idx = len(g.replies) - 1
	}
	return backend.Response{Text: g.replies[idx], TotalTokens: 10}, nil
}

func TestRespondAcceptsFreshCandidate(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"Nice to meet you! What hobbies fill your weekends?"}}
	e := New(gen, nil)

	reply, err := e.Respond(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if reply != gen.replies[0] {
		t.Fatalf("reply = %q, want %q", reply, gen.replies[0])
	}
	if gen.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", gen.calls)
	}

	stats := e.Stats()
	if stats.TotalMessages != 2 || stats.UserMessages != 1 || stats.AssistantMessages != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TotalTokens != 10 {
		t.Fatalf("TotalTokens = %d, want 10", stats.TotalTokens)
	}
}

func TestRespondEmptyInput(t *testing.T) {
	e := New(&scriptedGenerator{replies: []string{"hi"}}, nil)
	if _, err := e.Respond(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Respond() error = %v, want ErrEmptyInput", err)
	}
}

func TestRespondSimilarCandidateRegeneratesOnce(t *testing.T) {
	// Previous assistant turn and the first candidate share 9 of 11
	// tokens (Jaccard ~0.82), above the 0.6 gate threshold.
	prev := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	candidate := "alpha beta gamma delta epsilon zeta eta theta iota lambda"
	fresh := "something entirely different and new this time around"

	gen := &scriptedGenerator{replies: []string{candidate, fresh}}
	e := New(gen, nil)
	e.Prime(prev)

	reply, err := e.Respond(context.Background(), "tell me more")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("backend calls = %d, want exactly 2 (one regeneration)", gen.calls)
	}
	if !gen.requests[1].Diversify {
		t.Fatalf("regeneration request should set Diversify")
	}
	if gen.requests[0].Diversify {
		t.Fatalf("first request should not set Diversify")
	}
	if reply != fresh {
		t.Fatalf("reply = %q, want regenerated %q", reply, fresh)
	}
}

func TestRespondRegeneratedCandidateAcceptedUnconditionally(t *testing.T) {
	prev := "one two three four five six seven eight nine ten"
	similar := "one two three four five six seven eight nine eleven"

	// Both candidates are similar to prev; the second must still be
	// accepted because the retry budget is spent.
	gen := &scriptedGenerator{replies: []string{similar, similar}}
	e := New(gen, nil)
	e.Prime(prev)

	reply, err := e.Respond(context.Background(), "go on")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("backend calls = %d, want 2", gen.calls)
	}
	if reply != similar {
		t.Fatalf("reply = %q, want %q", reply, similar)
	}
}

func TestRespondRepeatedQuestionRegenerates(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		"Nice. What did you do today?",
		"Let's switch gears completely here instead.",
	}}
	e := New(gen, nil)
	e.Prime("What did you do today?")

	reply, err := e.Respond(context.Background(), "hi again")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("backend calls = %d, want 2", gen.calls)
	}
	if reply != gen.replies[1] {
		t.Fatalf("reply = %q, want %q", reply, gen.replies[1])
	}
}

func TestRespondBackendErrorFallsBack(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("boom")}
	e := New(gen, nil)

	reply, err := e.Respond(context.Background(), "I love cooking pasta")
	if err != nil {
		t.Fatalf("Respond() error = %v, fallback must not surface errors", err)
	}
	// Interest-specific fallback wins when cooking is tracked.
	if !strings.Contains(reply, "cooking") {
		t.Fatalf("reply = %q, want cooking fallback", reply)
	}

	stats := e.Stats()
	if stats.AssistantMessages != 1 {
		t.Fatalf("fallback reply should be appended: %+v", stats)
	}
}

func TestRespondRegenerationErrorFallsBack(t *testing.T) {
	prev := "red orange yellow green blue indigo violet pink brown black"
	similar := "red orange yellow green blue indigo violet pink brown white"

	gen := &scriptedGenerator{replies: []string{similar}}
	e := New(gen, nil)
	e.Prime(prev)

	// Fail the second call only.
	failAfter := &failAfterN{inner: gen, failFrom: 2}
	e.generator = failAfter

	reply, err := e.Respond(context.Background(), "what a terrible awful day")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	found := false
	for _, line := range negativeFallbacks {
		if reply == line {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("reply = %q, want a negative-sentiment fallback", reply)
	}
}

type failAfterN struct {
	inner    *scriptedGenerator
	failFrom int
	calls    int
}

func (f *failAfterN) Name() string { return "scripted" }

func (f *failAfterN) Generate(ctx context.Context, req backend.Request) (backend.Response, error) {
	f.calls++
	if f.calls >= f.failFrom {
		return backend.Response{}, errors.New("backend down")
	}
	return f.inner.Generate(ctx, req)
}

func TestClearResetsSessionState(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		"Cooking sounds great, any favorite dishes lately by chance?",
		"Travel stories are always welcome around here, truly.",
	}}
	e := New(gen, nil)

	if _, err := e.Respond(context.Background(), "I love cooking"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := e.Respond(context.Background(), "and travel too"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if e.Stats().TotalMessages != 4 {
		t.Fatalf("TotalMessages = %d, want 4", e.Stats().TotalMessages)
	}

	e.Clear()

	stats := e.Stats()
	if stats.TotalMessages != 0 || stats.TotalTokens != 0 {
		t.Fatalf("stats after Clear = %+v", stats)
	}
	summary := e.ContextSummary()
	if len(summary.Interests) != 0 || summary.Sentiment != "neutral" || summary.TrackedQuestions != 0 {
		t.Fatalf("summary after Clear = %+v", summary)
	}
}

func TestContextSummarySignals(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"That sounds tasty! What recipe are you most proud of?"}}
	e := New(gen, nil)

	if _, err := e.Respond(context.Background(), "I love cooking and travel"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	summary := e.ContextSummary()
	if len(summary.Interests) != 2 || summary.Interests[0] != "cooking" || summary.Interests[1] != "travel" {
		t.Fatalf("Interests = %v", summary.Interests)
	}
	if summary.Sentiment != "positive" {
		t.Fatalf("Sentiment = %q, want positive", summary.Sentiment)
	}
	if summary.TrackedQuestions != 1 {
		t.Fatalf("TrackedQuestions = %d, want 1", summary.TrackedQuestions)
	}
	if summary.ContextLine == "" {
		t.Fatalf("ContextLine should not be empty")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	archive, err := memory.NewFileArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileArchive() error = %v", err)
	}

	gen := &scriptedGenerator{replies: []string{
		"Cooking is wonderful! Which dish should I try first?",
		"A second reply with completely fresh different wording here.",
	}}
	e := New(gen, nil)
	ctx := context.Background()

	if _, err := e.Respond(ctx, "I love cooking"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := e.Respond(ctx, "mostly pasta dishes honestly"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if err := e.SaveTo(ctx, archive, "sess-1"); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	restored := New(&scriptedGenerator{replies: []string{"x"}}, nil)
	if err := restored.LoadFrom(ctx, archive, "sess-1"); err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	a, b := e.Stats(), restored.Stats()
	if a.TotalMessages != b.TotalMessages || a.TotalTokens != b.TotalTokens {
		t.Fatalf("restored stats mismatch: %+v vs %+v", a, b)
	}
	// Signals are replayed from the restored turns.
	if got := restored.ContextSummary().Interests; len(got) != 1 || got[0] != "cooking" {
		t.Fatalf("restored interests = %v, want [cooking]", got)
	}
	if restored.ContextSummary().TrackedQuestions != 1 {
		t.Fatalf("restored question window = %d, want 1", restored.ContextSummary().TrackedQuestions)
	}
}
