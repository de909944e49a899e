// Package engine implements the conversation turn pipeline: it records
// turns, personalizes backend requests from session signals, gates
// candidate responses for repetition and degrades to canned replies
// when the backend fails.
package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"parley/internal/backend"
	"parley/internal/memory"
	"parley/internal/observability"
	"parley/internal/policy"
	"parley/internal/prompt"
	"parley/internal/signals"
)

const (
	// historyWindow is how many turns are sent to the backend.
	historyWindow = 15
	// maxRegenerations bounds the retry budget per turn. The
	// regenerated candidate is accepted without a second gate pass.
	maxRegenerations = 1
)

var ErrEmptyInput = errors.New("empty user input")

// Engine drives one conversation. Respond serializes itself so at most
// one turn is in flight per session.
type Engine struct {
	mu        sync.Mutex
	log       *memory.TurnLog
	tracker   *signals.Tracker
	generator backend.Generator
	fallbacks *fallbackPicker
	metrics   *observability.Metrics
}

func New(generator backend.Generator, metrics *observability.Metrics) *Engine {
	return &Engine{
		log:       memory.NewTurnLog(),
		tracker:   signals.NewTracker(),
		generator: generator,
		fallbacks: newFallbackPicker(time.Now().UnixNano()),
		metrics:   metrics,
	}
}

// Respond records the user turn, asks the backend for a reply, gates
// it, and returns the accepted (or canned) assistant text. The reply
// is appended to the log before returning. Backend failures never
// surface as errors.
func (e *Engine) Respond(ctx context.Context, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", ErrEmptyInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	turnStart := time.Now()
	e.log.Append(memory.RoleUser, userText)
	e.tracker.ObserveUser(userText)
	log.Printf("user turn recorded: %s", policy.Preview(userText, 50))

	req := backend.Request{
		Context:  prompt.BuildContext(e.tracker, e.log.Recent(historyWindow)),
		Guidance: prompt.BuildGuidance(e.tracker, e.log),
		Turns:    e.log.Recent(historyWindow),
	}

	text, outcome := e.generateChecked(ctx, req)
	e.commitAssistant(text)

	e.metrics.ObserveTurnOutcome(outcome)
	e.metrics.ObserveStage("turn_total", time.Since(turnStart))
	return text, nil
}

// generateChecked runs the candidate through the acceptance gate and
// spends the single regeneration attempt when it is rejected.
func (e *Engine) generateChecked(ctx context.Context, req backend.Request) (text, outcome string) {
	resp, err := e.callBackend(ctx, req)
	if err != nil {
		log.Printf("generation failed, using fallback: %v", err)
		return e.fallbacks.Pick(e.tracker), "fallback"
	}

	gateStart := time.Now()
	rejected := e.isRepetitive(resp.Text)
	e.metrics.ObserveStage("gate_check", time.Since(gateStart))
	if !rejected {
		e.log.AddTokens(resp.TotalTokens)
		return resp.Text, "accepted"
	}

	for attempt := 0; attempt < maxRegenerations; attempt++ {
		req.Diversify = true
		retry, err := e.callBackend(ctx, req)
		if err != nil {
			log.Printf("regeneration failed, using fallback: %v", err)
			return e.fallbacks.Pick(e.tracker), "fallback"
		}
		e.log.AddTokens(retry.TotalTokens)
		resp = retry
	}
	return resp.Text, "regenerated"
}

func (e *Engine) callBackend(ctx context.Context, req backend.Request) (backend.Response, error) {
	start := time.Now()
	resp, err := e.generator.Generate(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.ObserveBackendRequest(e.generator.Name(), status, time.Since(start))
	e.metrics.ObserveStage("backend_call", time.Since(start))
	return resp, err
}

// commitAssistant appends the chosen reply and feeds its questions to
// the repetition tracker.
func (e *Engine) commitAssistant(text string) {
	e.log.Append(memory.RoleAssistant, text)
	e.tracker.ObserveAssistant(text)
}

// Prime appends an assistant-authored opener (e.g. a topic starter)
// without consulting the backend.
func (e *Engine) Prime(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commitAssistant(text)
	e.metrics.ObserveTurnOutcome("starter")
}

// ContextSummary is the structured view of the session signals.
type ContextSummary struct {
	Interests        []string          `json:"interests"`
	Sentiment        signals.Sentiment `json:"sentiment"`
	RecentTopics     []string          `json:"recent_topics"`
	TrackedQuestions int               `json:"tracked_questions"`
	ContextLine      string            `json:"context_line"`
}

func (e *Engine) ContextSummary() ContextSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	recent := e.log.Recent(historyWindow)
	return ContextSummary{
		Interests:        e.tracker.Interests(),
		Sentiment:        e.tracker.Sentiment(),
		RecentTopics:     prompt.RecentTopics(recent),
		TrackedQuestions: len(e.tracker.TrackedQuestions()),
		ContextLine:      prompt.BuildContext(e.tracker, recent),
	}
}

// Stats reports conversation counters for the presentation layer.
type Stats struct {
	TotalMessages     int       `json:"total_messages"`
	UserMessages      int       `json:"user_messages"`
	AssistantMessages int       `json:"assistant_messages"`
	TotalTokens       int       `json:"total_tokens"`
	SessionStart      time.Time `json:"session_start"`
	DurationSeconds   float64   `json:"session_duration_seconds"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		TotalMessages:     e.log.Len(),
		UserMessages:      e.log.CountByRole(memory.RoleUser),
		AssistantMessages: e.log.CountByRole(memory.RoleAssistant),
		TotalTokens:       e.log.TotalTokens(),
		SessionStart:      e.log.StartedAt(),
		DurationSeconds:   time.Since(e.log.StartedAt()).Seconds(),
	}
}

// Clear wipes the conversation and all derived signals.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.Clear()
	e.tracker.Clear()
}

// SaveTo archives the current session snapshot.
func (e *Engine) SaveTo(ctx context.Context, archive memory.Archive, sessionID string) error {
	e.mu.Lock()
	snap := e.log.Snapshot()
	e.mu.Unlock()
	return archive.SaveSession(ctx, sessionID, snap)
}

// LoadFrom restores an archived session and replays its turns through
// the signal extractors so interests, sentiment and the question
// window match the restored history.
func (e *Engine) LoadFrom(ctx context.Context, archive memory.Archive, sessionID string) error {
	snap, err := archive.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.RestoreSnapshot(snap)
	e.tracker.Clear()
	for _, t := range e.log.All() {
		switch t.Role {
		case memory.RoleUser:
			e.tracker.ObserveUser(t.Text)
		case memory.RoleAssistant:
			e.tracker.ObserveAssistant(t.Text)
		}
	}
	return nil
}

// Recent exposes the conversation window for presentation layers.
func (e *Engine) Recent(limit int) []memory.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.Recent(limit)
}
