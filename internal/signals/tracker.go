package signals

import (
	"sync"
	"time"
)

// Tracker aggregates the running signals for one session. The engine
// serializes turns, but reads can come from HTTP handlers, so state is
// guarded anyway.
type Tracker struct {
	mu        sync.RWMutex
	interests []string
	seen      map[string]struct{}
	sentiment Sentiment
	questions QuestionTracker
}

func NewTracker() *Tracker {
	return &Tracker{
		seen:      make(map[string]struct{}),
		sentiment: SentimentNeutral,
	}
}

// ObserveUser updates interests, sentiment and length statistics from
// a user turn.
func (t *Tracker) ObserveUser(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, interest := range ExtractInterests(text) {
		if _, ok := t.seen[interest]; ok {
			continue
		}
		t.seen[interest] = struct{}{}
		t.interests = append(t.interests, interest)
	}
	t.sentiment = DetectSentiment(text)
}

// ObserveAssistant records any questions the assistant asked.
func (t *Tracker) ObserveAssistant(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.questions.Observe(text, time.Now().UTC())
}

// Interests returns the tags in first-seen order. The set only grows
// until Clear.
func (t *Tracker) Interests() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.interests))
	copy(out, t.interests)
	return out
}

func (t *Tracker) Sentiment() Sentiment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sentiment
}

// IsRepetitiveQuestion checks a candidate against the tracked window.
func (t *Tracker) IsRepetitiveQuestion(candidate string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.questions.IsRepetitive(candidate)
}

// TrackedQuestions returns the recently-asked window, oldest first.
func (t *Tracker) TrackedQuestions() []TrackedQuestion {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.questions.Recent()
}

// Clear resets every signal to its session-start state.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interests = nil
	t.seen = make(map[string]struct{})
	t.sentiment = SentimentNeutral
	t.questions.Clear()
}
