package engine

import (
	"math/rand"
	"sync"

	"parley/internal/signals"
)

// Canned responses used when the backend fails. Selection priority:
// interest-specific line, then sentiment pool, then generic pool.
var interestFallbacks = []struct {
	interest string
	line     string
}{
	{"cooking", "Speaking of cooking, have you discovered any interesting flavor combinations lately?"},
	{"travel", "Your travel experiences sound fascinating! What's been your most memorable journey so far?"},
	{"music", "I'm curious about your music taste. What genre speaks to your soul?"},
}

var positiveFallbacks = []string{
	"Your enthusiasm is contagious! What else brings you joy?",
	"That sounds wonderful! I'd love to hear more about what makes it special.",
	"You seem really passionate about this - what got you interested in it?",
}

var negativeFallbacks = []string{
	"That sounds challenging. How are you dealing with it?",
	"I can understand why that would be frustrating. What helps you cope?",
	"That must be tough. Is there anything positive you can take from the experience?",
}

var genericFallbacks = []string{
	"That's fascinating! What's the story behind that?",
	"I'm intrigued - what's your perspective on this?",
	"That's an interesting angle. What led you to that conclusion?",
	"Tell me more about that - I'm genuinely curious.",
}

// fallbackPicker selects canned responses. Randomness is scoped to the
// picker so tests can seed it.
type fallbackPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newFallbackPicker(seed int64) *fallbackPicker {
	return &fallbackPicker{rng: rand.New(rand.NewSource(seed))}
}

func (p *fallbackPicker) Pick(tracker *signals.Tracker) string {
	interests := make(map[string]struct{})
	for _, i := range tracker.Interests() {
		interests[i] = struct{}{}
	}
	for _, f := range interestFallbacks {
		if _, ok := interests[f.interest]; ok {
			return f.line
		}
	}

	var pool []string
	switch tracker.Sentiment() {
	case signals.SentimentPositive:
		pool = positiveFallbacks
	case signals.SentimentNegative:
		pool = negativeFallbacks
	default:
		pool = genericFallbacks
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rng.Intn(len(pool))]
}
