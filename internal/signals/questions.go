package signals

import (
	"strings"
	"time"

	"parley/internal/textsim"
)

const (
	// questionWindowCap bounds the recently-asked window; the oldest
	// entry is evicted when a push would exceed it.
	questionWindowCap = 10

	// repetitionThreshold is the Jaccard score above which a candidate
	// question counts as a repeat. Tunable design constant.
	repetitionThreshold = 0.7
)

// TrackedQuestion is one assistant question with its observation time.
type TrackedQuestion struct {
	Question string    `json:"question"`
	AskedAt  time.Time `json:"asked_at"`
}

// QuestionTracker keeps the most recent assistant questions and flags
// near-duplicate candidates.
type QuestionTracker struct {
	recent []TrackedQuestion
}

// SplitQuestions extracts each question from text: every non-empty
// segment before a '?' is returned trimmed with the '?' reattached.
func SplitQuestions(text string) []string {
	if !strings.Contains(text, "?") {
		return nil
	}
	var out []string
	for _, seg := range strings.Split(text, "?") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		out = append(out, seg+"?")
	}
	return out
}

// Observe records every question found in an assistant turn,
// lowercased, evicting from the front past the window cap.
func (qt *QuestionTracker) Observe(text string, at time.Time) {
	for _, q := range SplitQuestions(text) {
		qt.recent = append(qt.recent, TrackedQuestion{Question: strings.ToLower(q), AskedAt: at})
	}
	if len(qt.recent) > questionWindowCap {
		qt.recent = qt.recent[len(qt.recent)-questionWindowCap:]
	}
}

// IsRepetitive reports whether the candidate question is too similar
// to any recently tracked question. Pure with respect to state.
func (qt *QuestionTracker) IsRepetitive(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, q := range qt.recent {
		if textsim.Similarity(lower, q.Question) > repetitionThreshold {
			return true
		}
	}
	return false
}

// Recent returns a copy of the tracked window, oldest first.
func (qt *QuestionTracker) Recent() []TrackedQuestion {
	out := make([]TrackedQuestion, len(qt.recent))
	copy(out, qt.recent)
	return out
}

func (qt *QuestionTracker) Len() int { return len(qt.recent) }

func (qt *QuestionTracker) Clear() { qt.recent = nil }
