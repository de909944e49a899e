package engine

import (
	"strings"

	"parley/internal/memory"
	"parley/internal/signals"
	"parley/internal/textsim"
)

const (
	// assistantSimilarityThreshold rejects candidates that echo a
	// recent assistant turn.
	assistantSimilarityThreshold = 0.6
	// assistantLookback is how many prior assistant turns a candidate
	// is compared against.
	assistantLookback = 3
)

// isRepetitive applies the acceptance gate: a candidate is rejected
// when any question in it trips the recently-asked window, or when it
// is too similar to one of the last assistant turns. Caller holds the
// engine lock.
func (e *Engine) isRepetitive(candidate string) bool {
	for _, q := range signals.SplitQuestions(candidate) {
		if e.tracker.IsRepetitiveQuestion(q) {
			return true
		}
	}

	lower := strings.ToLower(candidate)
	for _, prev := range e.recentAssistantTexts(assistantLookback) {
		if textsim.Similarity(lower, strings.ToLower(prev)) > assistantSimilarityThreshold {
			return true
		}
	}
	return false
}

// recentAssistantTexts returns up to n most recent assistant turns,
// newest first.
func (e *Engine) recentAssistantTexts(n int) []string {
	turns := e.log.All()
	var out []string
	for i := len(turns) - 1; i >= 0 && len(out) < n; i-- {
		if turns[i].Role == memory.RoleAssistant {
			out = append(out, turns[i].Text)
		}
	}
	return out
}
