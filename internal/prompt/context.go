// Package prompt assembles the personalization context and
// conversation guidance injected into backend requests.
package prompt

import (
	"fmt"
	"strings"

	"parley/internal/memory"
	"parley/internal/signals"
)

const (
	// recentTopicTurns is how far back topic extraction looks.
	recentTopicTurns = 6
	// topicWordsPerTurn caps how many candidate words one turn yields.
	topicWordsPerTurn = 2
	// topicMinWordLen filters out short filler words.
	topicMinWordLen = 4
	// recentTopicCap is the number of topics kept after dedup.
	recentTopicCap = 5
)

// SystemPrompt sets the assistant's conversational persona.
const SystemPrompt = `You are a curious and engaging conversation partner who loves meeting new people and learning about their lives.

Your personality:
- Friendly, enthusiastic, and genuinely interested in the person you're talking to
- You remember what people tell you and refer back to previous conversations
- You ask thoughtful follow-up questions based on what someone shares
- You share your own thoughts and reactions naturally, like a real friend would
- You're spontaneous and creative in your responses - avoid repetitive patterns

Conversation style:
- Avoid repetitive questions like "How are you?" if you've asked recently
- Remember topics discussed and build on them
- Ask specific, personalized questions based on what you know about the person
- Keep responses conversational and natural (1-3 sentences usually)
- Be encouraging but not overly formal or teacher-like`

// CompactSystemPrompt is the short variant used for completion-style
// local backends where the full persona wastes context.
const CompactSystemPrompt = `You are a curious and engaging conversation partner. Avoid repetitive questions. Remember previous topics. Ask follow-up questions based on the other person's interests. Be creative and spontaneous. Show genuine interest in the person you're talking to.`

// BuildContext renders the session signals as a compact context line:
// interests, mood (when not neutral) and recent topics, joined by " | ".
// Empty when there is nothing to say.
func BuildContext(tracker *signals.Tracker, recent []memory.Message) string {
	var parts []string

	if interests := tracker.Interests(); len(interests) > 0 {
		parts = append(parts, "User interests: "+strings.Join(interests, ", "))
	}
	if s := tracker.Sentiment(); s != signals.SentimentNeutral {
		parts = append(parts, "User mood: "+string(s))
	}
	if topics := RecentTopics(recent); len(topics) > 0 {
		parts = append(parts, "Recent topics discussed: "+strings.Join(topics, ", "))
	}

	return strings.Join(parts, " | ")
}

// RecentTopics pulls candidate topic words from the last few turns:
// per turn the first two alphabetic words longer than four characters,
// deduplicated in first-seen order, keeping the newest five. Ordering
// is deterministic by recency.
func RecentTopics(recent []memory.Message) []string {
	if len(recent) < 2 {
		return nil
	}
	if len(recent) > recentTopicTurns {
		recent = recent[len(recent)-recentTopicTurns:]
	}

	seen := make(map[string]struct{})
	var topics []string
	for _, msg := range recent {
		kept := 0
		for _, w := range strings.Fields(strings.ToLower(msg.Content)) {
			if kept >= topicWordsPerTurn {
				break
			}
			if len(w) <= topicMinWordLen || !isAlpha(w) {
				continue
			}
			kept++
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			topics = append(topics, w)
		}
	}

	if len(topics) > recentTopicCap {
		topics = topics[len(topics)-recentTopicCap:]
	}
	return topics
}

// BuildGuidance derives steering hints from recent user verbosity,
// interests and sentiment. Empty when no hint applies.
func BuildGuidance(tracker *signals.Tracker, log *memory.TurnLog) string {
	var parts []string

	if avg, ok := averageUserWords(log, 3); ok {
		switch {
		case avg < 5:
			parts = append(parts, "User gives short responses - ask more specific, engaging questions to encourage longer answers")
		case avg > 20:
			parts = append(parts, "User is sharing detailed responses - ask follow-up questions about specific details they mentioned")
		}
	}

	if interests := tracker.Interests(); len(interests) > 0 {
		if len(interests) > 3 {
			interests = interests[len(interests)-3:]
		}
		parts = append(parts, fmt.Sprintf("Focus on user's interests: %s", strings.Join(interests, ", ")))
	}

	switch tracker.Sentiment() {
	case signals.SentimentPositive:
		parts = append(parts, "User seems positive - maintain the upbeat energy")
	case signals.SentimentNegative:
		parts = append(parts, "User seems down - be empathetic and supportive")
	}

	return strings.Join(parts, " | ")
}

// averageUserWords computes the mean word count of the last n user
// turns. ok is false when the log has no user turns yet.
func averageUserWords(log *memory.TurnLog, n int) (float64, bool) {
	var counts []int
	for _, t := range log.All() {
		if t.Role != memory.RoleUser {
			continue
		}
		counts = append(counts, len(strings.Fields(t.Text)))
	}
	if len(counts) == 0 {
		return 0, false
	}
	if len(counts) > n {
		counts = counts[len(counts)-n:]
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return float64(sum) / float64(len(counts)), true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return len(s) > 0
}
