// Package signals derives session-level conversational signals from
// raw turns: interest tags, sentiment and the recently-asked-question
// window used for repetition detection.
package signals

import "strings"

// interestKeywords maps each interest tag to substring triggers.
// Coarse by intent: "cook" matches anywhere, so false positives like
// "cookie" are accepted.
var interestKeywords = map[string][]string{
	"cooking":    {"cook", "recipe", "food", "kitchen", "meal"},
	"travel":     {"travel", "trip", "vacation", "country", "visit"},
	"sports":     {"sport", "exercise", "gym", "football", "soccer", "basketball"},
	"music":      {"music", "song", "band", "concert", "guitar", "piano"},
	"work":       {"work", "job", "career", "office", "colleague", "boss"},
	"family":     {"family", "parents", "siblings", "children", "kids"},
	"movies":     {"movie", "film", "cinema", "actor", "director"},
	"books":      {"book", "read", "novel", "author", "library"},
	"technology": {"computer", "phone", "app", "internet", "software"},
}

// interestOrder fixes iteration order over the keyword table so
// extraction results are stable.
var interestOrder = []string{
	"cooking", "travel", "sports", "music", "work",
	"family", "movies", "books", "technology",
}

// ExtractInterests returns every interest whose keyword list hits the
// text. Multiple interests may match a single message.
func ExtractInterests(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, interest := range interestOrder {
		for _, kw := range interestKeywords[interest] {
			if strings.Contains(lower, kw) {
				hits = append(hits, interest)
				break
			}
		}
	}
	return hits
}
