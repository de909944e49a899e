package signals

import "strings"

// Sentiment labels the mood of the latest user turn.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var positiveWords = []string{"happy", "great", "good", "love", "amazing", "wonderful", "excited"}
var negativeWords = []string{"sad", "bad", "terrible", "hate", "awful", "disappointed", "worried"}

// DetectSentiment counts positive and negative word hits in the text.
// Ties, including zero hits on both sides, are neutral.
func DetectSentiment(text string) Sentiment {
	lower := strings.ToLower(text)

	positive := 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	negative := 0
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
