package signals

import (
	"fmt"
	"testing"
	"time"
)

func TestExtractInterestsKeywordHit(t *testing.T) {
	got := ExtractInterests("I learned to cook last year")
	if len(got) != 1 || got[0] != "cooking" {
		t.Fatalf("ExtractInterests() = %v, want [cooking]", got)
	}
}

func TestExtractInterestsMultipleCategories(t *testing.T) {
	got := ExtractInterests("I love cooking and travel")
	if len(got) != 2 || got[0] != "cooking" || got[1] != "travel" {
		t.Fatalf("ExtractInterests() = %v, want [cooking travel]", got)
	}
}

func TestExtractInterestsNoMatch(t *testing.T) {
	if got := ExtractInterests("hello there"); len(got) != 0 {
		t.Fatalf("ExtractInterests() = %v, want empty", got)
	}
}

func TestDetectSentiment(t *testing.T) {
	cases := []struct {
		text string
		want Sentiment
	}{
		{"I love cooking and travel", SentimentPositive},
		{"that was a terrible, awful day", SentimentNegative},
		{"I went to the shop", SentimentNeutral},
		{"good but also bad", SentimentNeutral},
		{"", SentimentNeutral},
	}
	for _, tc := range cases {
		if got := DetectSentiment(tc.text); got != tc.want {
			t.Fatalf("DetectSentiment(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestSplitQuestions(t *testing.T) {
	got := SplitQuestions("Nice! What do you cook? Do you bake too?")
	want := []string{"Nice! What do you cook?", "Do you bake too?"}
	if len(got) != len(want) {
		t.Fatalf("SplitQuestions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SplitQuestions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if SplitQuestions("no questions here.") != nil {
		t.Fatalf("expected nil for text without questions")
	}
}

func TestQuestionWindowNeverExceedsCap(t *testing.T) {
	var qt QuestionTracker
	now := time.Now()
	for i := 0; i < 30; i++ {
		qt.Observe(fmt.Sprintf("question number %d about topic %d?", i, i), now)
	}
	if qt.Len() != questionWindowCap {
		t.Fatalf("window len = %d, want %d", qt.Len(), questionWindowCap)
	}
	recent := qt.Recent()
	if recent[len(recent)-1].Question != "question number 29 about topic 29?" {
		t.Fatalf("unexpected newest question: %q", recent[len(recent)-1].Question)
	}
	if recent[0].Question != "question number 20 about topic 20?" {
		t.Fatalf("oldest question not evicted: %q", recent[0].Question)
	}
}

func TestIsRepetitiveIdenticalQuestion(t *testing.T) {
	var qt QuestionTracker
	qt.Observe("What did you do today?", time.Now())
	if !qt.IsRepetitive("What did you do today?") {
		t.Fatalf("identical question should be repetitive")
	}
}

func TestIsRepetitiveDisjointQuestion(t *testing.T) {
	var qt QuestionTracker
	qt.Observe("What did you do today?", time.Now())
	if qt.IsRepetitive("Which cuisine inspires your cooking?") {
		t.Fatalf("disjoint question should not be repetitive")
	}
}

func TestTrackerInterestSetGrowsOnly(t *testing.T) {
	tr := NewTracker()
	tr.ObserveUser("I love cooking and travel")
	tr.ObserveUser("just a plain message")

	got := tr.Interests()
	if len(got) != 2 || got[0] != "cooking" || got[1] != "travel" {
		t.Fatalf("Interests() = %v, want [cooking travel]", got)
	}
	if tr.Sentiment() != SentimentNeutral {
		t.Fatalf("Sentiment() = %q, want neutral after plain message", tr.Sentiment())
	}

	tr.ObserveUser("I love cooking")
	if len(tr.Interests()) != 2 {
		t.Fatalf("duplicate interest should not grow the set: %v", tr.Interests())
	}
}

func TestTrackerClear(t *testing.T) {
	tr := NewTracker()
	tr.ObserveUser("I love cooking")
	tr.ObserveAssistant("What is your favorite recipe?")

	tr.Clear()
	if len(tr.Interests()) != 0 {
		t.Fatalf("Interests() after Clear = %v, want empty", tr.Interests())
	}
	if tr.Sentiment() != SentimentNeutral {
		t.Fatalf("Sentiment() after Clear = %q, want neutral", tr.Sentiment())
	}
	if len(tr.TrackedQuestions()) != 0 {
		t.Fatalf("TrackedQuestions() after Clear not empty")
	}
}
