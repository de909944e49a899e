package engine

import (
	"testing"

	"parley/internal/signals"
)

func TestFallbackPickerInterestPriority(t *testing.T) {
	tracker := signals.NewTracker()
	tracker.ObserveUser("I hate this terrible day but at least I went travelling")

	p := newFallbackPicker(1)
	got := p.Pick(tracker)
	want := interestFallbacks[1].line
	if got != want {
		t.Fatalf("Pick() = %q, want travel line %q", got, want)
	}
}

func TestFallbackPickerSentimentPool(t *testing.T) {
	tracker := signals.NewTracker()
	tracker.ObserveUser("today was awful and I am so disappointed")

	p := newFallbackPicker(1)
	got := p.Pick(tracker)
	if !contains(negativeFallbacks, got) {
		t.Fatalf("Pick() = %q, want a line from the negative pool", got)
	}
}

func TestFallbackPickerGenericPool(t *testing.T) {
	p := newFallbackPicker(1)
	got := p.Pick(signals.NewTracker())
	if !contains(genericFallbacks, got) {
		t.Fatalf("Pick() = %q, want a line from the generic pool", got)
	}
}

func contains(pool []string, s string) bool {
	for _, line := range pool {
		if line == s {
			return true
		}
	}
	return false
}
