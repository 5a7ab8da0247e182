package story

import (
	"strings"
	"testing"
)

func TestReadabilityStatsCountsSentencesAndWords(t *testing.T) {
	stats := ReadabilityStats("The cat sat. The dog ran! Did the bird fly?")
	if stats.Sentences != 3 {
		t.Fatalf("sentences = %d, want 3", stats.Sentences)
	}
	if stats.Words != 10 {
		t.Fatalf("words = %d, want 10", stats.Words)
	}
	if stats.ASL < 3.2 || stats.ASL > 3.4 {
		t.Fatalf("ASL = %f, want ~3.33", stats.ASL)
	}
}

func TestReadabilityStatsEmptyInput(t *testing.T) {
	stats := ReadabilityStats("")
	if stats.Words != 0 || stats.Sentences != 0 {
		t.Fatalf("empty text should yield zero counts: %+v", stats)
	}
}

func TestNarrativeSkipsNonProsePhases(t *testing.T) {
	s := validStory()
	text := s.Narrative()
	if text == "" {
		t.Fatal("narrative is empty")
	}
	for _, banned := range []string{"Pick one", "Imagine falling"} {
		if strings.Contains(text, banned) {
			t.Fatalf("narrative leaked non-prose content %q: %s", banned, text)
		}
	}
	if !strings.Contains(text, "What if a star vanished?") {
		t.Fatalf("narrative missing hook heading: %s", text)
	}
}
