package story

import (
	"regexp"
	"strings"
)

// Stats summarizes the reading difficulty of a block of prose.
type Stats struct {
	Sentences int
	Words     int
	Syllables int
	// ASL is the average sentence length in words.
	ASL float64
	// ASW is the average syllable count per word.
	ASW float64
	// FK is the Flesch-Kincaid grade level.
	FK float64
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// ReadabilityStats computes Flesch-Kincaid numbers for the given text.
// The audit flags anything landing far above the grade-6 target.
func ReadabilityStats(text string) Stats {
	sentences := 0
	for _, s := range sentenceEnd.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	words := strings.Fields(text)
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	asl := float64(len(words)) / float64(max(1, sentences))
	asw := float64(syllables) / float64(max(1, len(words)))
	fk := 0.39*asl + 11.8*asw - 15.59
	return Stats{
		Sentences: sentences,
		Words:     len(words),
		Syllables: syllables,
		ASL:       asl,
		ASW:       asw,
		FK:        fk,
	}
}

// Narrative joins the prose-bearing phases of a story into one block of
// text for the readability audit.
func (s *Story) Narrative() string {
	var parts []string
	for _, p := range s.Phases {
		switch p.Kind {
		case PhaseHook, PhaseOrientation, PhaseDiscovery, PhaseWowPanel:
			seg := joinNonEmpty(p.Heading, p.Body)
			if seg != "" {
				parts = append(parts, seg)
			}
		case PhaseWrap:
			if len(p.KeyTakeaways) > 0 {
				parts = append(parts, strings.Join(p.KeyTakeaways, ". "))
			}
		}
	}
	return strings.Join(parts, " ")
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + ". " + b
	}
}

func countSyllables(word string) int {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	w := b.String()
	if w == "" {
		return 0
	}
	groups := 0
	inGroup := false
	for _, r := range w {
		if strings.ContainsRune("aeiouy", r) {
			if !inGroup {
				groups++
			}
			inGroup = true
		} else {
			inGroup = false
		}
	}
	if strings.HasSuffix(w, "e") && groups > 1 {
		groups--
	}
	return max(1, groups)
}
