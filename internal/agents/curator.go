// Package agents implements the generation pipeline stages: curate,
// research, outline, draft, gate, judge, illustrate, package. Stages
// consume the previous stage's output and return new values; nothing is
// mutated in place, so the orchestrator can fan topics out across
// workers without sharing story state.
package agents

import "github.com/kingrea/curioquest/internal/slug"

// Curation expands a bare topic into the identifiers and steering tags
// the later stages work from.
type Curation struct {
	Slug               string   `json:"slug"`
	SubAngles          []string `json:"subAngles"`
	ToneTags           []string `json:"toneTags"`
	ReadingLevelTarget string   `json:"readingLevelTarget"`
}

// Curate derives a curation deterministically. It makes no external
// calls: the slug is pure slugification and the angles/tone defaults
// steer research and drafting for every topic alike.
func Curate(topic, readingLevel string) Curation {
	if readingLevel == "" {
		readingLevel = "grade-6"
	}
	return Curation{
		Slug:               slug.Make(topic),
		SubAngles:          []string{"history", "science", "surprise"},
		ToneTags:           []string{"playful", "curious"},
		ReadingLevelTarget: readingLevel,
	}
}
