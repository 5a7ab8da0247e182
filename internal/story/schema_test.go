package story

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validStory() *Story {
	return &Story{
		Slug:         "black-holes",
		Title:        "Black Holes: A Kid's Guide",
		AgeBand:      "10-13",
		ReadingLevel: "grade-6",
		EstReadMin:   6,
		HeroImage:    &ImageRef{File: "/assets/black-holes/hero.png", Alt: "Black Holes hero"},
		Sources:      []Source{{ID: "s1", Name: "StubSource", URL: "https://example.com"}},
		Phases: []Phase{
			{Kind: PhaseHook, Heading: "What if a star vanished?", Body: "One day it did."},
			{Kind: PhaseOrientation, Heading: "Where we begin", Body: "Far away in space."},
			{Kind: PhaseDiscovery, Heading: "Discoveries", Body: "Gravity wins."},
			{Kind: PhaseWowPanel, Heading: "Big wow", Body: "Nothing escapes."},
			{Kind: PhaseFactGems, Gems: []FactGem{
				{SourceID: "s1", Text: "Fact one."},
				{SourceID: "s1", Text: "Fact two."},
				{SourceID: "s1", Text: "Fact three."},
			}},
			{Kind: PhaseMiniQuiz, Quiz: []QuizItem{
				{Q: "Pick one", Choices: []string{"A", "B"}, Answer: 0},
				{Q: "Pick two", Choices: []string{"C", "D"}, Answer: 1},
			}},
			{Kind: PhaseImagine, Prompt: "Imagine falling in..."},
			{Kind: PhaseWrap, KeyTakeaways: []string{"Gravity is strong", "Space is weird"}},
		},
	}
}

func TestValidateAcceptsWellFormedStory(t *testing.T) {
	if err := Validate(validStory()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsWrongGemCount(t *testing.T) {
	s := validStory()
	gems := s.Phases[4].Gems
	s.Phases[4].Gems = gems[:2]
	assertIssue(t, Validate(s), "fact-gems wants exactly 3")
}

func TestValidateRejectsUnknownGemSource(t *testing.T) {
	s := validStory()
	s.Phases[4].Gems[1].SourceID = "s9"
	assertIssue(t, Validate(s), `unknown source "s9"`)
}

func TestValidateRejectsQuizAnswerOutOfRange(t *testing.T) {
	s := validStory()
	s.Phases[5].Quiz[0].Answer = 5
	assertIssue(t, Validate(s), "answer 5 out of range")
}

func TestValidateRejectsMissingRequiredPhase(t *testing.T) {
	s := validStory()
	s.Phases[5] = Phase{Kind: PhaseDiscovery, Heading: "More", Body: "More facts."}
	assertIssue(t, Validate(s), `missing required phase "mini-quiz"`)
}

func TestValidateRejectsTooFewPhases(t *testing.T) {
	s := validStory()
	s.Phases = s.Phases[:4]
	assertIssue(t, Validate(s), "at least 6 phases")
}

func TestValidateRejectsRelativeSourceURL(t *testing.T) {
	s := validStory()
	s.Sources[0].URL = "/not/absolute"
	assertIssue(t, Validate(s), "not absolute")
}

func TestPhaseJSONRoundTrip(t *testing.T) {
	s := validStory()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"type":"fact-gems"`) {
		t.Fatalf("discriminator missing from wire form: %s", data)
	}
	var back Story
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := Validate(&back); err != nil {
		t.Fatalf("round-tripped story failed validation: %v", err)
	}
	if back.Phases[5].Quiz[1].Answer != 1 {
		t.Fatalf("quiz answer lost in round trip: %+v", back.Phases[5])
	}
}

func TestPhaseUnmarshalKeepsUnknownKind(t *testing.T) {
	var p Phase
	if err := json.Unmarshal([]byte(`{"type":"glossary","terms":[]}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Kind != "glossary" {
		t.Fatalf("kind = %q, want glossary", p.Kind)
	}
	s := validStory()
	s.Phases = append(s.Phases, p)
	assertIssue(t, Validate(s), `unknown kind "glossary"`)
}

func assertIssue(t *testing.T, err error, fragment string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation failure containing %q", fragment)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("error %q does not mention %q", err, fragment)
	}
}
