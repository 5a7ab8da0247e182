package agents

import (
	"context"
	"testing"

	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/story"
)

func outlineFixture() Outline {
	return Outline{
		Plan: []PlanStep{{Step: 0, Text: "Comets grow tails near the sun."}},
		FactGems: []story.FactGem{
			{SourceID: "s1", Text: "Comets grow tails near the sun."},
			{SourceID: "s1", Text: "A comet's core is ice and dust."},
			{SourceID: "s1", Text: "Some comets visit only once."},
		},
		Sources: []story.Source{{ID: "s1", Name: "Wikipedia: Comets", URL: "https://en.wikipedia.org/wiki/Comet"}},
	}
}

func TestDraftFallbackPerTemperature(t *testing.T) {
	d := &Drafter{Client: ai.NewClient("", nil)}
	drafts := d.Draft(context.Background(), "comets", "Comets", outlineFixture(), []float64{0.7, 0.9, 1.1})
	if len(drafts) != 3 {
		t.Fatalf("expected one draft per temperature, got %d", len(drafts))
	}
	for i, draft := range drafts {
		if draft.Title == "" {
			t.Fatalf("draft %d has no title", i)
		}
		if len(draft.Phases) < 6 {
			t.Fatalf("draft %d has %d phases", i, len(draft.Phases))
		}
		for _, kind := range []story.PhaseKind{story.PhaseHook, story.PhaseFactGems, story.PhaseMiniQuiz, story.PhaseWrap} {
			if draft.FindPhase(kind) == nil {
				t.Fatalf("draft %d missing %s phase", i, kind)
			}
		}
	}
}

func TestDraftNormalizationWithSparseGems(t *testing.T) {
	outline := outlineFixture()
	outline.FactGems = outline.FactGems[:1]
	d := &Drafter{Client: ai.NewClient("", nil)}
	drafts := d.Draft(context.Background(), "comets", "Comets", outline, nil)
	gems := drafts[0].FindPhase(story.PhaseFactGems)
	if gems == nil {
		t.Fatalf("missing fact-gems phase")
	}
	if len(gems.Gems) != 3 {
		t.Fatalf("expected exactly 3 gems, got %d", len(gems.Gems))
	}
	if gems.Gems[0].SourceID == "" {
		t.Fatalf("first gem lost its source id")
	}
}

func TestParseDraftToleratesFences(t *testing.T) {
	text := "```json\n{\"title\":\"Comets\",\"phases\":[{\"type\":\"hook\",\"heading\":\"h\",\"body\":\"b\"}]}\n```"
	draft, ok := ParseDraft(text)
	if !ok {
		t.Fatalf("expected fenced JSON to parse")
	}
	if draft.Title != "Comets" || len(draft.Phases) != 1 {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}

func TestParseDraftRejectsJunk(t *testing.T) {
	if _, ok := ParseDraft("I cannot write that story."); ok {
		t.Fatalf("prose should not parse as a draft")
	}
	if _, ok := ParseDraft(`{"title":"","phases":[]}`); ok {
		t.Fatalf("empty structure should not count as a draft")
	}
}

func TestNormalizeGemsRepairsBadCitations(t *testing.T) {
	outline := outlineFixture()
	draft := story.Draft{
		Title: "Comets",
		Phases: []story.Phase{
			{Kind: story.PhaseHook, Heading: "h", Body: "b"},
			{Kind: story.PhaseFactGems, Gems: []story.FactGem{
				{SourceID: "nope", Text: "kept text"},
			}},
		},
	}
	NormalizeGems(&draft, outline)
	gems := draft.FindPhase(story.PhaseFactGems).Gems
	if len(gems) != 3 {
		t.Fatalf("expected 3 gems, got %d", len(gems))
	}
	if gems[0].SourceID != "s1" || gems[0].Text != "kept text" {
		t.Fatalf("expected repaired citation with kept text, got %+v", gems[0])
	}
	if gems[2] != outline.FactGems[2] {
		t.Fatalf("expected positional backfill, got %+v", gems[2])
	}
}

func TestNormalizeGemsAddsMissingPhase(t *testing.T) {
	outline := outlineFixture()
	draft := story.Draft{Title: "Comets", Phases: []story.Phase{{Kind: story.PhaseHook, Heading: "h", Body: "b"}}}
	NormalizeGems(&draft, outline)
	if draft.FindPhase(story.PhaseFactGems) == nil {
		t.Fatalf("expected a fact-gems phase to be added")
	}
}
