package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/story"
)

func TestIllustratorStockPlanWhenOffline(t *testing.T) {
	draft := story.Draft{
		Title: "Comets",
		Phases: []story.Phase{
			{Kind: story.PhaseHook, Heading: "h", Body: "b"},
			{Kind: story.PhaseWowPanel, Heading: "A tail millions of miles long", Body: "..."},
		},
	}
	il := &Illustrator{Client: ai.NewClient("", nil)}
	plan := il.Plan(context.Background(), "comets", draft)
	if plan.Hero.License != LicenseStock {
		t.Fatalf("offline hero should be stock licensed, got %q", plan.Hero.License)
	}
	if !strings.Contains(plan.Hero.Prompt, "Comets") {
		t.Fatalf("hero prompt should mention the title: %q", plan.Hero.Prompt)
	}
	if len(plan.Supports) != 1 || plan.Supports[0].License != LicenseStock {
		t.Fatalf("expected one stock support from the wow panel: %+v", plan.Supports)
	}
	if !strings.Contains(plan.Supports[0].Prompt, "tail") {
		t.Fatalf("support prompt should come from the wow panel: %q", plan.Supports[0].Prompt)
	}
}

func TestIllustratorStockPlanWithoutWowPanel(t *testing.T) {
	draft := story.Draft{Title: "Comets", Phases: []story.Phase{{Kind: story.PhaseHook, Heading: "h", Body: "b"}}}
	il := &Illustrator{Client: ai.NewClient("", nil)}
	plan := il.Plan(context.Background(), "comets", draft)
	if len(plan.Supports) != 0 {
		t.Fatalf("no wow panel should mean no supports, got %d", len(plan.Supports))
	}
}
