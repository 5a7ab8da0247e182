package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/runlog"
	"github.com/kingrea/curioquest/internal/story"
)

const factGemCount = 3

// PlanStep is one beat of the phase plan handed to the drafter.
type PlanStep struct {
	Step int    `json:"step"`
	Text string `json:"text"`
}

// Outline is the structured plan between research and drafting. It
// always carries exactly three fact-gems, each citing a source present
// in Sources; the schema re-checks this at packaging time.
type Outline struct {
	Plan     []PlanStep      `json:"phases"`
	FactGems []story.FactGem `json:"factGems"`
	Sources  []story.Source  `json:"sources"`
}

const outlineInstructions = `You plan educational stories for kids (ages 10-13).
From the numbered facts below, choose the 3 most surprising and kid-friendly as "fact gems".
Reply with JSON only: [{"sourceId":"...","text":"..."}] — exactly 3 entries, text under 25 words, sourceId copied from the chosen fact.`

// Outliner turns raw facts into a phase plan plus three cited fact-gems.
type Outliner struct {
	Client *ai.Client
	Budget *ai.Budget
	Log    *runlog.Log
}

// Build assembles the outline. The plan is derived deterministically
// from the fact claims; gem selection goes through the model when a
// credential and budget headroom exist, and otherwise (or on any
// generation/parse failure) takes the first facts verbatim. Either way
// the output satisfies the three-valid-gems invariant.
func (o *Outliner) Build(ctx context.Context, slug, topic string, research Research) Outline {
	out := Outline{Sources: research.Sources}
	for i, f := range research.Facts {
		out.Plan = append(out.Plan, PlanStep{Step: i, Text: f.Claim})
	}
	out.FactGems = o.selectGems(ctx, slug, topic, research)
	return out
}

func (o *Outliner) selectGems(ctx context.Context, slug, topic string, research Research) []story.FactGem {
	fallback := fallbackGems(research)
	if !o.Client.Configured() {
		return fallback
	}
	input := gemSelectionInput(topic, research.Facts)
	if o.Budget != nil && !o.Budget.ApproveText(len(outlineInstructions)+len(input), 1000, "outline:"+slug) {
		o.Log.Warnf(slug, "outline: budget denied gem selection, using first facts")
		return fallback
	}
	text, err := o.Client.GenerateText(ctx, outlineInstructions, input, 0.4)
	if err != nil {
		o.Log.Warnf(slug, "outline: gem selection failed: %v", err)
		return fallback
	}
	var chosen []story.FactGem
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &chosen); err != nil || len(chosen) == 0 {
		return fallback
	}
	return repairGems(chosen, fallback, research.Sources)
}

// fallbackGems takes the first three facts verbatim, cycling when fewer
// than three facts were collected so the invariant still holds.
func fallbackGems(research Research) []story.FactGem {
	gems := make([]story.FactGem, 0, factGemCount)
	if len(research.Facts) == 0 {
		return gems
	}
	for i := 0; i < factGemCount; i++ {
		f := research.Facts[i%len(research.Facts)]
		gems = append(gems, story.FactGem{SourceID: f.SourceID, Text: f.Claim})
	}
	return gems
}

// repairGems forces the model's choice back onto the invariant: exactly
// three entries, every source id present in the source set. Broken
// entries are replaced positionally from the fallback rather than
// dropped.
func repairGems(chosen, fallback []story.FactGem, sources []story.Source) []story.FactGem {
	valid := make(map[string]bool, len(sources))
	for _, s := range sources {
		valid[s.ID] = true
	}
	gems := make([]story.FactGem, factGemCount)
	for i := 0; i < factGemCount; i++ {
		var gem story.FactGem
		if i < len(chosen) {
			gem = chosen[i]
		}
		if gem.Text == "" || gem.SourceID == "" || !valid[gem.SourceID] {
			if i < len(fallback) {
				if gem.Text == "" {
					gem.Text = fallback[i].Text
				}
				if gem.SourceID == "" || !valid[gem.SourceID] {
					gem.SourceID = fallback[i].SourceID
				}
			}
		}
		gems[i] = gem
	}
	return gems
}

func gemSelectionInput(topic string, facts []Fact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nFacts:\n", topic)
	for i, f := range facts {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, f.SourceID, f.Claim)
	}
	return b.String()
}

// stripCodeFences unwraps ```json ... ``` blocks models like to add.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:] // drop the language hint line
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
