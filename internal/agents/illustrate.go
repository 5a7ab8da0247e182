package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/runlog"
	"github.com/kingrea/curioquest/internal/story"
)

// Art licenses. A "generate" prompt asks for a fresh paid render; a
// "stock" prompt tells the caller a precomputed stock asset will do.
const (
	LicenseGenerate = "generate"
	LicenseStock    = "stock"
)

const maxSupportImages = 2

const artInstructions = `You design illustration briefs for a kids' educational article.
Given the article, produce one hero image prompt and up to two support image prompts.
Prompts describe warm, friendly, painterly scenes with no text in the image. Alt text is one plain sentence.
Reply with JSON only: {"hero":{"prompt":"...","alt":"..."},"supports":[{"prompt":"...","alt":"..."}]}`

const estArtChars = 1200

// ArtPrompt is one image brief.
type ArtPrompt struct {
	Prompt  string `json:"prompt"`
	Alt     string `json:"alt"`
	License string `json:"license"`
}

// ArtPlan is the illustration brief for one story: a hero image plus at
// most two supports.
type ArtPlan struct {
	Hero     ArtPrompt   `json:"hero"`
	Supports []ArtPrompt `json:"supports"`
}

// Illustrator turns the chosen draft into an art plan.
type Illustrator struct {
	Client *ai.Client
	Budget *ai.Budget
	Log    *runlog.Log
}

// Plan derives the art plan from a draft. With a configured client and
// budget headroom it asks the model for briefs and marks them for fresh
// generation; otherwise, or when the reply does not parse, it falls
// back to deterministic stock-licensed briefs so no paid render is ever
// attempted for them.
func (il *Illustrator) Plan(ctx context.Context, slug string, draft story.Draft) ArtPlan {
	if !il.Client.Configured() {
		return stockPlan(draft)
	}
	if il.Budget != nil && !il.Budget.ApproveText(len(artInstructions)+len(draft.Title), estArtChars, "art:"+slug) {
		il.Log.Warnf(slug, "illustrator: budget denied art briefs, using stock plan")
		return stockPlan(draft)
	}
	text, err := il.Client.GenerateText(ctx, artInstructions, artInput(draft), 0.6)
	if err != nil {
		il.Log.Warnf(slug, "illustrator: brief generation failed: %v", err)
		return stockPlan(draft)
	}
	var plan ArtPlan
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &plan); err != nil || plan.Hero.Prompt == "" {
		il.Log.Warnf(slug, "illustrator: unparseable briefs, using stock plan")
		return stockPlan(draft)
	}
	plan.Hero.License = LicenseGenerate
	if plan.Hero.Alt == "" {
		plan.Hero.Alt = fmt.Sprintf("Illustration for %s", draft.Title)
	}
	if len(plan.Supports) > maxSupportImages {
		plan.Supports = plan.Supports[:maxSupportImages]
	}
	for i := range plan.Supports {
		plan.Supports[i].License = LicenseGenerate
		if plan.Supports[i].Alt == "" {
			plan.Supports[i].Alt = fmt.Sprintf("Supporting illustration for %s", draft.Title)
		}
	}
	return plan
}

// stockPlan builds briefs straight from the draft's own words, licensed
// so the renderer substitutes a stock asset instead of paying for one.
func stockPlan(draft story.Draft) ArtPlan {
	hero := ArtPrompt{
		Prompt:  fmt.Sprintf("A warm, friendly illustration of %s for kids", draft.Title),
		Alt:     fmt.Sprintf("Illustration for %s", draft.Title),
		License: LicenseStock,
	}
	var supports []ArtPrompt
	if wow := draft.FindPhase(story.PhaseWowPanel); wow != nil && wow.Heading != "" {
		supports = append(supports, ArtPrompt{
			Prompt:  fmt.Sprintf("A wide scene showing %s", wow.Heading),
			Alt:     wow.Heading,
			License: LicenseStock,
		})
	}
	return ArtPlan{Hero: hero, Supports: supports}
}

func artInput(draft story.Draft) string {
	raw, _ := json.Marshal(draft)
	return string(raw)
}
