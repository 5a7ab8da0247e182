package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/runlog"
	"github.com/kingrea/curioquest/internal/story"
)

const draftInstructions = `You write 900-1100 word educational stories for kids (ages 10-13).
Structure exactly these phases: hook; orientation; discovery (x2-3); wow-panel; fact-gems (3); mini-quiz (2-3); imagine; wrap.
Tone: playful yet precise. No gore, violence, or scary content. Keep reading level around grade 6. Use only the provided fact-gems and citations.
Reply with JSON only: {"title":"...","phases":[{"type":"hook","heading":"...","body":"..."}, ..., {"type":"fact-gems","items":[{"sourceId":"...","text":"..."}]}, {"type":"mini-quiz","items":[{"q":"...","choices":["..."],"answer":0}]}, {"type":"imagine","prompt":"..."}, {"type":"wrap","keyTakeaways":["..."]}]}`

// estDraftChars is the output-size assumption fed to the budget guard
// before a draft generation is issued.
const estDraftChars = 6000

// Drafter produces one candidate draft per creativity setting so the
// judge has real alternatives to choose among.
type Drafter struct {
	Client *ai.Client
	Budget *ai.Budget
	Log    *runlog.Log
}

// Draft generates one draft per temperature. A missing credential,
// budget denial, generation error, or unparseable reply all land on the
// same deterministic fallback template, so every slot always yields a
// schema-shaped draft. Each draft's fact-gems phase is then normalized
// against the outline gems: absent or invalid entries are back-filled
// by position, never dropped.
func (d *Drafter) Draft(ctx context.Context, slug, topic string, outline Outline, temperatures []float64) []story.Draft {
	if len(temperatures) == 0 {
		temperatures = []float64{0.9}
	}
	drafts := make([]story.Draft, 0, len(temperatures))
	input := draftInput(topic, outline)
	for _, temp := range temperatures {
		draft, generated := d.generateOne(ctx, slug, input, temp)
		if !generated {
			draft = FallbackDraft(topic, outline)
		}
		NormalizeGems(&draft, outline)
		drafts = append(drafts, draft)
	}
	return drafts
}

func (d *Drafter) generateOne(ctx context.Context, slug, input string, temp float64) (story.Draft, bool) {
	if !d.Client.Configured() {
		return story.Draft{}, false
	}
	if d.Budget != nil && !d.Budget.ApproveText(len(draftInstructions)+len(input), estDraftChars, fmt.Sprintf("draft:%s:t%.1f", slug, temp)) {
		d.Log.Warnf(slug, "drafter: budget denied generation at t=%.1f, using template", temp)
		return story.Draft{}, false
	}
	text, err := d.Client.GenerateText(ctx, draftInstructions, input, temp)
	if err != nil {
		d.Log.Warnf(slug, "drafter: generation failed at t=%.1f: %v", temp, err)
		return story.Draft{}, false
	}
	draft, ok := ParseDraft(text)
	if !ok {
		d.Log.Warnf(slug, "drafter: unparseable reply at t=%.1f, using template", temp)
		return story.Draft{}, false
	}
	return draft, true
}

func draftInput(topic string, outline Outline) string {
	plan, _ := json.Marshal(outline.Plan)
	gems, _ := json.Marshal(outline.FactGems)
	return fmt.Sprintf("Topic: %s\nOutline: %s\nFact gems (cite these sourceIds exactly): %s", topic, plan, gems)
}

// ParseDraft decodes a model reply into a draft, tolerating fenced code
// blocks. It reports false for malformed JSON or a reply missing the
// basic structure (title plus phases).
func ParseDraft(text string) (story.Draft, bool) {
	var draft story.Draft
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &draft); err != nil {
		return story.Draft{}, false
	}
	if draft.Title == "" || len(draft.Phases) == 0 {
		return story.Draft{}, false
	}
	return draft, true
}

// FallbackDraft builds the deterministic template draft from the topic
// and outline gems. It is intentionally plain: its job is to be valid
// under the schema even when every external service is down.
func FallbackDraft(topic string, outline Outline) story.Draft {
	gems := outline.FactGems
	takeaway := func(i int) string {
		if i < len(gems) && gems[i].Text != "" {
			return trimWords(gems[i].Text, 12)
		}
		return fmt.Sprintf("There is more to %s than meets the eye", topic)
	}
	discoveryBody := fmt.Sprintf("Scientists and explorers keep finding new things about %s. Every answer opens another question.", topic)
	if len(outline.Plan) > 0 {
		discoveryBody = outline.Plan[0].Text
	}
	return story.Draft{
		Title: fmt.Sprintf("%s: A Kid's Guide", topic),
		Phases: []story.Phase{
			{Kind: story.PhaseHook, Heading: fmt.Sprintf("What if %s could talk?", topic), Body: fmt.Sprintf("Imagine %s telling you its own story. Here is what it might say.", topic)},
			{Kind: story.PhaseOrientation, Heading: "Where we begin", Body: fmt.Sprintf("Before we dive in, let's get our bearings on %s.", topic)},
			{Kind: story.PhaseDiscovery, Heading: "Discoveries", Body: discoveryBody},
			{Kind: story.PhaseDiscovery, Heading: "Looking closer", Body: fmt.Sprintf("The closer you look at %s, the stranger and more wonderful it gets.", topic)},
			{Kind: story.PhaseWowPanel, Heading: "Big wow", Body: fmt.Sprintf("Here is the part about %s that surprises almost everyone.", topic)},
			{Kind: story.PhaseFactGems, Gems: append([]story.FactGem(nil), gems...)},
			{Kind: story.PhaseMiniQuiz, Quiz: []story.QuizItem{
				{Q: "What did we explore today?", Choices: []string{topic, "Something else entirely"}, Answer: 0},
				{Q: "Where do our fact gems come from?", Choices: []string{"Cited sources", "Guesswork"}, Answer: 0},
			}},
			{Kind: story.PhaseImagine, Prompt: fmt.Sprintf("Close your eyes and imagine you could visit %s for one day. What would you look at first?", topic)},
			{Kind: story.PhaseWrap, KeyTakeaways: []string{takeaway(0), takeaway(1)}},
		},
	}
}

// NormalizeGems rewrites the draft's fact-gems phase so it carries
// exactly the outline's three gems' worth of structure: text back-filled
// by position when absent, source ids back-filled when absent or not in
// the outline's source set. A draft without a fact-gems phase gains one.
func NormalizeGems(draft *story.Draft, outline Outline) {
	valid := make(map[string]bool, len(outline.Sources))
	for _, s := range outline.Sources {
		valid[s.ID] = true
	}
	phase := draft.FindPhase(story.PhaseFactGems)
	if phase == nil {
		draft.Phases = append(draft.Phases, story.Phase{Kind: story.PhaseFactGems})
		phase = &draft.Phases[len(draft.Phases)-1]
	}
	gems := make([]story.FactGem, factGemCount)
	for i := 0; i < factGemCount; i++ {
		var gem story.FactGem
		if i < len(phase.Gems) {
			gem = phase.Gems[i]
		}
		if len(outline.FactGems) > 0 {
			ref := outline.FactGems[i%len(outline.FactGems)]
			if gem.Text == "" {
				gem.Text = ref.Text
			}
			if gem.SourceID == "" || !valid[gem.SourceID] {
				gem.SourceID = ref.SourceID
			}
		}
		gems[i] = gem
	}
	phase.Gems = gems
}
