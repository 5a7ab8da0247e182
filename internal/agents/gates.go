package agents

import (
	"encoding/json"
	"fmt"

	"github.com/kingrea/curioquest/internal/runlog"
	"github.com/kingrea/curioquest/internal/story"
	"github.com/kingrea/curioquest/plugins"
)

// Decision is a gate's verdict on one candidate draft. A rejecting gate
// sets Notes to a human-readable reason; an accepting gate may return a
// revised draft in place of the input.
type Decision struct {
	OK    bool
	Draft story.Draft
	Notes string
}

// SafetyGate screens drafts for content unsuitable for kids. The
// built-in form is a pass-through; real policy lives in operator hooks
// loaded from the gates directory.
type SafetyGate struct {
	Hooks []plugins.GateHook
	Log   *runlog.Log
}

func (g *SafetyGate) Review(slug string, draft story.Draft) Decision {
	if d, rejected := runHooks(g.Hooks, g.Log, "safety", slug, draft); rejected {
		return d
	}
	return Decision{OK: true, Draft: draft}
}

// VerifierGate checks a draft's factual claims against its citations.
// The built-in form rejects any fact-gem whose source id is not in the
// supplied source set; operator hooks can add deeper checks.
type VerifierGate struct {
	Hooks []plugins.GateHook
	Log   *runlog.Log
}

func (g *VerifierGate) Review(slug string, draft story.Draft, sources []story.Source) Decision {
	known := make(map[string]bool, len(sources))
	for _, s := range sources {
		known[s.ID] = true
	}
	if phase := draft.FindPhase(story.PhaseFactGems); phase != nil {
		for i, gem := range phase.Gems {
			if !known[gem.SourceID] {
				return Decision{Draft: draft, Notes: fmt.Sprintf("fact-gem %d cites unknown source %q", i, gem.SourceID)}
			}
		}
	}
	if d, rejected := runHooks(g.Hooks, g.Log, "verifier", slug, draft); rejected {
		return d
	}
	return Decision{OK: true, Draft: draft}
}

// runHooks feeds the draft, as a generic document, through each hook in
// order. The first rejection wins; hooks never revise.
func runHooks(hooks []plugins.GateHook, log *runlog.Log, gate, slug string, draft story.Draft) (Decision, bool) {
	if len(hooks) == 0 {
		return Decision{}, false
	}
	doc := draftDoc(draft)
	for _, hook := range hooks {
		ok, reason := hook.Review(doc)
		if !ok {
			log.Warnf(slug, "%s: hook %s rejected draft: %s", gate, hook.Name, reason)
			return Decision{Draft: draft, Notes: fmt.Sprintf("%s/%s: %s", gate, hook.Name, reason)}, true
		}
	}
	return Decision{}, false
}

func draftDoc(draft story.Draft) map[string]any {
	raw, err := json.Marshal(draft)
	if err != nil {
		return map[string]any{"title": draft.Title}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]any{"title": draft.Title}
	}
	return doc
}
