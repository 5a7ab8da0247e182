package story

import (
	"fmt"
	"net/url"
	"strings"
)

// Structural bounds the packager enforces before a document may leave the
// pipeline. These mirror what the reader-facing site assumes at render time.
const (
	factGemCount    = 3
	quizItemsMin    = 2
	quizItemsMax    = 3
	quizChoicesMin  = 2
	wrapTakeawayMin = 2
	wrapTakeawayMax = 5
	phasesMin       = 6
)

// ValidationError aggregates every structural problem found in a document
// so a reject file carries the full picture, not just the first issue.
type ValidationError struct {
	Slug   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("story: %s failed validation: %s", e.Slug, strings.Join(e.Issues, "; "))
}

// Validate checks a packaged document against the content schema. A nil
// return means the document is safe to stage or publish.
func Validate(s *Story) error {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if s.Slug == "" {
		add("slug is empty")
	}
	if s.Title == "" {
		add("title is empty")
	}
	if s.EstReadMin < 1 {
		add("estReadMin must be positive, got %d", s.EstReadMin)
	}
	sourceIDs := make(map[string]bool, len(s.Sources))
	for i, src := range s.Sources {
		if src.ID == "" {
			add("sources[%d] missing id", i)
			continue
		}
		if sourceIDs[src.ID] {
			add("sources[%d] duplicates id %q", i, src.ID)
		}
		sourceIDs[src.ID] = true
		if u, err := url.Parse(src.URL); err != nil || !u.IsAbs() {
			add("sources[%d] url %q is not absolute", i, src.URL)
		}
	}

	if len(s.Phases) < phasesMin {
		add("want at least %d phases, got %d", phasesMin, len(s.Phases))
	}
	for i, p := range s.Phases {
		switch p.Kind {
		case PhaseHook, PhaseOrientation, PhaseDiscovery, PhaseWowPanel:
			// Heading and body may be short but must be present.
			if p.Heading == "" {
				add("phases[%d] (%s) missing heading", i, p.Kind)
			}
			if p.Body == "" {
				add("phases[%d] (%s) missing body", i, p.Kind)
			}
		case PhaseFactGems:
			if len(p.Gems) != factGemCount {
				add("phases[%d] fact-gems wants exactly %d items, got %d", i, factGemCount, len(p.Gems))
			}
			for j, gem := range p.Gems {
				if gem.Text == "" {
					add("phases[%d] fact-gems[%d] has empty text", i, j)
				}
				if gem.SourceID == "" {
					add("phases[%d] fact-gems[%d] has empty sourceId", i, j)
				} else if !sourceIDs[gem.SourceID] {
					add("phases[%d] fact-gems[%d] cites unknown source %q", i, j, gem.SourceID)
				}
			}
		case PhaseMiniQuiz:
			if len(p.Quiz) < quizItemsMin || len(p.Quiz) > quizItemsMax {
				add("phases[%d] mini-quiz wants %d-%d items, got %d", i, quizItemsMin, quizItemsMax, len(p.Quiz))
			}
			for j, q := range p.Quiz {
				if q.Q == "" {
					add("phases[%d] mini-quiz[%d] has empty question", i, j)
				}
				if len(q.Choices) < quizChoicesMin {
					add("phases[%d] mini-quiz[%d] wants at least %d choices, got %d", i, j, quizChoicesMin, len(q.Choices))
				}
				if q.Answer < 0 || q.Answer >= len(q.Choices) {
					add("phases[%d] mini-quiz[%d] answer %d out of range for %d choices", i, j, q.Answer, len(q.Choices))
				}
			}
		case PhaseImagine:
			if p.Prompt == "" {
				add("phases[%d] imagine missing prompt", i)
			}
		case PhaseWrap:
			if len(p.KeyTakeaways) < wrapTakeawayMin || len(p.KeyTakeaways) > wrapTakeawayMax {
				add("phases[%d] wrap wants %d-%d takeaways, got %d", i, wrapTakeawayMin, wrapTakeawayMax, len(p.KeyTakeaways))
			}
		default:
			add("phases[%d] has unknown kind %q", i, p.Kind)
		}
	}

	for _, required := range []PhaseKind{PhaseHook, PhaseFactGems, PhaseMiniQuiz, PhaseWrap} {
		if !hasPhase(s.Phases, required) {
			add("missing required phase %q", required)
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Slug: s.Slug, Issues: issues}
	}
	return nil
}

func hasPhase(phases []Phase, kind PhaseKind) bool {
	for _, p := range phases {
		if p.Kind == kind {
			return true
		}
	}
	return false
}
