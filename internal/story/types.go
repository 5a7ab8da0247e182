// Package story defines the narrative document model shared by every
// pipeline stage: the closed set of phase variants, candidate drafts,
// and the packaged story document that ships to readers.
package story

import (
	"encoding/json"
	"fmt"
)

// PhaseKind tags one variant of narrative content. The set is closed:
// renderers and the schema validator switch over it exhaustively, and an
// unknown tag is a validation error rather than a silent passthrough.
type PhaseKind string

const (
	PhaseHook        PhaseKind = "hook"
	PhaseOrientation PhaseKind = "orientation"
	PhaseDiscovery   PhaseKind = "discovery"
	PhaseWowPanel    PhaseKind = "wow-panel"
	PhaseFactGems    PhaseKind = "fact-gems"
	PhaseMiniQuiz    PhaseKind = "mini-quiz"
	PhaseImagine     PhaseKind = "imagine"
	PhaseWrap        PhaseKind = "wrap"
)

// NarrativeKinds lists the prose-bearing phase kinds in reading order.
// The readability audit walks exactly these.
var NarrativeKinds = []PhaseKind{
	PhaseHook, PhaseOrientation, PhaseDiscovery, PhaseWowPanel, PhaseWrap,
}

// FactGem is a short cited factual sentence. SourceID must name an entry
// in the surrounding document's source list.
type FactGem struct {
	SourceID string `json:"sourceId"`
	Text     string `json:"text"`
}

// QuizItem is one multiple-choice question. Answer indexes into Choices.
type QuizItem struct {
	Q       string   `json:"q"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

// Phase is the tagged union of narrative variants. Kind selects which
// payload fields are meaningful; the zero value of every other payload
// field is ignored on the wire.
type Phase struct {
	Kind PhaseKind

	// hook, orientation, discovery, wow-panel
	Heading string
	Body    string

	// fact-gems
	Gems []FactGem

	// mini-quiz
	Quiz []QuizItem

	// imagine
	Prompt string

	// wrap
	KeyTakeaways []string
}

type narrativeWire struct {
	Type    PhaseKind `json:"type"`
	Heading string    `json:"heading"`
	Body    string    `json:"body"`
}

type gemsWire struct {
	Type  PhaseKind `json:"type"`
	Items []FactGem `json:"items"`
}

type quizWire struct {
	Type  PhaseKind  `json:"type"`
	Items []QuizItem `json:"items"`
}

type imagineWire struct {
	Type   PhaseKind `json:"type"`
	Prompt string    `json:"prompt"`
}

type wrapWire struct {
	Type         PhaseKind `json:"type"`
	KeyTakeaways []string  `json:"keyTakeaways"`
}

// MarshalJSON emits only the fields that belong to the tagged variant.
func (p Phase) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PhaseHook, PhaseOrientation, PhaseDiscovery, PhaseWowPanel:
		return json.Marshal(narrativeWire{Type: p.Kind, Heading: p.Heading, Body: p.Body})
	case PhaseFactGems:
		items := p.Gems
		if items == nil {
			items = []FactGem{}
		}
		return json.Marshal(gemsWire{Type: p.Kind, Items: items})
	case PhaseMiniQuiz:
		items := p.Quiz
		if items == nil {
			items = []QuizItem{}
		}
		return json.Marshal(quizWire{Type: p.Kind, Items: items})
	case PhaseImagine:
		return json.Marshal(imagineWire{Type: p.Kind, Prompt: p.Prompt})
	case PhaseWrap:
		takeaways := p.KeyTakeaways
		if takeaways == nil {
			takeaways = []string{}
		}
		return json.Marshal(wrapWire{Type: p.Kind, KeyTakeaways: takeaways})
	default:
		return nil, fmt.Errorf("story: cannot marshal unknown phase kind %q", p.Kind)
	}
}

// UnmarshalJSON reads the discriminator first and then decodes the
// matching variant payload. Unknown tags are preserved so the schema
// validator can report them instead of the decoder erroring out.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type PhaseKind `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("story: phase discriminator: %w", err)
	}
	switch tag.Type {
	case PhaseHook, PhaseOrientation, PhaseDiscovery, PhaseWowPanel:
		var w narrativeWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*p = Phase{Kind: w.Type, Heading: w.Heading, Body: w.Body}
	case PhaseFactGems:
		var w gemsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*p = Phase{Kind: w.Type, Gems: w.Items}
	case PhaseMiniQuiz:
		var w quizWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*p = Phase{Kind: w.Type, Quiz: w.Items}
	case PhaseImagine:
		var w imagineWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*p = Phase{Kind: w.Type, Prompt: w.Prompt}
	case PhaseWrap:
		var w wrapWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*p = Phase{Kind: w.Type, KeyTakeaways: w.KeyTakeaways}
	default:
		*p = Phase{Kind: tag.Type}
	}
	return nil
}

// Source is one external reference cited by fact-gems.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ImageRef points at a rendered or stock raster asset.
type ImageRef struct {
	File string `json:"file"`
	Alt  string `json:"alt"`
}

// Draft is one candidate story before safety, verification, and judging.
// Agents never mutate a draft in place; they return a replacement.
type Draft struct {
	Title  string  `json:"title"`
	Phases []Phase `json:"phases"`
}

// FindPhase returns the first phase of the given kind, or nil.
func (d *Draft) FindPhase(kind PhaseKind) *Phase {
	for i := range d.Phases {
		if d.Phases[i].Kind == kind {
			return &d.Phases[i]
		}
	}
	return nil
}

// Clone deep-copies the draft so gates can revise freely.
func (d Draft) Clone() Draft {
	out := Draft{Title: d.Title, Phases: make([]Phase, len(d.Phases))}
	for i, p := range d.Phases {
		cp := p
		cp.Gems = append([]FactGem(nil), p.Gems...)
		cp.KeyTakeaways = append([]string(nil), p.KeyTakeaways...)
		cp.Quiz = make([]QuizItem, len(p.Quiz))
		for j, q := range p.Quiz {
			q.Choices = append([]string(nil), q.Choices...)
			cp.Quiz[j] = q
		}
		out.Phases[i] = cp
	}
	return out
}

// Story is the packaged, schema-validated document persisted to the
// review staging area or the published content set.
type Story struct {
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	AgeBand       string     `json:"ageBand"`
	ReadingLevel  string     `json:"readingLevel"`
	EstReadMin    int        `json:"estReadMin"`
	HeroImage     *ImageRef  `json:"heroImage,omitempty"`
	SupportImages []ImageRef `json:"supportImages"`
	Sources       []Source   `json:"sources"`
	Phases        []Phase    `json:"phases"`
	Badges        []string   `json:"badges"`
	CrossLinks    []string   `json:"crossLinks"`
}

// TopicEntry is one row of the published topic index.
type TopicEntry struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Badges    []string `json:"badges"`
}
