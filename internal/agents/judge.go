package agents

import "github.com/kingrea/curioquest/internal/story"

// Verdict reports which surviving draft was chosen and how every
// candidate scored, so a batch log always shows the field even when the
// scoring is trivial.
type Verdict struct {
	ChosenIndex int
	Scores      []float64
}

// Judge picks the final draft from the surviving candidates. Scoring is
// uniform for now; the verdict shape stays fixed so smarter scoring can
// slot in without touching callers.
func Judge(slug string, drafts []story.Draft) Verdict {
	scores := make([]float64, len(drafts))
	for i := range scores {
		scores[i] = 1.0
	}
	return Verdict{ChosenIndex: 0, Scores: scores}
}
