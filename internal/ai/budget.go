// Package ai owns every contact point with paid model services: the
// budget guard that pre-approves spend, the backoff-wrapped OpenAI
// client, and the per-day call log.
package ai

import "sync"

// Pricing assumptions for the pre-approval estimate. These are tuned to
// overestimate slightly so the guard bounds worst-case spend before a
// call is issued; it never reconciles against actual provider billing.
const (
	textInPerMillionTok  = 0.15
	textOutPerMillionTok = 0.60
	charsPerToken        = 4
	imageEachUSD         = 0.04
)

// EventKind labels a ledger entry.
type EventKind string

const (
	EventText  EventKind = "text"
	EventImage EventKind = "image"
)

// Event records one approved operation.
type Event struct {
	Kind     EventKind `json:"kind"`
	InChars  int       `json:"inChars,omitempty"`
	OutChars int       `json:"outChars,omitempty"`
	Images   int       `json:"images,omitempty"`
	CostUSD  float64   `json:"costUSD"`
	Note     string    `json:"note,omitempty"`
}

// Budget is the process-scoped spend ledger. Approval checks and commits
// happen under one lock so concurrent workers cannot both succeed against
// the same remaining headroom. The ledger is never persisted.
type Budget struct {
	mu     sync.Mutex
	capUSD float64
	spent  float64
	events []Event
}

// NewBudget creates a ledger with the given cap in USD. Negative caps are
// treated as zero (nothing paid will ever be approved).
func NewBudget(capUSD float64) *Budget {
	if capUSD < 0 {
		capUSD = 0
	}
	return &Budget{capUSD: capUSD}
}

// EstimateText prices a text call from input/output character counts,
// linear in estimated tokens at distinct input and output rates.
func (b *Budget) EstimateText(inChars, outChars int) float64 {
	inTok := float64(inChars) / charsPerToken
	outTok := float64(outChars) / charsPerToken
	return inTok/1e6*textInPerMillionTok + outTok/1e6*textOutPerMillionTok
}

// EstimateImages prices n image generations at a flat per-image rate.
func (b *Budget) EstimateImages(n int) float64 {
	return float64(n) * imageEachUSD
}

// ApproveText commits the estimated cost of a text call if it fits under
// the cap. A denial leaves the ledger untouched.
func (b *Budget) ApproveText(inChars, outChars int, note string) bool {
	cost := b.EstimateText(inChars, outChars)
	return b.commit(Event{Kind: EventText, InChars: inChars, OutChars: outChars, CostUSD: cost, Note: note})
}

// ApproveImages commits the estimated cost of n image renders if it fits
// under the cap.
func (b *Budget) ApproveImages(n int, note string) bool {
	cost := b.EstimateImages(n)
	return b.commit(Event{Kind: EventImage, Images: n, CostUSD: cost, Note: note})
}

func (b *Budget) commit(ev Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.spent+ev.CostUSD > b.capUSD {
		return false
	}
	b.spent += ev.CostUSD
	b.events = append(b.events, ev)
	return true
}

// SpentUSD reports the committed estimate so far.
func (b *Budget) SpentUSD() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}

// RemainingUSD reports headroom under the cap, never negative.
func (b *Budget) RemainingUSD() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.capUSD - b.spent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Events returns a copy of the approved-operation log in commit order.
func (b *Budget) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}
