// Package selection tracks the user-chosen sentiment filter and derives
// the filtered breakdown for it on demand.
package selection

import (
	"math"

	"github.com/commentpulse/commentpulse/pkg/comments"
)

// MaxExamples caps the surfaced examples per strength class. "Top" means
// first-encountered in original record order, not most salient.
const MaxExamples = 5

// Breakdown is the derived view for one selected sentiment.
type Breakdown struct {
	Sentiment comments.Sentiment `json:"sentiment"`

	StrongCount int     `json:"strongCount"`
	WeakCount   int     `json:"weakCount"`
	StrongPct   float64 `json:"strongPct"`
	WeakPct     float64 `json:"weakPct"`

	StrongExamples []comments.Record `json:"strongExamples"`
	WeakExamples   []comments.Record `json:"weakExamples"`
}

// State holds at most one active sentiment selection over a record set.
// The breakdown is recomputed in full on every change.
type State struct {
	records []comments.Record
	active  comments.Sentiment
}

// NewState creates a selection state over records with no active filter.
func NewState(records []comments.Record) *State {
	return &State{records: records}
}

// Active returns the current selection, or empty when none is active.
func (s *State) Active() comments.Sentiment {
	return s.active
}

// Clear drops the active selection.
func (s *State) Clear() {
	s.active = ""
}

// Select activates a sentiment filter and returns its recomputed breakdown.
func (s *State) Select(sentiment comments.Sentiment) Breakdown {
	s.active = sentiment

	var breakdown Breakdown
	breakdown.Sentiment = sentiment

	for _, r := range s.records {
		if r.Sentiment != sentiment {
			continue
		}
		switch r.Strength {
		case comments.StrengthStrong:
			breakdown.StrongCount++
			if len(breakdown.StrongExamples) < MaxExamples {
				breakdown.StrongExamples = append(breakdown.StrongExamples, r)
			}
		case comments.StrengthWeak:
			breakdown.WeakCount++
			if len(breakdown.WeakExamples) < MaxExamples {
				breakdown.WeakExamples = append(breakdown.WeakExamples, r)
			}
		}
	}

	// max(1, total) guards the divide when nothing matched.
	total := breakdown.StrongCount + breakdown.WeakCount
	if total < 1 {
		total = 1
	}
	breakdown.StrongPct = percentage(breakdown.StrongCount, total)
	breakdown.WeakPct = percentage(breakdown.WeakCount, total)

	return breakdown
}

// percentage returns 100*count/total rounded to one decimal place.
func percentage(count, total int) float64 {
	return math.Round(float64(count)/float64(total)*1000) / 10
}
