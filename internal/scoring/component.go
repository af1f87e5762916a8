// Package scoring turns heterogeneous listing signals (ratings, amenities,
// price, external judgments) into comparable 1-10 components and reduces
// them to one final ranked score per listing.
package scoring

import (
	"math"
	"sort"
)

// Component is the universal currency of the scoring engine: every
// dimension, however computed, normalizes into a clamped 1-10 score with a
// human-readable reason.
type Component struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Component names. Algorithmic components are computed deterministically
// here; derived components come from the judgment provider.
const (
	CompGuestFeedback = "guest_feedback"
	CompPractical     = "practical"
	CompValue         = "value"
	CompAmbience      = "ambience"
	CompGroupFit      = "group_fit"
	CompSurroundings  = "surroundings"
	CompWildcard      = "wildcard"
)

// DerivedComponents is the fixed set the judgment provider must return.
var DerivedComponents = []string{CompAmbience, CompGroupFit, CompSurroundings, CompWildcard}

// AllComponents is the fixed contributing set for the final score, in
// report order.
var AllComponents = []string{
	CompGuestFeedback,
	CompPractical,
	CompValue,
	CompAmbience,
	CompGroupFit,
	CompSurroundings,
	CompWildcard,
}

// Enrichment holds every component for one listing plus the final score.
// Final is only defined once all seven components exist; the aggregator
// never emits a partial enrichment.
type Enrichment struct {
	Ref        string               `json:"ref"`
	Components map[string]Component `json:"components"`
	Final      float64              `json:"final"`
}

// Component returns the named component, or a zero value if absent.
func (e *Enrichment) Component(name string) Component {
	return e.Components[name]
}

// SortByFinal orders enrichments by final score descending. The sort is
// stable so ties keep their extraction order.
func SortByFinal(enrichments []Enrichment) {
	sort.SliceStable(enrichments, func(i, j int) bool {
		return enrichments[i].Final > enrichments[j].Final
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
