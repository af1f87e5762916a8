package scoring

import (
	"fmt"

	"github.com/david/stayrank/internal/listing"
)

// Aggregate computes the full enrichment for a population in two passes.
//
// The value component depends on every other component's score (its quality
// term) and on the population's price distribution, which looks cyclic. It
// is resolved by explicit staging: pass one computes the six non-value
// components for every listing, pass two ranks cost per quality point
// population-wide, and only then is the final mean taken. No lazy or
// recursive evaluation.
//
// derived maps listing ref to that listing's judged components; a listing
// missing any derived component is skipped with an error entry rather than
// partially aggregated.
func Aggregate(listings []*listing.Listing, derived map[string]map[string]Component) ([]Enrichment, []error) {
	var errs []error

	// Pass 1: everything except value.
	inputs := make([]valueInput, 0, len(listings))
	partial := make(map[string]map[string]Component, len(listings))
	for _, l := range listings {
		comps := map[string]Component{
			CompGuestFeedback: GuestFeedback(l),
			CompPractical:     Practical(l),
		}

		judged, ok := derived[l.Ref]
		if !ok {
			errs = append(errs, fmt.Errorf("listing %s: no judgment available", l.Ref))
			continue
		}
		missing := false
		for _, name := range DerivedComponents {
			c, ok := judged[name]
			if !ok {
				errs = append(errs, fmt.Errorf("listing %s: judgment missing component %q", l.Ref, name))
				missing = true
				break
			}
			c.Score = Clamp(c.Score, 1, 10)
			comps[name] = c
		}
		if missing {
			continue
		}

		quality := 0.0
		for _, c := range comps {
			quality += c.Score
		}
		partial[l.Ref] = comps
		inputs = append(inputs, valueInput{l: l, quality: quality})
	}

	// Pass 2: value for money across the population, then the final mean.
	values := valueScores(inputs)

	enrichments := make([]Enrichment, 0, len(inputs))
	for _, in := range inputs {
		comps := partial[in.l.Ref]
		comps[CompValue] = values[in.l.Ref]

		sum := 0.0
		for _, name := range AllComponents {
			sum += comps[name].Score
		}
		final := Clamp(round1(sum/float64(len(AllComponents))), 1, 10)

		enrichments = append(enrichments, Enrichment{
			Ref:        in.l.Ref,
			Components: comps,
			Final:      final,
		})
	}

	return enrichments, errs
}
