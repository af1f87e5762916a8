package scoring

import (
	"fmt"

	"github.com/david/stayrank/internal/listing"
)

// Inclusion discounts: bundled bills make the sticker price cheaper than it
// looks, so the effective price used for ranking is reduced accordingly.
const (
	fullInclusionFactor    = 0.85
	partialInclusionFactor = 0.93
)

// Value scores rank into [2,9] rather than the full [1,10]: relative price
// rankings are noisier than direct observations, so the extremes are
// reserved for the components that earn them.
const (
	valueLo = 2.0
	valueHi = 9.0
)

// minTierSize is the smallest comparison tier worth ranking within. Tiers
// below it score the fixed small-tier constant for every member instead of
// stretching one or two data points across the whole range.
const minTierSize = 3

type qualityTier string

const (
	tierPremium qualityTier = "premium"
	tierSolid   qualityTier = "solid"
	tierBasic   qualityTier = "basic"
)

// valueInput pairs a listing with the quality sum of its other six
// components, computed in the aggregator's first pass.
type valueInput struct {
	l       *listing.Listing
	quality float64
}

// valueScores computes the value-for-money component for the whole
// population at once. Listings are partitioned into quality tiers so a
// budget room is never ranked against a villa, and within each tier the
// effective cost per quality point is min-max scaled with the cheapest
// landing best. Listings without usable pricing are excluded from every
// ranking population and fall back to a neutral score.
func valueScores(inputs []valueInput) map[string]Component {
	out := make(map[string]Component, len(inputs))

	tiers := make(map[qualityTier][]valueInput)
	for _, in := range inputs {
		if !in.l.HasPrice() {
			out[in.l.Ref] = Component{
				Score:  Neutral,
				Reason: "No price listed; excluded from value ranking.",
			}
			continue
		}
		t := tierOf(in.quality)
		tiers[t] = append(tiers[t], in)
	}

	for tier, members := range tiers {
		if len(members) < minTierSize {
			for _, in := range members {
				out[in.l.Ref] = Component{
					Score: smallTierScore,
					Reason: fmt.Sprintf("Too few %s-tier peers to rank against; scored independently.%s",
						tier, inclusionNote(in.l)),
				}
			}
			continue
		}

		costs := make([]float64, len(members))
		for i, in := range members {
			costs[i] = costPerQualityPoint(in)
		}
		for i, in := range members {
			score := ScaleLowBest(costs[i], costs, valueLo, valueHi)
			out[in.l.Ref] = Component{
				Score: Clamp(score, 1, 10),
				Reason: fmt.Sprintf("%.2f %s effective per guest-night ranked against %d %s-tier peers.%s",
					effectivePricePerGuest(in.l), in.l.Price.Currency, len(members), tier, inclusionNote(in.l)),
			}
		}
	}

	return out
}

func tierOf(quality float64) qualityTier {
	mean := quality / 6
	switch {
	case mean >= 7.5:
		return tierPremium
	case mean >= 5.5:
		return tierSolid
	default:
		return tierBasic
	}
}

// costPerQualityPoint is the ranked raw value: lower means more quality per
// currency unit. Quality is always >= 6 (six components clamped to >= 1),
// so the division is safe.
func costPerQualityPoint(in valueInput) float64 {
	return effectivePricePerGuest(in.l) / in.quality
}

func effectivePricePerGuest(l *listing.Listing) float64 {
	price := l.PricePerNight() * inclusionFactor(l)
	guests := l.Capacity.Guests
	if guests < 1 {
		guests = 1
	}
	return price / float64(guests)
}

func inclusionFactor(l *listing.Listing) float64 {
	switch {
	case l.AllBillsIncluded():
		return fullInclusionFactor
	case l.SomethingIncluded():
		return partialInclusionFactor
	default:
		return 1
	}
}

func inclusionNote(l *listing.Listing) string {
	switch {
	case l.AllBillsIncluded():
		return " All bills included in the price."
	case l.SomethingIncluded():
		return " Some extras bundled into the price."
	default:
		return ""
	}
}
