package scoring

import (
	"fmt"

	"github.com/david/stayrank/internal/listing"
)

const comfortCleanBonus = 0.5

// GuestFeedback scores social proof: the aggregate guest rating rescaled to
// 1-10 and damped by how many reviews back it. Listings whose reviews rate
// both comfort and cleanliness at 4.5/5 or better earn a small flat bonus.
func GuestFeedback(l *listing.Listing) Component {
	if l.Rating.Count == 0 {
		// Absence of reviews is a valid state, not an error: score neutral
		// and say so instead of running the formula on an empty sample.
		return Component{
			Score:  Neutral,
			Reason: "No reviews yet; neutral score until guests weigh in.",
		}
	}

	base := l.Rating.Value / 5 * 10
	score := Damp(base, l.Rating.Count, Neutral)

	comfort, clean, sampled := criteriaAverages(l.Reviews)
	bonusNote := ""
	if sampled > 0 && comfort >= 4.5 && clean >= 4.5 {
		score += comfortCleanBonus
		bonusNote = fmt.Sprintf(" Comfort %.1f and cleanliness %.1f both rate excellent (+%.1f).", comfort, clean, comfortCleanBonus)
	}

	return Component{
		Score: Clamp(score, 1, 10),
		Reason: fmt.Sprintf("Rated %.1f/5 across %d reviews.%s",
			l.Rating.Value, l.Rating.Count, bonusNote),
	}
}

// criteriaAverages computes comfort and cleanliness means over the reviews
// that carry both sub-ratings; reviews missing either criterion don't count
// toward the sample.
func criteriaAverages(reviews []listing.Review) (comfort, clean float64, sampled int) {
	var comfortSum, cleanSum float64
	for _, r := range reviews {
		c, okC := r.Criteria[listing.CriterionComfort]
		cl, okCl := r.Criteria[listing.CriterionCleanliness]
		if !okC || !okCl {
			continue
		}
		comfortSum += c
		cleanSum += cl
		sampled++
	}
	if sampled == 0 {
		return 0, 0, 0
	}
	return comfortSum / float64(sampled), cleanSum / float64(sampled), sampled
}
