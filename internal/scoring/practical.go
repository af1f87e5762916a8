package scoring

import (
	"fmt"
	"strings"

	"github.com/david/stayrank/internal/listing"
)

// checklistItem is one practical amenity predicate. Keywords are matched
// case-insensitively as substrings of the listing's categorized amenity
// text, so "WiFi included" and "wifi gratis" both satisfy the wifi item.
type checklistItem struct {
	Label    string
	Keywords []string
}

// practicalChecklist is the fixed list of amenities a working stay depends
// on. Each item contributes equally to the base score.
var practicalChecklist = []checklistItem{
	{"wifi", []string{"wifi", "wi-fi", "wireless internet"}},
	{"washing machine", []string{"washing machine", "washer", "lavadora"}},
	{"dishwasher", []string{"dishwasher", "lavavajillas"}},
	{"heating or AC", []string{"heating", "air conditioning", "a/c", "climate control", "calefac"}},
	{"parking", []string{"parking", "garage", "garaje"}},
	{"oven", []string{"oven", "horno"}},
	{"outdoor space", []string{"terrace", "balcony", "garden", "patio", "terraza"}},
	{"workspace", []string{"workspace", "desk", "work area", "escritorio"}},
}

// Area-per-guest bonus thresholds, in m2 per guest.
const (
	spaciousM2PerGuest = 20.0
	adequateM2PerGuest = 12.0
)

// Practical scores the amenity checklist: hit rate over the fixed predicate
// list, plus a floor-area-per-guest bonus. The reason surfaces both what
// the listing has and what it lacks.
func Practical(l *listing.Listing) Component {
	haystack := strings.ToLower(strings.Join(l.Amenities.All(), " | "))

	var matched, missing []string
	for _, item := range practicalChecklist {
		if matchesAny(haystack, item.Keywords) {
			matched = append(matched, item.Label)
		} else {
			missing = append(missing, item.Label)
		}
	}

	score := float64(len(matched)) / float64(len(practicalChecklist)) * 10

	spaceNote := ""
	if l.Capacity.Guests > 0 && l.Capacity.AreaM2 > 0 {
		perGuest := l.Capacity.AreaM2 / float64(l.Capacity.Guests)
		switch {
		case perGuest >= spaciousM2PerGuest:
			score += 1.0
			spaceNote = fmt.Sprintf(" Spacious at %.0f m2 per guest (+1.0).", perGuest)
		case perGuest >= adequateM2PerGuest:
			score += 0.5
			spaceNote = fmt.Sprintf(" Adequate space at %.0f m2 per guest (+0.5).", perGuest)
		}
	}

	reason := fmt.Sprintf("Has %d/%d practical amenities", len(matched), len(practicalChecklist))
	if len(matched) > 0 {
		reason += ": " + strings.Join(matched, ", ")
	}
	reason += "."
	if len(missing) > 0 {
		reason += " Missing: " + strings.Join(missing, ", ") + "."
	}
	reason += spaceNote

	return Component{Score: Clamp(score, 1, 10), Reason: reason}
}

func matchesAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
