package listing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Listing is the structured description of one property as produced by the
// extractor. It is treated as read-only once built; scoring and judgment
// never mutate it.
type Listing struct {
	Ref         string     `json:"ref"` // stable source reference code
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"` // sanitized plain text
	Location    Location   `json:"location"`
	Capacity    Capacity   `json:"capacity"`
	Price       *Price     `json:"price,omitempty"` // nil when the source shows no price
	Amenities   AmenitySet `json:"amenities"`
	Included    []string   `json:"included"` // items bundled into the price
	Rating      Rating     `json:"rating"`
	Reviews     []Review   `json:"reviews"`
}

type Location struct {
	Lat          float64 `json:"lat,omitempty"`
	Lng          float64 `json:"lng,omitempty"`
	Municipality string  `json:"municipality"`
	Region       string  `json:"region"`
}

type Capacity struct {
	Guests   int     `json:"guests"`
	Bedrooms int     `json:"bedrooms"`
	AreaM2   float64 `json:"area_m2"` // 0 = unknown
}

// Price is always normalized to a per-night amount upstream.
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Unit     string          `json:"unit"` // "night"
}

// AmenitySet groups amenity text by the categories the source uses.
type AmenitySet struct {
	Indoor   []string `json:"indoor"`
	Outdoor  []string `json:"outdoor"`
	Services []string `json:"services"`
}

// All returns every amenity string across categories.
func (a AmenitySet) All() []string {
	out := make([]string, 0, len(a.Indoor)+len(a.Outdoor)+len(a.Services))
	out = append(out, a.Indoor...)
	out = append(out, a.Outdoor...)
	out = append(out, a.Services...)
	return out
}

// Rating is the source's aggregate rating on its native 0-5 scale.
type Rating struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Review criteria keys used by the scoring engine.
const (
	CriterionComfort     = "comfort"
	CriterionCleanliness = "cleanliness"
)

type Review struct {
	Rating     float64            `json:"rating"` // 0-5
	Criteria   map[string]float64 `json:"criteria,omitempty"`
	Text       string             `json:"text"`
	OwnerReply string             `json:"owner_reply,omitempty"`
}

// HasPrice reports whether the listing carries usable per-night pricing.
func (l *Listing) HasPrice() bool {
	return l.Price != nil && l.Price.Amount.IsPositive()
}

// PricePerNight returns the per-night amount as a float for ratio math,
// or 0 when the listing has no usable price.
func (l *Listing) PricePerNight() float64 {
	if !l.HasPrice() {
		return 0
	}
	return l.Price.Amount.InexactFloat64()
}

// AllBillsIncluded reports whether the bundled items cover both water and
// electricity, or carry an explicit "all bills" marker.
func (l *Listing) AllBillsIncluded() bool {
	joined := strings.ToLower(strings.Join(l.Included, " | "))
	if joined == "" {
		return false
	}
	if strings.Contains(joined, "all bills") || strings.Contains(joined, "todos los gastos") {
		return true
	}
	needed := []string{"water", "electricity"}
	for _, n := range needed {
		if !strings.Contains(joined, n) {
			return false
		}
	}
	return true
}

// SomethingIncluded reports whether at least one item is bundled into the price.
func (l *Listing) SomethingIncluded() bool {
	for _, item := range l.Included {
		if strings.TrimSpace(item) != "" {
			return true
		}
	}
	return false
}
