package listing

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxDigestReviews    = 12
	maxReviewTextLength = 400
)

// Digest condenses a listing into the plain-text form sent to the judgment
// provider. It carries title, summary, location, capacity, categorized
// amenities, included items and review text/ratings. URLs and photo
// references are deliberately left out: the judge scores the property, not
// the source page.
func Digest(l *Listing) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", l.Title)
	if l.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", l.Summary)
	}
	if l.Description != "" && l.Description != l.Summary {
		fmt.Fprintf(&b, "Description: %s\n", truncate(l.Description, 2000))
	}
	fmt.Fprintf(&b, "Location: %s", l.Location.Municipality)
	if l.Location.Region != "" {
		fmt.Fprintf(&b, ", %s", l.Location.Region)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Capacity: %d guests, %d bedrooms", l.Capacity.Guests, l.Capacity.Bedrooms)
	if l.Capacity.AreaM2 > 0 {
		fmt.Fprintf(&b, ", %.0f m2", l.Capacity.AreaM2)
	}
	b.WriteString("\n")

	writeList(&b, "Indoor amenities", l.Amenities.Indoor)
	writeList(&b, "Outdoor amenities", l.Amenities.Outdoor)
	writeList(&b, "Services", l.Amenities.Services)
	writeList(&b, "Included in price", l.Included)

	if l.Rating.Count > 0 {
		fmt.Fprintf(&b, "Overall rating: %.1f/5 from %d reviews\n", l.Rating.Value, l.Rating.Count)
	} else {
		b.WriteString("Overall rating: no reviews yet\n")
	}

	reviews := l.Reviews
	if len(reviews) > maxDigestReviews {
		reviews = reviews[:maxDigestReviews]
	}
	for i, r := range reviews {
		text := truncate(strings.TrimSpace(r.Text), maxReviewTextLength)
		if text == "" {
			fmt.Fprintf(&b, "Review %d (%.1f/5)\n", i+1, r.Rating)
			continue
		}
		fmt.Fprintf(&b, "Review %d (%.1f/5): %s\n", i+1, r.Rating, text)
	}

	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(cleaned, ", "))
}

// truncate cuts s to at most maxLen bytes, backing up to a rune boundary so
// the result is always valid UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	suffix := ""
	if maxLen > 3 {
		cut = maxLen - 3
		suffix = "..."
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
