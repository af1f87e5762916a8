package listing

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func digestFixture() *Listing {
	return &Listing{
		Ref:         "AST-104",
		Title:       "Stone farmhouse with orchard",
		URL:         "https://www.ruralstays.example/listing/AST-104",
		Summary:     "Restored farmhouse near the Picos.",
		Description: "Thick stone walls, a wood stove and an orchard of sixty apple trees.",
		Location:    Location{Municipality: "Cangas de Onís", Region: "Asturias"},
		Capacity:    Capacity{Guests: 6, Bedrooms: 3, AreaM2: 140},
		Amenities: AmenitySet{
			Indoor:  []string{"WiFi", "Wood stove"},
			Outdoor: []string{"Orchard", "Covered porch"},
		},
		Included: []string{"Firewood"},
		Rating:   Rating{Value: 4.7, Count: 23},
		Reviews: []Review{
			{Rating: 5, Text: "Wonderful silence at night."},
			{Rating: 4.5, Text: "The kitchen had everything we needed."},
		},
	}
}

func TestDigestCarriesScoringSignals(t *testing.T) {
	d := Digest(digestFixture())

	wantFragments := []string{
		"Stone farmhouse with orchard",
		"Cangas de Onís, Asturias",
		"6 guests, 3 bedrooms, 140 m2",
		"WiFi, Wood stove",
		"Orchard, Covered porch",
		"Included in price: Firewood",
		"4.7/5 from 23 reviews",
		"Wonderful silence at night.",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(d, frag) {
			t.Errorf("digest missing %q\n%s", frag, d)
		}
	}
}

func TestDigestOmitsURLs(t *testing.T) {
	d := Digest(digestFixture())
	if strings.Contains(d, "http") || strings.Contains(d, "ruralstays.example") {
		t.Errorf("digest must not carry source URLs:\n%s", d)
	}
}

func TestDigestNoReviews(t *testing.T) {
	l := digestFixture()
	l.Rating = Rating{}
	l.Reviews = nil

	d := Digest(l)
	if !strings.Contains(d, "no reviews yet") {
		t.Errorf("digest should state the missing reviews:\n%s", d)
	}
}

func TestDigestCapsReviews(t *testing.T) {
	l := digestFixture()
	l.Reviews = nil
	for i := 0; i < 30; i++ {
		l.Reviews = append(l.Reviews, Review{Rating: 4, Text: fmt.Sprintf("review number %d", i)})
	}

	d := Digest(l)
	if got := strings.Count(d, "Review "); got != maxDigestReviews {
		t.Errorf("digest carries %d reviews, want %d", got, maxDigestReviews)
	}
	if strings.Contains(d, fmt.Sprintf("review number %d", maxDigestReviews)) {
		t.Error("digest includes a review beyond the cap")
	}
}

func TestDigestTruncatesLongReviewText(t *testing.T) {
	l := digestFixture()
	l.Reviews = []Review{{Rating: 5, Text: strings.Repeat("very long review ", 100)}}

	d := Digest(l)
	for _, line := range strings.Split(d, "\n") {
		if strings.HasPrefix(line, "Review 1") && len(line) > maxReviewTextLength+40 {
			t.Errorf("review line length %d exceeds the cap", len(line))
		}
	}
}

func TestTruncateCutsOnRuneBoundary(t *testing.T) {
	s := strings.Repeat("señorío", 100)

	for max := 4; max < 30; max++ {
		got := truncate(s, max)
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%d) produced invalid UTF-8: %q", max, got)
		}
		if len(got) > max {
			t.Fatalf("truncate(%d) returned %d bytes", max, len(got))
		}
	}

	t.Run("digest review text stays valid", func(t *testing.T) {
		l := digestFixture()
		l.Reviews = []Review{{Rating: 5, Text: strings.Repeat("montaña ", 80)}}

		if d := Digest(l); !utf8.ValidString(d) {
			t.Error("digest contains invalid UTF-8 after truncation")
		}
	})
}

func TestDigestIsDeterministic(t *testing.T) {
	l := digestFixture()
	if Digest(l) != Digest(l) {
		t.Error("same listing must digest identically")
	}
}
