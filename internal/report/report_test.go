package report

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/david/stayrank/internal/listing"
	"github.com/david/stayrank/internal/pipeline"
	"github.com/david/stayrank/internal/scoring"
	"github.com/shopspring/decimal"
)

func reportFixture() (*listing.Listing, *scoring.Enrichment) {
	l := &listing.Listing{
		Ref:      "AST-104",
		Title:    "Stone farmhouse with orchard",
		Location: listing.Location{Municipality: "Cangas de Onís"},
		Price:    &listing.Price{Amount: decimal.NewFromInt(95), Currency: "EUR", Unit: "night"},
	}
	e := &scoring.Enrichment{
		Ref:        "AST-104",
		Components: map[string]scoring.Component{},
		Final:      7.4,
	}
	for i, name := range scoring.AllComponents {
		e.Components[name] = scoring.Component{
			Score:  float64(i + 3),
			Reason: "reason for " + name,
		}
	}
	return l, e
}

func TestRenderRanking(t *testing.T) {
	l, e := reportFixture()
	result := &pipeline.Result{
		Listings:    []*listing.Listing{l},
		Enrichments: []scoring.Enrichment{*e},
	}

	var buf strings.Builder
	RenderRanking(&buf, result)
	out := buf.String()

	for _, frag := range []string{"AST-104", "Stone farmhouse with orchard", "7.4", "95 EUR"} {
		if !strings.Contains(out, frag) {
			t.Errorf("ranking output missing %q:\n%s", frag, out)
		}
	}
}

func TestRenderDetail(t *testing.T) {
	l, e := reportFixture()

	var buf strings.Builder
	RenderDetail(&buf, l, e)
	out := buf.String()

	if !strings.Contains(out, "Cangas de Onís") || !strings.Contains(out, "7.4") {
		t.Errorf("detail output missing the header:\n%s", out)
	}
	for _, name := range scoring.AllComponents {
		if !strings.Contains(out, name) {
			t.Errorf("detail output missing component %q", name)
		}
		if !strings.Contains(out, "reason for "+name) {
			t.Errorf("detail output missing the reason for %q", name)
		}
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	title := strings.Repeat("casería ñ", 12)

	for max := 4; max < 40; max++ {
		got := truncate(title, max)
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%d) produced invalid UTF-8: %q", max, got)
		}
		if len(got) > max {
			t.Fatalf("truncate(%d) returned %d bytes", max, len(got))
		}
	}
}
