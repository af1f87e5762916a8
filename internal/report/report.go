// Package report renders the ranked pipeline output for the terminal.
package report

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/david/stayrank/internal/listing"
	"github.com/david/stayrank/internal/pipeline"
	"github.com/david/stayrank/internal/scoring"
	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderRanking prints one row per scored listing, best first.
func RenderRanking(w io.Writer, result *pipeline.Result) {
	byRef := make(map[string]*listing.Listing, len(result.Listings))
	for _, l := range result.Listings {
		byRef[l.Ref] = l
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := table.Row{"#", "Ref", "Title"}
	for _, name := range scoring.AllComponents {
		header = append(header, shortLabel(name))
	}
	header = append(header, "Final", "Price/night")
	t.AppendHeader(header)

	for i, e := range result.Enrichments {
		l := byRef[e.Ref]
		if l == nil {
			continue
		}

		row := table.Row{i + 1, e.Ref, truncate(l.Title, 36)}
		for _, name := range scoring.AllComponents {
			row = append(row, fmt.Sprintf("%.1f", e.Component(name).Score))
		}
		row = append(row, fmt.Sprintf("%.1f", e.Final), priceLabel(l))
		t.AppendRow(row)
	}

	t.Render()
}

// RenderDetail prints one listing's full scorecard with reasons.
func RenderDetail(w io.Writer, l *listing.Listing, e *scoring.Enrichment) {
	fmt.Fprintf(w, "%s — %s (%s)\n", l.Ref, l.Title, l.Location.Municipality)
	fmt.Fprintf(w, "Final score: %.1f\n\n", e.Final)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Component", "Score", "Reason"})
	for _, name := range scoring.AllComponents {
		c := e.Component(name)
		t.AppendRow(table.Row{name, fmt.Sprintf("%.1f", c.Score), c.Reason})
	}
	t.Render()
}

func shortLabel(component string) string {
	switch component {
	case scoring.CompGuestFeedback:
		return "Guests"
	case scoring.CompPractical:
		return "Practical"
	case scoring.CompValue:
		return "Value"
	case scoring.CompAmbience:
		return "Ambience"
	case scoring.CompGroupFit:
		return "Group"
	case scoring.CompSurroundings:
		return "Locale"
	case scoring.CompWildcard:
		return "Wildcard"
	default:
		return component
	}
}

func priceLabel(l *listing.Listing) string {
	if !l.HasPrice() {
		return "—"
	}
	return fmt.Sprintf("%s %s", l.Price.Amount.StringFixed(0), l.Price.Currency)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	suffix := ""
	if max > 3 {
		cut = max - 3
		suffix = "..."
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
