// Package models holds the API-facing shapes shared by the store, the CLI
// report and the HTTP server.
package models

import (
	"time"

	"github.com/david/stayrank/internal/listing"
	"github.com/david/stayrank/internal/scoring"
)

// RankedListing is one listing with its enrichment, as served to consumers
// that sort and filter on the final score or any component.
type RankedListing struct {
	Rank       int                `json:"rank"`
	Listing    listing.Listing    `json:"listing"`
	Enrichment scoring.Enrichment `json:"enrichment"`
	ScoredAt   time.Time          `json:"scored_at"`
}

// Duel is a pair of listings offered for a head-to-head vote.
type Duel struct {
	Left  RankedListing `json:"left"`
	Right RankedListing `json:"right"`
}

// Standing is one row of the vote leaderboard.
type Standing struct {
	Ref    string  `json:"ref"`
	Title  string  `json:"title"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Final  float64 `json:"final"`
}
