package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/david/stayrank/internal/ingest"
	"github.com/david/stayrank/internal/judge"
	"github.com/david/stayrank/internal/listing"
	"github.com/david/stayrank/internal/scoring"
)

// Stage identities. Versions are bumped when the stage's logic changes in a
// way that affects output; that invalidates exactly that stage's cache
// entries and nothing else.
var (
	StageCollect = Stage{Name: "collect", Version: "v2"}
	StageExtract = Stage{Name: "extract", Version: "v3"}
	StageJudge   = Stage{Name: "judge", Version: "v2"}
	StageScore   = Stage{Name: "score", Version: "v4"}
)

// Extractor is the slice of the ingest layer the driver needs.
type Extractor interface {
	Extract(ctx context.Context, url string) (*listing.Listing, error)
}

// Collector walks the source index and returns listing page URLs.
type Collector interface {
	Collect(ctx context.Context) ([]string, error)
}

// Driver sequences the pipeline stages. Control flow is strictly linear —
// a stage never starts before the previous stage's full output exists — and
// the driver owns no cache logic or state of its own; caching is delegated
// to each stage's Run call.
type Driver struct {
	Cache     *Cache
	Source    *ingest.SourceConfig
	Collector Collector
	Extractor Extractor
	Judge     judge.Judger
	Workers   int // concurrent judgments, default 4
}

// Stats summarizes one pipeline run.
type Stats struct {
	URLsFound       int `json:"urls_found"`
	Extracted       int `json:"extracted"`
	ExtractFailures int `json:"extract_failures"`
	Judged          int `json:"judged"`
	JudgeFailures   int `json:"judge_failures"`
	Scored          int `json:"scored"`
}

// Result is the pipeline's final output: the surviving listings and their
// enrichments, sorted by final score descending (stable on ties).
type Result struct {
	Listings    []*listing.Listing   `json:"listings"`
	Enrichments []scoring.Enrichment `json:"enrichments"`
	Stats       Stats                `json:"stats"`
}

// judgeInput keys the judge stage's cache per listing: the digest already
// condenses every field the judgment depends on, so an unchanged listing is
// never re-judged (or re-billed) because a sibling changed.
type judgeInput struct {
	Ref    string `json:"ref"`
	Digest string `json:"digest"`
}

// scoreInput is the whole-population input of the score stage.
type scoreInput struct {
	Listings []*listing.Listing       `json:"listings"`
	Verdicts map[string]judge.Verdict `json:"verdicts"`
}

// Run executes the full pipeline. Per-item failures (unparsable page,
// judgment that stays malformed after retries) drop that item with a logged
// reason; the run completes with a possibly-smaller result set instead of
// aborting on a single bad listing.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	stats := Stats{}

	// 1. Collect listing URLs.
	urls, err := Run(ctx, d.Cache, StageCollect, d.Source, func(ctx context.Context, _ *ingest.SourceConfig) ([]string, error) {
		return d.Collector.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	stats.URLsFound = len(urls)

	// 2. Extract each listing; parse failures drop the item.
	listings := make([]*listing.Listing, 0, len(urls))
	for _, u := range urls {
		l, err := Run(ctx, d.Cache, StageExtract, u, func(ctx context.Context, pageURL string) (*listing.Listing, error) {
			return d.Extractor.Extract(ctx, pageURL)
		})
		if err != nil {
			stats.ExtractFailures++
			log.Printf("[pipeline] dropping %s: %v", u, err)
			continue
		}
		listings = append(listings, l)
	}
	stats.Extracted = len(listings)

	// 3. Judge each listing in a bounded pool, results keyed by ref.
	verdicts, judgeErrs := d.judgeAll(ctx, listings)
	stats.Judged = len(verdicts)
	stats.JudgeFailures = len(judgeErrs)
	for ref, jerr := range judgeErrs {
		log.Printf("[pipeline] judgment failed for %s: %v", ref, jerr)
	}

	// 4. Score the population.
	enrichments, err := Run(ctx, d.Cache, StageScore, scoreInput{Listings: listings, Verdicts: verdicts},
		func(_ context.Context, in scoreInput) ([]scoring.Enrichment, error) {
			derived := make(map[string]map[string]scoring.Component, len(in.Verdicts))
			for ref, v := range in.Verdicts {
				derived[ref] = v
			}
			enriched, skips := scoring.Aggregate(in.Listings, derived)
			for _, skip := range skips {
				log.Printf("[pipeline] %v", skip)
			}
			scoring.SortByFinal(enriched)
			return enriched, nil
		})
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	stats.Scored = len(enrichments)

	return &Result{Listings: listings, Enrichments: enrichments, Stats: stats}, nil
}

func (d *Driver) judgeAll(ctx context.Context, listings []*listing.Listing) (map[string]judge.Verdict, map[string]error) {
	workers := d.Workers
	if workers <= 0 {
		workers = 4
	}

	pool := judge.NewPool(workers)
	for _, l := range listings {
		in := judgeInput{Ref: l.Ref, Digest: listing.Digest(l)}
		pool.Submit(l.Ref, func() (judge.Verdict, error) {
			return Run(ctx, d.Cache, StageJudge, in, func(ctx context.Context, in judgeInput) (judge.Verdict, error) {
				return d.Judge.JudgeListing(ctx, in.Ref, in.Digest)
			})
		})
	}
	return pool.Wait()
}
