package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/david/stayrank/internal/ingest"
	"github.com/david/stayrank/internal/judge"
	"github.com/david/stayrank/internal/listing"
	"github.com/david/stayrank/internal/scoring"
	"github.com/shopspring/decimal"
)

type fakeCollector struct {
	urls  []string
	calls int32
}

func (f *fakeCollector) Collect(context.Context) ([]string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.urls, nil
}

type fakeExtractor struct {
	listings map[string]*listing.Listing
	calls    int32
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (*listing.Listing, error) {
	atomic.AddInt32(&f.calls, 1)
	l, ok := f.listings[url]
	if !ok {
		return nil, fmt.Errorf("page %s is not a parseable listing", url)
	}
	return l, nil
}

type fakeJudge struct {
	failRefs map[string]bool
	calls    int32
}

func (f *fakeJudge) JudgeListing(_ context.Context, ref, _ string) (judge.Verdict, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.failRefs[ref] {
		return nil, fmt.Errorf("judgment for %s failed", ref)
	}
	v := make(judge.Verdict, len(scoring.DerivedComponents))
	for _, name := range scoring.DerivedComponents {
		v[name] = scoring.Component{Score: 7, Reason: "judged"}
	}
	return v, nil
}

func driverFixture(t *testing.T, j judge.Judger) (*Driver, *fakeCollector, *fakeExtractor) {
	t.Helper()

	mkListing := func(ref string, price float64) *listing.Listing {
		return &listing.Listing{
			Ref:      ref,
			Title:    "Listing " + ref,
			Capacity: listing.Capacity{Guests: 2},
			Price:    &listing.Price{Amount: decimal.NewFromFloat(price), Currency: "EUR", Unit: "night"},
			Rating:   listing.Rating{Value: 4.5, Count: 10},
		}
	}

	collector := &fakeCollector{urls: []string{"u/A", "u/B", "u/C", "u/broken"}}
	extractor := &fakeExtractor{listings: map[string]*listing.Listing{
		"u/A": mkListing("A", 80),
		"u/B": mkListing("B", 120),
		"u/C": mkListing("C", 160),
	}}

	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	return &Driver{
		Cache:     cache,
		Source:    &ingest.SourceConfig{Name: "test", BaseURL: "https://example.com"},
		Collector: collector,
		Extractor: extractor,
		Judge:     j,
		Workers:   2,
	}, collector, extractor
}

func TestDriverRunEndToEnd(t *testing.T) {
	d, _, _ := driverFixture(t, &fakeJudge{})

	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Stats.URLsFound != 4 {
		t.Errorf("URLsFound = %d, want 4", result.Stats.URLsFound)
	}
	if result.Stats.Extracted != 3 || result.Stats.ExtractFailures != 1 {
		t.Errorf("extraction stats = %+v", result.Stats)
	}
	if result.Stats.Judged != 3 || result.Stats.JudgeFailures != 0 {
		t.Errorf("judge stats = %+v", result.Stats)
	}
	if result.Stats.Scored != 3 {
		t.Errorf("Scored = %d, want 3", result.Stats.Scored)
	}

	for i := 1; i < len(result.Enrichments); i++ {
		if result.Enrichments[i].Final > result.Enrichments[i-1].Final {
			t.Errorf("enrichments not sorted best-first at index %d", i)
		}
	}
	for _, e := range result.Enrichments {
		if len(e.Components) != len(scoring.AllComponents) {
			t.Errorf("%s has %d components, want %d", e.Ref, len(e.Components), len(scoring.AllComponents))
		}
	}
}

func TestDriverSecondRunIsFullyCached(t *testing.T) {
	j := &fakeJudge{}
	d, collector, extractor := driverFixture(t, j)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	collectCalls := atomic.LoadInt32(&collector.calls)
	extractCalls := atomic.LoadInt32(&extractor.calls)
	judgeCalls := atomic.LoadInt32(&j.calls)

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if got := atomic.LoadInt32(&collector.calls); got != collectCalls {
		t.Errorf("collector re-ran on unchanged input: %d calls", got)
	}
	if got := atomic.LoadInt32(&extractor.calls); got != extractCalls+1 {
		// The broken URL failed the first time; failures are never cached,
		// so exactly that one extraction re-runs.
		t.Errorf("extractor calls = %d, want %d", got, extractCalls+1)
	}
	if got := atomic.LoadInt32(&j.calls); got != judgeCalls {
		t.Errorf("judge re-ran on unchanged listings: %d calls", got)
	}
}

func TestDriverDropsFailedJudgments(t *testing.T) {
	d, _, _ := driverFixture(t, &fakeJudge{failRefs: map[string]bool{"B": true}})

	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Stats.Judged != 2 || result.Stats.JudgeFailures != 1 {
		t.Errorf("judge stats = %+v", result.Stats)
	}
	if result.Stats.Scored != 2 {
		t.Errorf("Scored = %d, want 2", result.Stats.Scored)
	}
	for _, e := range result.Enrichments {
		if e.Ref == "B" {
			t.Error("listing with failed judgment must not be scored")
		}
	}
}
