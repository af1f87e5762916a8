package ingest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Collector walks the source's index pages and returns the listing page
// URLs found, in page order.
type Collector struct {
	Config  *SourceConfig
	Fetcher Fetcher
}

func NewCollector(cfg *SourceConfig, fetcher Fetcher) *Collector {
	if fetcher == nil {
		fetcher = NewCollyFetcher(cfg.Fetch)
	}
	return &Collector{Config: cfg, Fetcher: fetcher}
}

// Collect visits every seed and paginates via the configured next-page
// selector, up to MaxPages pages per seed. Duplicate URLs across pages are
// dropped while preserving first-seen order.
func (c *Collector) Collect(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var urls []string

	for _, seed := range c.Config.Seeds {
		pageURL, err := c.resolve(seed)
		if err != nil {
			return nil, fmt.Errorf("bad seed url %q: %w", seed, err)
		}

		for page := 1; page <= c.Config.MaxPages && pageURL != ""; page++ {
			doc, err := c.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("index page %s: %w", pageURL, err)
			}

			found := 0
			doc.Find(c.Config.Index.Card).Each(func(_ int, card *goquery.Selection) {
				href, ok := card.Find(c.Config.Index.Link).Attr("href")
				if !ok {
					return
				}
				abs, err := c.resolve(href)
				if err != nil {
					return
				}
				if _, dup := seen[abs]; dup {
					return
				}
				seen[abs] = struct{}{}
				urls = append(urls, abs)
				found++
			})
			log.Printf("[collect] %s page %d: %d new listings", c.Config.Name, page, found)

			pageURL = ""
			if next, ok := doc.Find(c.Config.Index.Next).Attr("href"); ok {
				if abs, err := c.resolve(next); err == nil {
					pageURL = abs
				}
			}
		}
	}

	return urls, nil
}

func (c *Collector) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	fetched, err := c.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer fetched.Body.Close()
	return goquery.NewDocumentFromReader(fetched.Body)
}

func (c *Collector) resolve(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	base, err := url.Parse(c.Config.BaseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
