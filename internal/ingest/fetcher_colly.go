package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetchedDocument is the raw result of one fetch.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// CollyFetcher implements Fetcher with colly: per-domain rate limiting,
// retries with backoff, and robots.txt respected.
type CollyFetcher struct {
	UserAgent      string
	AcceptLanguage string
	MaxRetries     int
	RequestTimeout time.Duration
	DomainDelay    time.Duration
}

// NewCollyFetcher creates a fetcher from the source config, applying
// defaults for anything unset.
func NewCollyFetcher(cfg FetchConfig) *CollyFetcher {
	f := &CollyFetcher{
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		MaxRetries:     cfg.MaxRetries,
		RequestTimeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		DomainDelay:    time.Duration(cfg.DelaySeconds * float64(time.Second)),
	}
	if f.UserAgent == "" {
		f.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if f.MaxRetries == 0 {
		f.MaxRetries = 3
	}
	if f.RequestTimeout == 0 {
		f.RequestTimeout = 30 * time.Second
	}
	if f.DomainDelay == 0 {
		f.DomainDelay = time.Second
	}
	return f
}

func (f *CollyFetcher) buildCollector(allowedDomains []string) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(10 * 1024 * 1024),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	}
	if len(allowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(allowedDomains...))
	}

	c := colly.NewCollector(opts...)

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       f.DomainDelay,
		RandomDelay: f.DomainDelay / 2,
	})
	c.SetRequestTimeout(f.RequestTimeout)

	if f.AcceptLanguage != "" {
		c.OnRequest(func(r *colly.Request) {
			r.Headers.Set("Accept-Language", f.AcceptLanguage)
		})
	}

	c.OnError(func(r *colly.Response, err error) {
		if r.Request.Ctx.GetAny("retries") == nil {
			r.Request.Ctx.Put("retries", 0)
		}
		retries := r.Request.Ctx.GetAny("retries").(int)
		if retries < f.MaxRetries {
			r.Request.Ctx.Put("retries", retries+1)
			log.Printf("[fetch] retry %d/%d for %s: %v", retries+1, f.MaxRetries, r.Request.URL, err)
			time.Sleep(time.Duration(retries+1) * time.Second)
			r.Request.Retry()
		}
	})

	return c
}

// Fetch retrieves one page. A non-2xx response after the retry budget is an
// error; the caller decides whether to drop the item or abort.
func (f *CollyFetcher) Fetch(ctx context.Context, targetURL string) (*FetchedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// AllowedDomains matches on hostname without the port.
	c := f.buildCollector([]string{parsedURL.Hostname()})

	var result *FetchedDocument
	var fetchErr error

	// Completion is signaled exactly once, whichever callback fires; the
	// context watcher below never touches it.
	complete := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(complete) }) }

	c.OnResponse(func(r *colly.Response) {
		result = &FetchedDocument{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        io.NopCloser(bytes.NewReader(r.Body)),
			FetchedAt:   time.Now(),
		}
		finish()
	})

	c.OnError(func(r *colly.Response, err error) {
		retries := 0
		if r.Request.Ctx.GetAny("retries") != nil {
			retries = r.Request.Ctx.GetAny("retries").(int)
		}
		if retries >= f.MaxRetries {
			fetchErr = fmt.Errorf("fetch failed after %d retries: %w", f.MaxRetries, err)
			finish()
		}
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, fmt.Errorf("visit failed: %w", err)
	}

	select {
	case <-complete:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	if result == nil {
		return nil, fmt.Errorf("no response received for %s", targetURL)
	}
	return result, nil
}
