package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/david/stayrank/internal/listing"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// Extractor turns one listing page into a structured listing record. A page
// that cannot yield the essential fields (ref, title) is an explicit error
// — never a partial record — so the pipeline can drop the item and move on.
type Extractor struct {
	Config  *SourceConfig
	Fetcher Fetcher
}

func NewExtractor(cfg *SourceConfig, fetcher Fetcher) *Extractor {
	if fetcher == nil {
		fetcher = NewCollyFetcher(cfg.Fetch)
	}
	return &Extractor{Config: cfg, Fetcher: fetcher}
}

// Extract fetches and parses a single listing page.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*listing.Listing, error) {
	fetched, err := e.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer fetched.Body.Close()

	doc, err := goquery.NewDocumentFromReader(fetched.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	return e.ParseDocument(doc, pageURL)
}

// ParseDocument extracts the listing from an already-parsed page.
func (e *Extractor) ParseDocument(doc *goquery.Document, pageURL string) (*listing.Listing, error) {
	sel := e.Config.Detail

	ref := firstAttr(doc, sel.Ref, "data-ref")
	if ref == "" {
		ref = cleanText(doc.Find(sel.Ref).First().Text())
	}
	title := cleanText(doc.Find(sel.Title).First().Text())
	if ref == "" || title == "" {
		return nil, fmt.Errorf("page %s is not a parseable listing (ref=%q title=%q)", pageURL, ref, title)
	}

	l := &listing.Listing{
		Ref:         ref,
		Title:       title,
		URL:         pageURL,
		Summary:     cleanText(doc.Find(sel.Summary).First().Text()),
		Description: sanitizedText(doc.Find(sel.Description).First()),
		Location: listing.Location{
			Municipality: cleanText(doc.Find(sel.Municipality).First().Text()),
			Region:       cleanText(doc.Find(sel.Region).First().Text()),
		},
		Amenities: listing.AmenitySet{
			Indoor:   textList(doc, sel.AmenitiesIndoor),
			Outdoor:  textList(doc, sel.AmenitiesOutdoor),
			Services: textList(doc, sel.AmenitiesServices),
		},
		Included: textList(doc, sel.Included),
	}

	if coords := doc.Find(sel.Coordinates).First(); coords.Length() > 0 {
		if lat, ok := coords.Attr("data-lat"); ok {
			l.Location.Lat, _ = strconv.ParseFloat(strings.TrimSpace(lat), 64)
		}
		if lng, ok := coords.Attr("data-lng"); ok {
			l.Location.Lng, _ = strconv.ParseFloat(strings.TrimSpace(lng), 64)
		}
	}

	l.Capacity.Guests = firstInt(doc.Find(sel.Guests).First().Text())
	l.Capacity.Bedrooms = firstInt(doc.Find(sel.Bedrooms).First().Text())
	l.Capacity.AreaM2, _ = firstNumber(doc.Find(sel.Area).First().Text())

	if priceText := doc.Find(sel.Price).First().Text(); priceText != "" {
		if amount, ok := firstNumber(priceText); ok && amount > 0 {
			l.Price = &listing.Price{
				Amount:   decimal.NewFromFloat(amount),
				Currency: currencyOf(priceText),
				Unit:     "night",
			}
		}
	}

	l.Rating.Value, _ = firstNumber(doc.Find(sel.RatingValue).First().Text())
	l.Rating.Count = firstInt(doc.Find(sel.RatingCount).First().Text())

	doc.Find(sel.Review).Each(func(_ int, rev *goquery.Selection) {
		r := listing.Review{
			Text:       cleanText(rev.Find(sel.ReviewText).First().Text()),
			OwnerReply: cleanText(rev.Find(sel.ReviewReply).First().Text()),
		}
		r.Rating, _ = firstNumber(rev.Find(sel.ReviewRating).First().Text())

		rev.Find(sel.ReviewCriteria).Each(func(_ int, crit *goquery.Selection) {
			name, okName := crit.Attr("data-criterion")
			value, okValue := crit.Attr("data-value")
			if !okName || !okValue {
				return
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return
			}
			if r.Criteria == nil {
				r.Criteria = make(map[string]float64)
			}
			r.Criteria[strings.ToLower(strings.TrimSpace(name))] = v
		})

		l.Reviews = append(l.Reviews, r)
	})

	// Sources occasionally show a review list without the aggregate badge;
	// fall back to deriving it so social proof still has a sample size.
	if l.Rating.Count == 0 && len(l.Reviews) > 0 {
		sum := 0.0
		for _, r := range l.Reviews {
			sum += r.Rating
		}
		l.Rating.Count = len(l.Reviews)
		l.Rating.Value = sum / float64(len(l.Reviews))
	}

	return l, nil
}

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// firstNumber extracts the first decimal number from free text, accepting
// comma decimals ("4,8").
func firstNumber(s string) (float64, bool) {
	match := numberRe.FindString(s)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", ".")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstInt(s string) int {
	v, ok := firstNumber(s)
	if !ok {
		return 0
	}
	return int(v)
}

func currencyOf(priceText string) string {
	switch {
	case strings.Contains(priceText, "€") || strings.Contains(strings.ToUpper(priceText), "EUR"):
		return "EUR"
	case strings.Contains(priceText, "£") || strings.Contains(strings.ToUpper(priceText), "GBP"):
		return "GBP"
	case strings.Contains(priceText, "$") || strings.Contains(strings.ToUpper(priceText), "USD"):
		return "USD"
	default:
		return "EUR"
	}
}

func firstAttr(doc *goquery.Document, selector, attr string) string {
	v, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

func textList(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// cleanText collapses runs of whitespace and trims the string.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sanitizedText strips unsafe markup from the selection's HTML before
// flattening it to plain text; listing descriptions are user-authored and
// occasionally carry embedded markup.
func sanitizedText(sel *goquery.Selection) string {
	html, err := sel.Html()
	if err != nil || strings.TrimSpace(html) == "" {
		return cleanText(sel.Text())
	}
	safe := bluemonday.UGCPolicy().Sanitize(html)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(safe))
	if err != nil {
		return cleanText(sel.Text())
	}
	return cleanText(doc.Text())
}
