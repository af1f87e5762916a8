package ingest

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/source.yaml
var sourceYAML embed.FS

// SourceConfig describes the single listing source: where the index pages
// live and which CSS selectors pull the fields out of a listing page.
type SourceConfig struct {
	Name     string      `yaml:"name"`
	BaseURL  string      `yaml:"base_url"`
	Seeds    []string    `yaml:"seed_urls"`
	MaxPages int         `yaml:"max_pages,omitempty"`
	Fetch    FetchConfig `yaml:"fetch,omitempty"`

	Index  IndexSelectors  `yaml:"index"`
	Detail DetailSelectors `yaml:"detail"`
}

// FetchConfig defines HTTP fetching behavior.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	DelaySeconds   float64 `yaml:"delay_seconds,omitempty"`   // Per-domain delay, default: 1.0
	UserAgent      string  `yaml:"user_agent,omitempty"`
	AcceptLanguage string  `yaml:"accept_language,omitempty"`
}

// IndexSelectors locate listing links on a search/index page.
type IndexSelectors struct {
	Card string `yaml:"card"` // wrapper per result
	Link string `yaml:"link"` // anchor inside the card
	Next string `yaml:"next"` // next-page anchor
}

// DetailSelectors locate the fields of one listing page.
type DetailSelectors struct {
	Ref         string `yaml:"ref"`
	Title       string `yaml:"title"`
	Summary     string `yaml:"summary"`
	Description string `yaml:"description"`

	Municipality string `yaml:"municipality"`
	Region       string `yaml:"region"`
	Coordinates  string `yaml:"coordinates"` // element with data-lat/data-lng

	Guests   string `yaml:"guests"`
	Bedrooms string `yaml:"bedrooms"`
	Area     string `yaml:"area"`
	Price    string `yaml:"price"`

	AmenitiesIndoor   string `yaml:"amenities_indoor"`
	AmenitiesOutdoor  string `yaml:"amenities_outdoor"`
	AmenitiesServices string `yaml:"amenities_services"`
	Included          string `yaml:"included"`

	RatingValue string `yaml:"rating_value"`
	RatingCount string `yaml:"rating_count"`

	Review         string `yaml:"review"` // wrapper per review
	ReviewRating   string `yaml:"review_rating"`
	ReviewText     string `yaml:"review_text"`
	ReviewCriteria string `yaml:"review_criteria"` // elements with data-criterion/data-value
	ReviewReply    string `yaml:"review_reply"`
}

// LoadSource reads the embedded source.yaml, falling back to the given path
// for local overrides. Environment variables in the YAML are expanded.
func LoadSource(path string) (*SourceConfig, error) {
	data, err := sourceYAML.ReadFile("config/source.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load source config: %w", err)
		}
	}

	expanded := os.ExpandEnv(string(data))

	var cfg SourceConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse source config: %w", err)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source config missing base_url")
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	return &cfg, nil
}
