package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/david/stayrank/internal/listing"
	"github.com/david/stayrank/internal/models"
	"github.com/david/stayrank/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// sortColumns maps API sort keys to SQL expressions. Anything not listed
// falls back to the final score, so user input never reaches the query raw.
var sortColumns = map[string]string{
	"final":                    "e.final",
	scoring.CompGuestFeedback:  componentExpr(scoring.CompGuestFeedback),
	scoring.CompPractical:      componentExpr(scoring.CompPractical),
	scoring.CompValue:          componentExpr(scoring.CompValue),
	scoring.CompAmbience:       componentExpr(scoring.CompAmbience),
	scoring.CompGroupFit:       componentExpr(scoring.CompGroupFit),
	scoring.CompSurroundings:   componentExpr(scoring.CompSurroundings),
	scoring.CompWildcard:       componentExpr(scoring.CompWildcard),
}

func componentExpr(name string) string {
	return fmt.Sprintf("(e.components->'%s'->>'score')::double precision", name)
}

// UpsertListing writes one extracted listing record.
func (s *Store) UpsertListing(ctx context.Context, l *listing.Listing) error {
	amenities, err := json.Marshal(l.Amenities)
	if err != nil {
		return fmt.Errorf("marshal amenities for %s: %w", l.Ref, err)
	}
	included, err := json.Marshal(l.Included)
	if err != nil {
		return fmt.Errorf("marshal included for %s: %w", l.Ref, err)
	}
	reviews, err := json.Marshal(l.Reviews)
	if err != nil {
		return fmt.Errorf("marshal reviews for %s: %w", l.Ref, err)
	}

	var priceAmount, priceCurrency, priceUnit interface{}
	if l.HasPrice() {
		priceAmount = l.Price.Amount.String()
		priceCurrency = l.Price.Currency
		priceUnit = l.Price.Unit
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO listings (
			ref, title, url, summary, description, municipality, region,
			lat, lng, guests, bedrooms, area_m2,
			price_amount, price_currency, price_unit,
			amenities, included, rating_value, rating_count, reviews
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15,
			$16::jsonb, $17::jsonb, $18, $19, $20::jsonb
		)
		ON CONFLICT (ref) DO UPDATE SET
			updated_at = NOW(),
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			municipality = EXCLUDED.municipality,
			region = EXCLUDED.region,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			guests = EXCLUDED.guests,
			bedrooms = EXCLUDED.bedrooms,
			area_m2 = EXCLUDED.area_m2,
			price_amount = EXCLUDED.price_amount,
			price_currency = EXCLUDED.price_currency,
			price_unit = EXCLUDED.price_unit,
			amenities = EXCLUDED.amenities,
			included = EXCLUDED.included,
			rating_value = EXCLUDED.rating_value,
			rating_count = EXCLUDED.rating_count,
			reviews = EXCLUDED.reviews
	`,
		l.Ref, l.Title, l.URL, l.Summary, l.Description, l.Location.Municipality, l.Location.Region,
		l.Location.Lat, l.Location.Lng, l.Capacity.Guests, l.Capacity.Bedrooms, l.Capacity.AreaM2,
		priceAmount, priceCurrency, priceUnit,
		string(amenities), string(included), l.Rating.Value, l.Rating.Count, string(reviews),
	)
	return err
}

// UpsertEnrichment writes one listing's scores.
func (s *Store) UpsertEnrichment(ctx context.Context, e scoring.Enrichment) error {
	components, err := json.Marshal(e.Components)
	if err != nil {
		return fmt.Errorf("marshal components for %s: %w", e.Ref, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO enrichments (ref, components, final, scored_at)
		VALUES ($1, $2::jsonb, $3, NOW())
		ON CONFLICT (ref) DO UPDATE SET
			components = EXCLUDED.components,
			final = EXCLUDED.final,
			scored_at = NOW()
	`, e.Ref, string(components), e.Final)
	return err
}

// ListParams filter and order the ranked browse.
type ListParams struct {
	SortBy   string  // "final" or a component name; unknown keys fall back to final
	MinScore float64 // minimum final score, 0 = no filter
	Limit    int
	Offset   int
}

const selectCols = `l.ref, l.title, l.url, l.summary, l.description, l.municipality, l.region,
	l.lat, l.lng, l.guests, l.bedrooms, l.area_m2,
	l.price_amount::text, l.price_currency, l.price_unit,
	l.amenities, l.included, l.rating_value, l.rating_count, l.reviews,
	e.components, e.final, e.scored_at`

// ListRanked returns scored listings ordered by the requested dimension
// descending, with ref as the deterministic tiebreak.
func (s *Store) ListRanked(ctx context.Context, params ListParams) ([]models.RankedListing, error) {
	sortExpr, ok := sortColumns[params.SortBy]
	if !ok {
		sortExpr = sortColumns["final"]
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM listings l
		JOIN enrichments e ON e.ref = l.ref
		WHERE e.final >= $1
		ORDER BY %s DESC, l.ref ASC
		LIMIT $2 OFFSET $3
	`, selectCols, sortExpr)

	rows, err := s.pool.Query(ctx, query, params.MinScore, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list ranked query failed: %w", err)
	}
	defer rows.Close()

	var out []models.RankedListing
	for rows.Next() {
		rl, err := scanRanked(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list ranked scan failed: %w", err)
		}
		rl.Rank = params.Offset + len(out) + 1
		out = append(out, rl)
	}
	return out, rows.Err()
}

// GetByRef returns one scored listing.
func (s *Store) GetByRef(ctx context.Context, ref string) (*models.RankedListing, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM listings l
		JOIN enrichments e ON e.ref = l.ref
		WHERE l.ref = $1
	`, selectCols)

	rl, err := scanRanked(s.pool.QueryRow(ctx, query, ref).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get listing %s failed: %w", ref, err)
	}
	return &rl, nil
}

// RandomPair returns two distinct scored listings for a head-to-head vote.
// Pair selection is uniform; no matchmaking weighting.
func (s *Store) RandomPair(ctx context.Context) (*models.Duel, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM listings l
		JOIN enrichments e ON e.ref = l.ref
		ORDER BY random()
		LIMIT 2
	`, selectCols)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("random pair query failed: %w", err)
	}
	defer rows.Close()

	var pair []models.RankedListing
	for rows.Next() {
		rl, err := scanRanked(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("random pair scan failed: %w", err)
		}
		pair = append(pair, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pair) < 2 {
		return nil, fmt.Errorf("need at least two scored listings for a duel")
	}
	return &models.Duel{Left: pair[0], Right: pair[1]}, nil
}

// RecordVote stores one pairwise preference. A repeat vote on the same pair
// by the same session replaces the earlier one instead of double-counting.
func (s *Store) RecordVote(ctx context.Context, sessionID uuid.UUID, winnerRef, loserRef string) error {
	if winnerRef == loserRef {
		return fmt.Errorf("winner and loser must differ")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO votes (id, session_id, pair_key, winner_ref, loser_ref)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, pair_key) DO UPDATE SET
			winner_ref = EXCLUDED.winner_ref,
			loser_ref = EXCLUDED.loser_ref,
			created_at = NOW()
	`, uuid.New(), sessionID, pairKey(winnerRef, loserRef), winnerRef, loserRef)
	return err
}

// Standings returns listings ordered by vote wins, final score breaking
// ties.
func (s *Store) Standings(ctx context.Context, limit int) ([]models.Standing, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT l.ref, l.title,
			COALESCE(w.wins, 0) AS wins,
			COALESCE(lo.losses, 0) AS losses,
			e.final
		FROM listings l
		JOIN enrichments e ON e.ref = l.ref
		LEFT JOIN (SELECT winner_ref, COUNT(*) AS wins FROM votes GROUP BY winner_ref) w ON w.winner_ref = l.ref
		LEFT JOIN (SELECT loser_ref, COUNT(*) AS losses FROM votes GROUP BY loser_ref) lo ON lo.loser_ref = l.ref
		ORDER BY COALESCE(w.wins, 0) DESC, e.final DESC, l.ref ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("standings query failed: %w", err)
	}
	defer rows.Close()

	var out []models.Standing
	for rows.Next() {
		var st models.Standing
		if err := rows.Scan(&st.Ref, &st.Title, &st.Wins, &st.Losses, &st.Final); err != nil {
			return nil, fmt.Errorf("standings scan failed: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// pairKey builds the order-independent identity of a duel pair.
func pairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}

func scanRanked(scan func(dest ...interface{}) error) (models.RankedListing, error) {
	var rl models.RankedListing
	var l listing.Listing
	var summary, description, municipality, region *string
	var priceAmount, priceCurrency, priceUnit *string
	var amenitiesRaw, includedRaw, reviewsRaw, componentsRaw []byte

	err := scan(
		&l.Ref, &l.Title, &l.URL, &summary, &description, &municipality, &region,
		&l.Location.Lat, &l.Location.Lng, &l.Capacity.Guests, &l.Capacity.Bedrooms, &l.Capacity.AreaM2,
		&priceAmount, &priceCurrency, &priceUnit,
		&amenitiesRaw, &includedRaw, &l.Rating.Value, &l.Rating.Count, &reviewsRaw,
		&componentsRaw, &rl.Enrichment.Final, &rl.ScoredAt,
	)
	if err != nil {
		return rl, err
	}

	if summary != nil {
		l.Summary = *summary
	}
	if description != nil {
		l.Description = *description
	}
	if municipality != nil {
		l.Location.Municipality = *municipality
	}
	if region != nil {
		l.Location.Region = *region
	}

	if priceAmount != nil {
		amount, err := decimal.NewFromString(*priceAmount)
		if err == nil {
			price := listing.Price{Amount: amount, Unit: "night"}
			if priceCurrency != nil {
				price.Currency = *priceCurrency
			}
			if priceUnit != nil {
				price.Unit = *priceUnit
			}
			l.Price = &price
		}
	}

	if err := json.Unmarshal(amenitiesRaw, &l.Amenities); err != nil {
		return rl, fmt.Errorf("decode amenities for %s: %w", l.Ref, err)
	}
	if err := json.Unmarshal(includedRaw, &l.Included); err != nil {
		return rl, fmt.Errorf("decode included for %s: %w", l.Ref, err)
	}
	if err := json.Unmarshal(reviewsRaw, &l.Reviews); err != nil {
		return rl, fmt.Errorf("decode reviews for %s: %w", l.Ref, err)
	}
	if err := json.Unmarshal(componentsRaw, &rl.Enrichment.Components); err != nil {
		return rl, fmt.Errorf("decode components for %s: %w", l.Ref, err)
	}

	rl.Listing = l
	rl.Enrichment.Ref = l.Ref
	return rl, nil
}
