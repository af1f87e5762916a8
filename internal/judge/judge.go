package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/david/stayrank/internal/scoring"
)

// MaxAttempts bounds retries for malformed judgment responses. After the
// cap the listing fails as a whole; a bad response is never silently
// defaulted.
const MaxAttempts = 3

// Verdict is the judgment provider's output for one listing: exactly the
// four derived components, clamped to [1,10] on receipt.
type Verdict map[string]scoring.Component

type rawVerdict struct {
	Ambience     rawComponent `json:"ambience"`
	GroupFit     rawComponent `json:"group_fit"`
	Surroundings rawComponent `json:"surroundings"`
	Wildcard     rawComponent `json:"wildcard"`
}

type rawComponent struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// Judger is the interface the pipeline driver consumes, so tests can swap
// in a canned provider.
type Judger interface {
	JudgeListing(ctx context.Context, ref, digest string) (Verdict, error)
}

// JudgeListing sends the listing digest to the model and returns the four
// derived components. A malformed response (unparsable, wrong shape, or a
// missing component) counts as a failed attempt; after MaxAttempts the
// error surfaces to the caller, which drops the item.
func (c *Client) JudgeListing(ctx context.Context, ref, digest string) (Verdict, error) {
	prompt := buildPrompt(digest)

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		resp, err := c.GenerateCompletion(ctx, prompt, true)
		if err != nil {
			lastErr = err
			log.Printf("[judge] %s attempt %d/%d failed: %v", ref, attempt, MaxAttempts, err)
			continue
		}

		verdict, err := ParseVerdict(resp)
		if err != nil {
			lastErr = err
			log.Printf("[judge] %s attempt %d/%d returned malformed judgment: %v", ref, attempt, MaxAttempts, err)
			continue
		}
		return verdict, nil
	}

	return nil, fmt.Errorf("judgment for %s failed after %d attempts: %w", ref, MaxAttempts, lastErr)
}

func buildPrompt(digest string) string {
	return fmt.Sprintf(`You are an experienced vacation-rental reviewer. Score the following property on four dimensions, each from 1 (terrible) to 10 (outstanding), with a one-or-two sentence reason grounded in the text.

Property:
%s

Dimensions:
- ambience: outdoor and ambience potential (terraces, views, light, atmosphere for relaxed evenings).
- group_fit: how well the place works for a group of the stated size (layout, bedrooms, shared spaces).
- surroundings: character of the locale (village/town feel, nature, things within reach).
- wildcard: anything notable not covered above, good or bad.

Return a JSON object with EXACTLY these four keys and nothing else:
{
  "ambience": {"score": number, "reason": "string"},
  "group_fit": {"score": number, "reason": "string"},
  "surroundings": {"score": number, "reason": "string"},
  "wildcard": {"score": number, "reason": "string"}
}

Respond ONLY with the JSON object.`, digest)
}

// ParseVerdict validates a judgment response: the body must contain a JSON
// object with all four components, each carrying a numeric score. Scores
// are clamped to [1,10]; shape violations are errors, never defaults.
func ParseVerdict(resp string) (Verdict, error) {
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("judgment is not valid JSON: %w", err)
	}

	fields := map[string]rawComponent{
		scoring.CompAmbience:     raw.Ambience,
		scoring.CompGroupFit:     raw.GroupFit,
		scoring.CompSurroundings: raw.Surroundings,
		scoring.CompWildcard:     raw.Wildcard,
	}

	verdict := make(Verdict, len(fields))
	for name, rc := range fields {
		if rc.Score == nil {
			return nil, fmt.Errorf("judgment missing score for %q", name)
		}
		verdict[name] = scoring.Component{
			Score:  scoring.Clamp(*rc.Score, 1, 10),
			Reason: strings.TrimSpace(rc.Reason),
		}
	}
	return verdict, nil
}

// extractFirstJSONObject finds the first outermost balanced {...}, so
// prose-wrapped or fenced responses still parse.
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
