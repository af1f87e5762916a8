package judge

import (
	"strings"
	"testing"

	"github.com/david/stayrank/internal/scoring"
)

const goodResponse = `{
  "ambience": {"score": 8, "reason": "Large terrace with valley views."},
  "group_fit": {"score": 6.5, "reason": "Three bedrooms but one shared bathroom."},
  "surroundings": {"score": 7, "reason": "Quiet village with two restaurants."},
  "wildcard": {"score": 9, "reason": "Working fireplace and a wood supply."}
}`

func TestParseVerdictValid(t *testing.T) {
	verdict, err := ParseVerdict(goodResponse)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}

	if len(verdict) != len(scoring.DerivedComponents) {
		t.Fatalf("got %d components, want %d", len(verdict), len(scoring.DerivedComponents))
	}
	if got := verdict[scoring.CompAmbience].Score; got != 8 {
		t.Errorf("ambience = %v, want 8", got)
	}
	if got := verdict[scoring.CompGroupFit].Score; got != 6.5 {
		t.Errorf("group_fit = %v, want 6.5", got)
	}
	if reason := verdict[scoring.CompWildcard].Reason; !strings.Contains(reason, "fireplace") {
		t.Errorf("wildcard reason %q lost its text", reason)
	}
}

func TestParseVerdictToleratesWrapping(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{"markdown fence", "```json\n" + goodResponse + "\n```"},
		{"bare fence", "```\n" + goodResponse + "\n```"},
		{"prose before and after", "Here is my assessment:\n" + goodResponse + "\nHope that helps!"},
		{"leading whitespace", "\n\n  " + goodResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := ParseVerdict(tt.resp)
			if err != nil {
				t.Fatalf("ParseVerdict: %v", err)
			}
			if got := verdict[scoring.CompSurroundings].Score; got != 7 {
				t.Errorf("surroundings = %v, want 7", got)
			}
		})
	}
}

func TestParseVerdictRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{"empty response", ""},
		{"no JSON at all", "I cannot score this property."},
		{"truncated object", `{"ambience": {"score": 8`},
		{
			"missing component",
			`{"ambience": {"score": 8, "reason": "x"}, "group_fit": {"score": 6, "reason": "x"}, "surroundings": {"score": 7, "reason": "x"}}`,
		},
		{
			"score is a string",
			`{"ambience": {"score": "eight", "reason": "x"}, "group_fit": {"score": 6, "reason": "x"}, "surroundings": {"score": 7, "reason": "x"}, "wildcard": {"score": 5, "reason": "x"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseVerdict(tt.resp); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestParseVerdictClampsScores(t *testing.T) {
	resp := `{
  "ambience": {"score": 15, "reason": "x"},
  "group_fit": {"score": 0, "reason": "x"},
  "surroundings": {"score": -2, "reason": "x"},
  "wildcard": {"score": 10, "reason": "x"}
}`

	verdict, err := ParseVerdict(resp)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if got := verdict[scoring.CompAmbience].Score; got != 10 {
		t.Errorf("ambience = %v, want clamped to 10", got)
	}
	if got := verdict[scoring.CompGroupFit].Score; got != 1 {
		t.Errorf("group_fit = %v, want clamped to 1", got)
	}
	if got := verdict[scoring.CompSurroundings].Score; got != 1 {
		t.Errorf("surroundings = %v, want clamped to 1", got)
	}
}

func TestExtractFirstJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"braces inside strings ignored", `{"a": "{not a brace}"}`, `{"a": "{not a brace}"}`, true},
		{"prose around", `text {"a": 1} more text`, `{"a": 1}`, true},
		{"stops at first object", `{"a": 1} {"b": 2}`, `{"a": 1}`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"no object", "plain text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractFirstJSONObject(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
