package scoring

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want float64
	}{
		{"below range", 0.2, 1},
		{"at lower bound", 1, 1},
		{"inside range", 6.4, 6.4},
		{"at upper bound", 10, 10},
		{"above range", 12.7, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, 1, 10); !almostEqual(got, tt.want) {
				t.Errorf("Clamp(%v, 1, 10) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestScaleLowBest(t *testing.T) {
	population := []float64{10, 20, 30, 40}

	tests := []struct {
		name string
		v    float64
		want float64
	}{
		{"population minimum scores best", 10, 9},
		{"intermediate value interpolates", 20, 9 - (10.0/30.0)*7},
		{"midpoint lands midway", 25, 5.5},
		{"population maximum scores worst", 40, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleLowBest(tt.v, population, 2, 9); !almostEqual(got, tt.want) {
				t.Errorf("ScaleLowBest(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}

	t.Run("empty population returns midpoint", func(t *testing.T) {
		if got := ScaleLowBest(5, nil, 2, 9); !almostEqual(got, 5.5) {
			t.Errorf("got %v, want 5.5", got)
		}
	})

	t.Run("single member returns midpoint", func(t *testing.T) {
		if got := ScaleLowBest(100, []float64{100}, 2, 9); !almostEqual(got, 5.5) {
			t.Errorf("got %v, want 5.5", got)
		}
	})

	t.Run("identical values return midpoint", func(t *testing.T) {
		if got := ScaleLowBest(7, []float64{7, 7, 7}, 2, 9); !almostEqual(got, 5.5) {
			t.Errorf("got %v, want 5.5", got)
		}
	})
}

func TestDamp(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		n    int
		want float64
	}{
		{"zero observations yield exactly neutral", 10, 0, 5},
		{"negative count treated as zero", 10, -3, 5},
		{"one observation", 10, 1, 0.7*10 + 0.3*5},
		{"two observations", 10, 2, 0.85*10 + 0.15*5},
		{"three observations", 10, 3, 0.95*10 + 0.05*5},
		{"large sample keeps top weight", 10, 500, 0.95*10 + 0.05*5},
		{"raw at neutral stays at neutral", 5, 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Damp(tt.raw, tt.n, Neutral); !almostEqual(got, tt.want) {
				t.Errorf("Damp(%v, %d) = %v, want %v", tt.raw, tt.n, got, tt.want)
			}
		})
	}

	t.Run("weight grows monotonically with sample size", func(t *testing.T) {
		prev := Damp(10, 0, Neutral)
		for n := 1; n <= 4; n++ {
			cur := Damp(10, n, Neutral)
			if cur < prev {
				t.Fatalf("Damp(10, %d) = %v dropped below Damp(10, %d) = %v", n, cur, n-1, prev)
			}
			prev = cur
		}
	})
}
