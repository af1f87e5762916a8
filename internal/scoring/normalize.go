package scoring

// Shared normalization primitives. Several quantities here (price per guest,
// cost per quality point) are only meaningful relative to the current
// population, never against an absolute scale, so components rank against
// their peers instead of applying fixed thresholds.

// Neutral is the midpoint score used when a signal carries no information.
const Neutral = 5.0

// smallTierScore is what every member of an undersized comparison tier
// gets: mildly above neutral, never an extreme, because ranking against one
// or two peers says almost nothing.
const smallTierScore = 7.0

// Clamp bounds v to [lo, hi]. Components may compute out-of-range
// intermediates but must clamp before returning.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScaleLowBest linearly maps v against the population into [lo, hi], with
// the population minimum landing on hi (best) and the maximum on lo
// (worst). Use it for quantities where lower raw values are better, such as
// cost per quality point. A degenerate population (all values equal, or a
// single member) returns the range midpoint rather than dividing by zero.
func ScaleLowBest(v float64, population []float64, lo, hi float64) float64 {
	if len(population) == 0 {
		return (lo + hi) / 2
	}
	min, max := population[0], population[0]
	for _, p := range population[1:] {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	if max == min {
		return (lo + hi) / 2
	}
	// min -> hi, max -> lo
	return hi - (v-min)/(max-min)*(hi-lo)
}

// Damp blends raw toward neutral in proportion to how few observations
// support it: result = weight*raw + (1-weight)*neutral. Zero observations
// yield neutral exactly; the weight steps converge toward the raw score as
// the sample grows. A 5/5 from one reviewer and a 5/5 from fifty must not
// read as equally informative.
func Damp(raw float64, n int, neutral float64) float64 {
	w := confidenceWeight(n)
	return w*raw + (1-w)*neutral
}

func confidenceWeight(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 0.7
	case n == 2:
		return 0.85
	default:
		return 0.95
	}
}
