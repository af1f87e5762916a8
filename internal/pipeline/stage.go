package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Stage identifies one named, versioned unit of pipeline work. Version must
// be bumped whenever the stage's logic changes in any way that affects its
// output; that is the only sanctioned way to force recomputation of inputs
// the cache has already seen.
type Stage struct {
	Name    string
	Version string
}

func (s Stage) String() string {
	return s.Name + "@" + s.Version
}

// Run executes fn for input through the cache. On a hit the cached value is
// returned without invoking fn; on a miss fn runs and its result is written
// through before being returned. If fn fails nothing is cached, so a retried
// run with the same input starts from scratch.
//
// Caching is keyed by input, not by position in the pipeline: a per-item
// stage can therefore skip every input it has ever seen while still
// computing the one listing that changed.
func Run[I, O any](ctx context.Context, cache *Cache, stage Stage, input I, fn func(context.Context, I) (O, error)) (O, error) {
	var zero O

	key, err := Fingerprint(stage.Name, stage.Version, input)
	if err != nil {
		return zero, fmt.Errorf("stage %s: %w", stage, err)
	}

	if data, ok := cache.Get(key); ok {
		var out O
		if err := json.Unmarshal(data, &out); err != nil {
			// Entry parses as JSON but not as O: the stored shape predates
			// a version bump that should have happened. Recompute.
			log.Printf("[pipeline] %s cached entry does not decode, recomputing: %v", stage, err)
		} else {
			log.Printf("[pipeline] %s cache hit (%s)", stage, shortKey(key))
			return out, nil
		}
	}

	log.Printf("[pipeline] %s computing (%s)", stage, shortKey(key))
	out, err := fn(ctx, input)
	if err != nil {
		return zero, fmt.Errorf("stage %s: %w", stage, err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("stage %s: serialize output: %w", stage, err)
	}
	if err := cache.Put(key, data); err != nil {
		return zero, fmt.Errorf("stage %s: %w", stage, err)
	}
	return out, nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
