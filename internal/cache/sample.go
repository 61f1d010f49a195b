package cache

import (
	"math"
	"sort"

	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

// Rand is the subset of *math/rand/v2.Rand used for sampling.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// SampleWeighted draws k entries with replacement, each with probability
// proportional to its cognitive weight. Non-positive or non-finite weights
// are never drawn; if no entry has positive weight, draws are uniform.
func SampleWeighted(entries []*models.CacheEntry, k int, rng Rand) []*models.CacheEntry {
	if k <= 0 || len(entries) == 0 {
		return nil
	}

	cum := make([]float64, len(entries))
	var total float64
	for i, e := range entries {
		w := e.CognitiveWeight
		if w > 0 && !math.IsInf(w, 0) {
			total += w
		}
		cum[i] = total
	}

	out := make([]*models.CacheEntry, k)
	for i := range out {
		if total == 0 {
			out[i] = entries[rng.IntN(len(entries))]
			continue
		}
		r := rng.Float64() * total
		idx := sort.Search(len(cum), func(j int) bool { return cum[j] > r })
		if idx == len(cum) {
			idx = len(cum) - 1
		}
		out[i] = entries[idx]
	}
	return out
}
