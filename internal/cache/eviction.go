package cache

import (
	"math"
	"sort"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

// EvictionPolicy ranks entries for capacity-driven removal.
type EvictionPolicy interface {
	// SelectVictims returns up to n entries to evict, least valuable first.
	SelectVictims(entries []*models.CacheEntry, n int, now time.Time) []*models.CacheEntry
}

const (
	// DefaultHalfLife is the idle time at which age decay reaches half its ceiling.
	DefaultHalfLife = 72 * time.Hour
	// DefaultDecayCeiling is the asymptote of age decay.
	DefaultDecayCeiling = 0.9
)

// WeightedRecency scores entries as
// cognitiveWeight * ln(accessCount+1) * (1 - ageDecay(idle)).
type WeightedRecency struct {
	HalfLife time.Duration
	Ceiling  float64
}

// NewWeightedRecency returns the policy with default half-life and ceiling.
func NewWeightedRecency() WeightedRecency {
	return WeightedRecency{HalfLife: DefaultHalfLife, Ceiling: DefaultDecayCeiling}
}

// AgeDecay rises from 0 toward ceiling as idle time grows; at one half-life
// it is ceiling/2.
func AgeDecay(idle, halfLife time.Duration, ceiling float64) float64 {
	if idle <= 0 || halfLife <= 0 {
		return 0
	}
	return ceiling * (1 - math.Exp2(-float64(idle)/float64(halfLife)))
}

// Score is the eviction score of one entry; lower is evicted first.
func (p WeightedRecency) Score(e *models.CacheEntry, now time.Time) float64 {
	decay := AgeDecay(now.Sub(e.LastAccessed), p.HalfLife, p.Ceiling)
	return e.CognitiveWeight * math.Log(float64(e.AccessCount)+1) * (1 - decay)
}

// SelectVictims sorts by score ascending. Ties fall back to lower weight,
// then older lastAccessed, then id.
func (p WeightedRecency) SelectVictims(entries []*models.CacheEntry, n int, now time.Time) []*models.CacheEntry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	type ranked struct {
		e     *models.CacheEntry
		score float64
	}
	rs := make([]ranked, len(entries))
	for i, e := range entries {
		rs[i] = ranked{e: e, score: p.Score(e, now)}
	}
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.score != b.score {
			return a.score < b.score
		}
		if a.e.CognitiveWeight != b.e.CognitiveWeight {
			return a.e.CognitiveWeight < b.e.CognitiveWeight
		}
		if !a.e.LastAccessed.Equal(b.e.LastAccessed) {
			return a.e.LastAccessed.Before(b.e.LastAccessed)
		}
		return a.e.ID < b.e.ID
	})
	if n > len(rs) {
		n = len(rs)
	}
	victims := make([]*models.CacheEntry, n)
	for i := range victims {
		victims[i] = rs[i].e
	}
	return victims
}
