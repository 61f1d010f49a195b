package memory

import (
	"github.com/iammorganparry/clive/apps/semcache/internal/cache"
	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/search"
)

// DedupResult captures the outcome of a duplicate check.
type DedupResult struct {
	// ExactDuplicateID is set when an entry already holds the content hash.
	ExactDuplicateID string
	// BestID is the sampled entry most similar to the fragment.
	BestID string
	// BestSimilarity is the highest similarity found in the sample.
	BestSimilarity float64
}

// Deduplicator checks a fragment against the store: exact hash first, then
// similarity against a bounded sample of the most recently touched entries.
type Deduplicator struct {
	store      *cache.Store
	sampleSize int
}

func NewDeduplicator(store *cache.Store, sampleSize int) *Deduplicator {
	if sampleSize <= 0 {
		sampleSize = 50
	}
	return &Deduplicator{store: store, sampleSize: sampleSize}
}

// CheckDuplicate compares by cosine similarity when both sides have an
// embedding and by fingerprint overlap when either side was degraded. A nil
// vec marks the fragment itself as degraded.
func (d *Deduplicator) CheckDuplicate(hash string, vec []float32, fp embedding.Fingerprint) DedupResult {
	result := DedupResult{}

	if existing, ok := d.store.ByHash(hash); ok {
		result.ExactDuplicateID = existing.ID
		return result
	}

	for _, e := range d.store.Recent(d.sampleSize) {
		var sim float64
		if vec == nil || search.IsZero(e.Embedding) {
			sim = fp.Overlap(embedding.NewFingerprint(e.Content))
		} else {
			sim = search.CosineSimilarity(vec, e.Embedding)
		}
		if sim > result.BestSimilarity {
			result.BestSimilarity = sim
			result.BestID = e.ID
		}
	}
	return result
}
