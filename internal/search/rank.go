package search

import (
	"sort"
)

// Scored pairs an item with its similarity to a query.
type Scored[T any] struct {
	Item  T
	Score float64
}

// TopK returns the k items most similar to query, highest first. Items whose
// vector has a different dimension score 0. Ties keep input order.
func TopK[T any](query []float32, items []T, vector func(T) []float32, k int) []Scored[T] {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	scored := make([]Scored[T], len(items))
	for i, it := range items {
		scored[i] = Scored[T]{Item: it, Score: CosineSimilarity(query, vector(it))}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// TagOverlap returns the Jaccard overlap |have ∩ want| / |have ∪ want|
// over de-duplicated tags. An empty want set overlaps nothing.
func TagOverlap(have, want []string) float64 {
	if len(want) == 0 {
		return 0
	}
	wanted := make(map[string]bool, len(want))
	for _, t := range want {
		wanted[t] = true
	}
	union := len(wanted)
	hits := 0
	seen := make(map[string]bool, len(have))
	for _, t := range have {
		if seen[t] {
			continue
		}
		seen[t] = true
		if wanted[t] {
			hits++
		} else {
			union++
		}
	}
	return float64(hits) / float64(union)
}
