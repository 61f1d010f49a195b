package models

import (
	"slices"
	"sort"
	"time"
)

// CacheEntry is the unit stored by the cache.
type CacheEntry struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	Embedding       []float32 `json:"embedding"`
	ContentHash     string    `json:"contentHash"`
	QualityScore    float64   `json:"qualityScore"`
	UniquenessScore float64   `json:"uniquenessScore"`
	CognitiveWeight float64   `json:"cognitiveWeight"`
	AccessCount     int       `json:"accessCount"`
	CreatedAt       time.Time `json:"createdAt"`
	LastAccessed    time.Time `json:"lastAccessed"`
	Tags            []string  `json:"tags"`
	ClusterID       string    `json:"clusterId"`
}

// Clone returns a deep copy safe to hand out of the cache lock.
func (e *CacheEntry) Clone() *CacheEntry {
	c := *e
	c.Embedding = slices.Clone(e.Embedding)
	c.Tags = slices.Clone(e.Tags)
	return &c
}

// EntryState is the lifecycle position of a live entry.
type EntryState string

const (
	StateNew      EntryState = "NEW"
	StateActive   EntryState = "ACTIVE"
	StateDecaying EntryState = "DECAYING"
	// Terminal states are only reported, never stored.
	StateRemoved EntryState = "REMOVED"
	StateEvicted EntryState = "EVICTED"
)

// State derives the lifecycle state at now given the inactivity window.
// Insertion counts as the first access, so an entry is NEW until it is read
// or merged again.
func (e *CacheEntry) State(now time.Time, inactivity time.Duration) EntryState {
	if now.Sub(e.LastAccessed) > inactivity {
		return StateDecaying
	}
	if e.AccessCount <= 1 {
		return StateNew
	}
	return StateActive
}

// MergeTags returns the sorted union of two tag sets.
func MergeTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
