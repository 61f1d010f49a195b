// Package cache holds the capacity-bounded entry store, its eviction policy
// and weighted sampling. The store is not goroutine-safe; the owning service
// serializes access.
package cache

import (
	"container/list"
	"errors"
	"math"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

var (
	ErrDuplicateID   = errors.New("cache: entry id already stored")
	ErrDuplicateHash = errors.New("cache: content hash already stored")
)

// Store is a capacity-bounded collection of entries keyed by id, with a
// content-hash index and a recency list (front = most recently touched).
type Store struct {
	capacity      int
	batchFraction float64
	policy        EvictionPolicy

	entries map[string]*list.Element
	byHash  map[string]string
	recency *list.List
}

// NewStore creates a store. batchFraction is the share of capacity evicted
// at once when an insert would overflow.
func NewStore(capacity int, batchFraction float64, policy EvictionPolicy) *Store {
	if capacity < 1 {
		capacity = 1
	}
	if batchFraction <= 0 || batchFraction > 1 {
		batchFraction = 0.2
	}
	if policy == nil {
		policy = NewWeightedRecency()
	}
	return &Store{
		capacity:      capacity,
		batchFraction: batchFraction,
		policy:        policy,
		entries:       make(map[string]*list.Element, capacity),
		byHash:        make(map[string]string, capacity),
		recency:       list.New(),
	}
}

func (s *Store) Len() int      { return len(s.entries) }
func (s *Store) Capacity() int { return s.capacity }

// BatchSize is the number of entries removed by one eviction round.
func (s *Store) BatchSize() int {
	n := int(math.Floor(s.batchFraction * float64(s.capacity)))
	if n < 1 {
		n = 1
	}
	return n
}

// Get returns the entry without touching its recency.
func (s *Store) Get(id string) (*models.CacheEntry, bool) {
	el, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*models.CacheEntry), true
}

// ByHash returns the entry holding the exact content hash.
func (s *Store) ByHash(hash string) (*models.CacheEntry, bool) {
	id, ok := s.byHash[hash]
	if !ok {
		return nil, false
	}
	return s.Get(id)
}

// Insert adds an entry. If the store is full, a batch of victims chosen by
// the eviction policy is removed first and returned.
func (s *Store) Insert(e *models.CacheEntry, now time.Time) ([]*models.CacheEntry, error) {
	if _, ok := s.entries[e.ID]; ok {
		return nil, ErrDuplicateID
	}
	if _, ok := s.byHash[e.ContentHash]; ok {
		return nil, ErrDuplicateHash
	}

	var evicted []*models.CacheEntry
	if len(s.entries) >= s.capacity {
		n := s.BatchSize()
		if over := len(s.entries) - s.capacity + 1; over > n {
			n = over
		}
		for _, v := range s.policy.SelectVictims(s.All(), n, now) {
			if removed, ok := s.Remove(v.ID); ok {
				evicted = append(evicted, removed)
			}
		}
	}

	s.entries[e.ID] = s.recency.PushFront(e)
	s.byHash[e.ContentHash] = e.ID
	return evicted, nil
}

// Remove deletes an entry by id.
func (s *Store) Remove(id string) (*models.CacheEntry, bool) {
	el, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*models.CacheEntry)
	s.recency.Remove(el)
	delete(s.entries, id)
	if s.byHash[e.ContentHash] == id {
		delete(s.byHash, e.ContentHash)
	}
	return e, true
}

// Touch marks the entry as most recently used.
func (s *Store) Touch(id string) {
	if el, ok := s.entries[id]; ok {
		s.recency.MoveToFront(el)
	}
}

// Rehash moves an entry to a new content hash after its content changed.
func (s *Store) Rehash(id, newHash string) error {
	el, ok := s.entries[id]
	if !ok {
		return nil
	}
	e := el.Value.(*models.CacheEntry)
	if e.ContentHash == newHash {
		return nil
	}
	if _, taken := s.byHash[newHash]; taken {
		return ErrDuplicateHash
	}
	delete(s.byHash, e.ContentHash)
	e.ContentHash = newHash
	s.byHash[newHash] = id
	return nil
}

// Recent returns up to n entries, most recently touched first.
func (s *Store) Recent(n int) []*models.CacheEntry {
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]*models.CacheEntry, 0, n)
	for el := s.recency.Front(); el != nil && len(out) < n; el = el.Next() {
		out = append(out, el.Value.(*models.CacheEntry))
	}
	return out
}

// All returns every entry in recency order.
func (s *Store) All() []*models.CacheEntry {
	return s.Recent(len(s.entries))
}
