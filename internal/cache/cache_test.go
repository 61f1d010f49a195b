package cache

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func entry(id string, weight float64, access int, last time.Time) *models.CacheEntry {
	return &models.CacheEntry{
		ID:              id,
		ContentHash:     "h-" + id,
		CognitiveWeight: weight,
		AccessCount:     access,
		CreatedAt:       last,
		LastAccessed:    last,
	}
}

func TestStoreInsertAndLookup(t *testing.T) {
	s := NewStore(10, 0.2, nil)

	if _, err := s.Insert(entry("a", 0.5, 0, t0), t0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(entry("a", 0.5, 0, t0), t0); err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	dup := entry("b", 0.5, 0, t0)
	dup.ContentHash = "h-a"
	if _, err := s.Insert(dup, t0); err != ErrDuplicateHash {
		t.Fatalf("expected ErrDuplicateHash, got %v", err)
	}

	if e, ok := s.ByHash("h-a"); !ok || e.ID != "a" {
		t.Fatalf("expected hash lookup to find a, got %v %v", e, ok)
	}
	if _, ok := s.Remove("a"); !ok {
		t.Fatal("expected remove to succeed")
	}
	if _, ok := s.ByHash("h-a"); ok {
		t.Fatal("expected hash index cleared on remove")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestStoreRecency(t *testing.T) {
	s := NewStore(10, 0.2, nil)
	for _, id := range []string{"a", "b", "c"} {
		s.Insert(entry(id, 0.5, 0, t0), t0)
	}
	s.Touch("a")

	got := s.Recent(2)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected recency order: %v", ids(got))
	}
	if n := len(s.Recent(50)); n != 3 {
		t.Fatalf("expected Recent to cap at store size, got %d", n)
	}
}

func TestStoreRehash(t *testing.T) {
	s := NewStore(10, 0.2, nil)
	s.Insert(entry("a", 0.5, 0, t0), t0)
	s.Insert(entry("b", 0.5, 0, t0), t0)

	if err := s.Rehash("a", "h-b"); err != ErrDuplicateHash {
		t.Fatalf("expected ErrDuplicateHash, got %v", err)
	}
	if err := s.Rehash("a", "h-new"); err != nil {
		t.Fatalf("rehash: %v", err)
	}
	if _, ok := s.ByHash("h-a"); ok {
		t.Fatal("old hash still indexed")
	}
	if e, ok := s.ByHash("h-new"); !ok || e.ID != "a" {
		t.Fatal("new hash not indexed")
	}
}

func TestStoreEviction(t *testing.T) {
	t.Run("evicts a batch before inserting", func(t *testing.T) {
		s := NewStore(10, 0.2, nil)
		for i := 0; i < 10; i++ {
			s.Insert(entry(fmt.Sprintf("e%02d", i), 0.1*float64(i+1), 0, t0), t0)
		}
		evicted, err := s.Insert(entry("new", 0.5, 0, t0), t0)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if len(evicted) != 2 {
			t.Fatalf("expected batch of 2, got %d", len(evicted))
		}
		// All scores tie at zero, so the lowest weights go first.
		if evicted[0].ID != "e00" || evicted[1].ID != "e01" {
			t.Fatalf("unexpected victims: %v", ids(evicted))
		}
		if s.Len() != 9 {
			t.Fatalf("expected 9 entries, got %d", s.Len())
		}
	})

	t.Run("never exceeds capacity with a batch of one", func(t *testing.T) {
		s := NewStore(500, 0.002, nil)
		for i := 0; i < 501; i++ {
			if _, err := s.Insert(entry(fmt.Sprintf("e%03d", i), 0.5, 0, t0), t0); err != nil {
				t.Fatalf("insert %d: %v", i, err)
			}
			if s.Len() > 500 {
				t.Fatalf("store exceeded capacity at %d", i)
			}
		}
		if s.Len() != 500 {
			t.Fatalf("expected 500, got %d", s.Len())
		}
	})
}

func TestWeightedRecency(t *testing.T) {
	p := NewWeightedRecency()

	if d := AgeDecay(DefaultHalfLife, DefaultHalfLife, DefaultDecayCeiling); math.Abs(d-0.45) > 1e-9 {
		t.Fatalf("expected half the ceiling at one half-life, got %f", d)
	}
	if d := AgeDecay(0, DefaultHalfLife, DefaultDecayCeiling); d != 0 {
		t.Fatalf("expected no decay when fresh, got %f", d)
	}

	fresh := entry("fresh", 0.5, 3, t0)
	stale := entry("stale", 0.5, 3, t0.Add(-30*24*time.Hour))
	if p.Score(stale, t0) >= p.Score(fresh, t0) {
		t.Fatal("expected idle entries to score lower")
	}

	popular := entry("popular", 0.5, 10, t0)
	victims := p.SelectVictims([]*models.CacheEntry{popular, fresh, stale}, 2, t0)
	if len(victims) != 2 || victims[0].ID != "stale" || victims[1].ID != "fresh" {
		t.Fatalf("unexpected victims: %v", ids(victims))
	}

	t.Run("ties break by lastAccessed then id", func(t *testing.T) {
		a := entry("b", 0.5, 0, t0)
		b := entry("a", 0.5, 0, t0)
		c := entry("c", 0.5, 0, t0.Add(-time.Hour))
		v := p.SelectVictims([]*models.CacheEntry{a, b, c}, 3, t0)
		if v[0].ID != "c" || v[1].ID != "a" || v[2].ID != "b" {
			t.Fatalf("unexpected order: %v", ids(v))
		}
	})
}

func TestSampleWeighted(t *testing.T) {
	t.Run("frequencies follow weights", func(t *testing.T) {
		entries := []*models.CacheEntry{
			entry("a", 1.0, 0, t0),
			entry("b", 0.5, 0, t0),
			entry("c", 0.25, 0, t0),
		}
		rng := rand.New(rand.NewPCG(1, 2))
		counts := map[string]int{}
		for _, e := range SampleWeighted(entries, 10000, rng) {
			counts[e.ID]++
		}
		want := map[string]float64{"a": 4.0 / 7, "b": 2.0 / 7, "c": 1.0 / 7}
		for id, p := range want {
			got := float64(counts[id]) / 10000
			if math.Abs(got-p) > 0.03 {
				t.Errorf("%s: expected frequency %.3f, got %.3f", id, p, got)
			}
		}
	})

	t.Run("zero weights are never drawn", func(t *testing.T) {
		entries := []*models.CacheEntry{
			entry("zero", 0, 0, t0),
			entry("live", 0.3, 0, t0),
			entry("nan", math.NaN(), 0, t0),
		}
		rng := rand.New(rand.NewPCG(3, 4))
		for _, e := range SampleWeighted(entries, 500, rng) {
			if e.ID != "live" {
				t.Fatalf("drew %s", e.ID)
			}
		}
	})

	t.Run("uniform when all weights are zero", func(t *testing.T) {
		entries := []*models.CacheEntry{entry("a", 0, 0, t0), entry("b", 0, 0, t0)}
		rng := rand.New(rand.NewPCG(5, 6))
		got := SampleWeighted(entries, 100, rng)
		if len(got) != 100 {
			t.Fatalf("expected 100 draws, got %d", len(got))
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(7, 8))
		if got := SampleWeighted(nil, 5, rng); got != nil {
			t.Fatalf("expected nil, got %v", got)
		}
		if got := SampleWeighted([]*models.CacheEntry{entry("a", 1, 0, t0)}, 0, rng); got != nil {
			t.Fatalf("expected nil, got %v", got)
		}
	})
}

func ids(es []*models.CacheEntry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}
