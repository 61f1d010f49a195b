package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

var ts = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func sampleEntry(id string, lastAccessed time.Time) *models.CacheEntry {
	return &models.CacheEntry{
		ID:              id,
		Content:         "la luz del alma " + id,
		Embedding:       []float32{0.6, 0, -0.8},
		ContentHash:     "hash-" + id,
		QualityScore:    0.7,
		UniquenessScore: 0.9,
		CognitiveWeight: 0.75,
		AccessCount:     2,
		CreatedAt:       ts,
		LastAccessed:    lastAccessed,
		Tags:            []string{"conciencia", "percepcion"},
		ClusterID:       "conciencia",
	}
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEntryStore(t *testing.T) {
	db := setupTestDB(t)
	s := NewEntryStore(db)
	ctx := context.Background()

	t.Run("Persist and Get round-trip", func(t *testing.T) {
		e := sampleEntry("a", ts.Add(time.Hour))
		if err := s.Persist(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := s.get(ctx, "a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected entry, got nil")
		}
		if got.Content != e.Content || got.ContentHash != e.ContentHash || got.ClusterID != e.ClusterID {
			t.Fatalf("unexpected entry %+v", got)
		}
		if len(got.Embedding) != 3 || got.Embedding[2] != -0.8 {
			t.Fatalf("embedding not preserved: %v", got.Embedding)
		}
		if len(got.Tags) != 2 || got.Tags[1] != "percepcion" {
			t.Fatalf("tags not preserved: %v", got.Tags)
		}
		if !got.CreatedAt.Equal(e.CreatedAt) || !got.LastAccessed.Equal(e.LastAccessed) {
			t.Fatalf("timestamps not preserved: %v %v", got.CreatedAt, got.LastAccessed)
		}
	})

	t.Run("Persist upserts", func(t *testing.T) {
		e := sampleEntry("a", ts.Add(2*time.Hour))
		e.AccessCount = 5
		e.Content = "contenido nuevo"
		if err := s.Persist(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := s.get(ctx, "a")
		if got.AccessCount != 5 || got.Content != "contenido nuevo" {
			t.Fatalf("expected updated entry, got %+v", got)
		}
		if n, _ := db.EntryCount(); n != 1 {
			t.Fatalf("expected 1 row, got %d", n)
		}
	})

	t.Run("LoadAll orders by last access", func(t *testing.T) {
		s.Persist(ctx, sampleEntry("b", ts))
		s.Persist(ctx, sampleEntry("c", ts.Add(10*time.Hour)))
		all, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 3 || all[0].ID != "b" || all[1].ID != "a" || all[2].ID != "c" {
			t.Fatalf("unexpected order")
		}
	})

	t.Run("stale embedding model drops the vector", func(t *testing.T) {
		if _, err := db.Exec(`UPDATE cache_entries SET embedding_model = 'old-model' WHERE id = 'b'`); err != nil {
			t.Fatal(err)
		}
		got, _ := s.get(ctx, "b")
		if got.Embedding != nil {
			t.Fatalf("expected embedding dropped, got %v", got.Embedding)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, _ := s.get(ctx, "a"); got != nil {
			t.Fatal("expected entry deleted")
		}
		if err := s.Delete(ctx, "missing"); err != nil {
			t.Fatalf("deleting a missing entry must succeed: %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	NewEntryStore(db).Persist(context.Background(), sampleEntry("a", ts))
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if n, _ := db.EntryCount(); n != 1 {
		t.Fatalf("expected data to survive reopen, got %d rows", n)
	}
}

func TestFreshSchemaHasEmbeddingModel(t *testing.T) {
	db := setupTestDB(t)

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('cache_entries') WHERE name = 'embedding_model'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected embedding_model column on a fresh database, found %d", n)
	}

	// Rows written without a model fall back to the column default.
	if _, err := db.Exec(`INSERT INTO cache_entries (id, content, content_hash, created_at, last_accessed_at) VALUES ('x', 'hola', 'h', 1, 1)`); err != nil {
		t.Fatal(err)
	}
	var model string
	if err := db.QueryRow(`SELECT embedding_model FROM cache_entries WHERE id = 'x'`).Scan(&model); err != nil {
		t.Fatal(err)
	}
	if model != "" {
		t.Fatalf("expected empty default model, got %q", model)
	}
}

// fakeHash is an in-memory HashClient.
type fakeHash struct {
	mu      sync.Mutex
	data    map[string]map[string]string
	failErr error
}

func newFakeHash() *fakeHash {
	return &fakeHash{data: make(map[string]map[string]string)}
}

func (f *fakeHash) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return redis.NewIntResult(0, f.failErr)
	}
	h := f.data[key]
	if h == nil {
		h = make(map[string]string)
		f.data[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHash) HDel(_ context.Context, key string, fields ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, field := range fields {
		if _, ok := f.data[key][field]; ok {
			delete(f.data[key], field)
			n++
		}
	}
	return redis.NewIntResult(int64(n), f.failErr)
}

func (f *fakeHash) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.data[key]))
	for k, v := range f.data[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, f.failErr)
}

func (f *fakeHash) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.failErr)
}

func TestRedisStore(t *testing.T) {
	client := newFakeHash()
	s := NewRedisStore(client, "", nil)
	ctx := context.Background()

	if err := s.Persist(ctx, sampleEntry("a", ts.Add(time.Hour))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Persist(ctx, sampleEntry("b", ts)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.data[DefaultRedisKey]["a"]; !ok {
		t.Fatalf("expected entry under %s", DefaultRedisKey)
	}

	client.data[DefaultRedisKey]["corrupt"] = "{not json"

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].ID != "b" || all[1].ID != "a" {
		t.Fatalf("expected [b a] skipping the corrupt record, got %d entries", len(all))
	}
	if len(all[1].Embedding) != 3 || all[1].Tags[0] != "conciencia" || !all[1].LastAccessed.Equal(ts.Add(time.Hour)) {
		t.Fatalf("entry not preserved: %+v", all[1])
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all, _ := s.LoadAll(ctx); len(all) != 1 {
		t.Fatalf("expected 1 entry after delete, got %d", len(all))
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	client.failErr = errors.New("connection reset")
	if err := s.Persist(ctx, sampleEntry("c", ts)); err == nil {
		t.Fatal("expected persist error")
	}
	if _, err := s.LoadAll(ctx); err == nil {
		t.Fatal("expected load error")
	}
	if err := s.Ping(ctx); err == nil {
		t.Fatal("expected ping error")
	}
}
