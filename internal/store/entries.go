package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/models"
	"github.com/iammorganparry/clive/apps/semcache/internal/search"
)

// entryColumns is the canonical column list for all SELECT queries.
// Order must match scanEntry.
const entryColumns = `id, content, content_hash, embedding, embedding_model,
	quality_score, uniqueness_score, cognitive_weight, access_count,
	tags, cluster_id, created_at, last_accessed_at`

// EntryStore persists cache entries in SQLite.
type EntryStore struct {
	db *DB
}

func NewEntryStore(db *DB) *EntryStore {
	return &EntryStore{db: db}
}

// Persist inserts or replaces an entry.
func (s *EntryStore) Persist(ctx context.Context, e *models.CacheEntry) error {
	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (
			id, content, content_hash, embedding, embedding_model,
			quality_score, uniqueness_score, cognitive_weight, access_count,
			tags, cluster_id, created_at, last_accessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			content_hash = excluded.content_hash,
			embedding = excluded.embedding,
			embedding_model = excluded.embedding_model,
			quality_score = excluded.quality_score,
			uniqueness_score = excluded.uniqueness_score,
			cognitive_weight = excluded.cognitive_weight,
			access_count = excluded.access_count,
			tags = excluded.tags,
			cluster_id = excluded.cluster_id,
			last_accessed_at = excluded.last_accessed_at
	`,
		e.ID, e.Content, e.ContentHash, search.Float32ToBytes(e.Embedding), embedding.ModelName,
		e.QualityScore, e.UniquenessScore, e.CognitiveWeight, e.AccessCount,
		string(tagsJSON), e.ClusterID, e.CreatedAt.UnixMilli(), e.LastAccessed.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (s *EntryStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// LoadAll returns every persisted entry, least recently accessed first.
// Vectors written by a different embedding model are dropped so the cache
// recomputes them.
func (s *EntryStore) LoadAll(ctx context.Context) ([]*models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM cache_entries ORDER BY last_accessed_at ASC, id ASC`, entryColumns))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// get fetches one entry by id, or nil when absent.
func (s *EntryStore) get(ctx context.Context, id string) (*models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM cache_entries WHERE id = ?`, entryColumns), id)
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanEntry(rows)
}

// Ping checks the database is reachable.
func (s *EntryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanEntry(rows *sql.Rows) (*models.CacheEntry, error) {
	var (
		e                     models.CacheEntry
		emb                   []byte
		model                 string
		tagsJSON              sql.NullString
		createdAt, lastAccess int64
	)
	if err := rows.Scan(
		&e.ID, &e.Content, &e.ContentHash, &emb, &model,
		&e.QualityScore, &e.UniquenessScore, &e.CognitiveWeight, &e.AccessCount,
		&tagsJSON, &e.ClusterID, &createdAt, &lastAccess,
	); err != nil {
		return nil, err
	}
	if model == embedding.ModelName {
		e.Embedding = search.BytesToFloat32(emb)
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &e.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", e.ID, err)
		}
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	e.LastAccessed = time.UnixMilli(lastAccess).UTC()
	return &e, nil
}
