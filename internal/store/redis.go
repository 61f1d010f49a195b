package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

// DefaultRedisKey is the hash holding one field per entry id.
const DefaultRedisKey = "semcache:entries"

// RedisOptions holds connection settings for the Redis backend.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// HashClient is the subset of *redis.Client used by RedisStore.
type HashClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore persists entries as JSON values in a single Redis hash.
type RedisStore struct {
	client HashClient
	key    string
	logger *slog.Logger
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisStore, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", opts.Address, err)
	}
	logger.Info("connected to redis", "address", opts.Address, "db", opts.DB)
	return NewRedisStore(client, opts.Key, logger), client, nil
}

func NewRedisStore(client HashClient, key string, logger *slog.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

type redisRecord struct {
	Entry          *models.CacheEntry `json:"entry"`
	EmbeddingModel string             `json:"embeddingModel"`
}

// Persist writes the entry under its id.
func (s *RedisStore) Persist(ctx context.Context, e *models.CacheEntry) error {
	data, err := json.Marshal(redisRecord{Entry: e, EmbeddingModel: embedding.ModelName})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, e.ID, string(data)).Err(); err != nil {
		return fmt.Errorf("hset entry %s: %w", e.ID, err)
	}
	return nil
}

// Delete removes the entry's field.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.HDel(ctx, s.key, id).Err(); err != nil {
		return fmt.Errorf("hdel entry %s: %w", id, err)
	}
	return nil
}

// LoadAll returns every stored entry, least recently accessed first.
// Undecodable records are logged and skipped.
func (s *RedisStore) LoadAll(ctx context.Context) ([]*models.CacheEntry, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.key, err)
	}

	entries := make([]*models.CacheEntry, 0, len(fields))
	for id, raw := range fields {
		var rec redisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Entry == nil {
			s.logger.Warn("skipping undecodable redis entry", "id", id, "error", err)
			continue
		}
		if rec.EmbeddingModel != embedding.ModelName {
			rec.Entry.Embedding = nil
		}
		entries = append(entries, rec.Entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastAccessed.Equal(entries[j].LastAccessed) {
			return entries[i].LastAccessed.Before(entries[j].LastAccessed)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Ping checks the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
