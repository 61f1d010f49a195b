package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/lexicon"
	"github.com/iammorganparry/clive/apps/semcache/internal/memory"
	"github.com/iammorganparry/clive/apps/semcache/internal/scheduler"
	"github.com/iammorganparry/clive/apps/semcache/internal/scoring"
	"github.com/iammorganparry/clive/apps/semcache/internal/store"
)

// Persistence backends.
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Port     int
	LogLevel string
	APIKey   string

	// Cache engine
	Capacity               int
	NearDuplicateThreshold float64
	MinQuality             float64
	MinUniqueness          float64
	DecayFactor            float64
	SurvivalFloor          float64
	InactivityWindow       time.Duration
	CycleInterval          time.Duration
	EvictionBatchFraction  float64
	MinLength              int
	MaxLength              int
	SampleSize             int
	EmbedDim               int
	AutoTune               bool
	LexiconPath            string

	// Cognitive weight formula
	Weight scoring.WeightConfig

	// Consolidation
	ConsolidateSchedule string

	// Persistence
	Backend       string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

func Load() (*Config, error) {
	def := memory.DefaultConfig()
	cfg := &Config{
		Port:                   envInt("PORT", 8742),
		LogLevel:               envStr("LOG_LEVEL", "info"),
		APIKey:                 envStr("API_KEY", ""),
		Capacity:               envInt("CACHE_CAPACITY", def.Capacity),
		NearDuplicateThreshold: envFloat("CACHE_NEAR_DUP_THRESHOLD", def.NearDuplicateThreshold),
		MinQuality:             envFloat("CACHE_MIN_QUALITY", def.MinQuality),
		MinUniqueness:          envFloat("CACHE_MIN_UNIQUENESS", def.MinUniqueness),
		DecayFactor:            envFloat("CACHE_DECAY_FACTOR", def.DecayFactor),
		SurvivalFloor:          envFloat("CACHE_SURVIVAL_FLOOR", def.SurvivalFloor),
		InactivityWindow:       envDuration("CACHE_INACTIVITY_WINDOW", def.InactivityWindow),
		CycleInterval:          envDuration("CACHE_CYCLE_INTERVAL", def.CycleInterval),
		EvictionBatchFraction:  envFloat("CACHE_EVICTION_BATCH", def.EvictionBatchFraction),
		MinLength:              envInt("CACHE_MIN_LENGTH", def.MinLength),
		MaxLength:              envInt("CACHE_MAX_LENGTH", def.MaxLength),
		SampleSize:             envInt("CACHE_SAMPLE_SIZE", def.SampleSize),
		EmbedDim:               envInt("CACHE_EMBED_DIM", embedding.DefaultDimension),
		AutoTune:               envBool("CACHE_AUTO_TUNE", def.AutoTune),
		LexiconPath:            envStr("CACHE_LEXICON_PATH", ""),
		Weight: scoring.WeightConfig{
			QualityCoef:    envFloat("CACHE_WEIGHT_QUALITY", def.Weight.QualityCoef),
			UniquenessCoef: envFloat("CACHE_WEIGHT_UNIQUENESS", def.Weight.UniquenessCoef),
			LengthCoef:     envFloat("CACHE_WEIGHT_LENGTH", def.Weight.LengthCoef),
			IdealTokens:    envFloat("CACHE_WEIGHT_IDEAL_TOKENS", def.Weight.IdealTokens),
			TokenSpread:    envFloat("CACHE_WEIGHT_TOKEN_SPREAD", def.Weight.TokenSpread),
		},
		ConsolidateSchedule:    envStr("CONSOLIDATE_SCHEDULE", scheduler.DefaultSchedule),
		Backend:                strings.ToLower(envStr("PERSIST_BACKEND", BackendSQLite)),
		DBPath:                 envStr("CACHE_DB_PATH", "/data/semcache.db"),
		RedisAddr:              envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          envStr("REDIS_PASSWORD", ""),
		RedisDB:                envInt("REDIS_DB", 0),
		RedisKey:               envStr("REDIS_KEY", store.DefaultRedisKey),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.EmbedDim < 1 {
		return fmt.Errorf("CACHE_EMBED_DIM must be positive, got %d", c.EmbedDim)
	}
	if c.MinLength < 0 {
		return fmt.Errorf("CACHE_MIN_LENGTH must not be negative, got %d", c.MinLength)
	}
	switch c.Backend {
	case BackendNone, BackendRedis:
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("CACHE_DB_PATH must not be empty")
		}
	default:
		return fmt.Errorf("PERSIST_BACKEND must be one of none, sqlite, redis, got %q", c.Backend)
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must not be empty")
	}
	if err := scheduler.ValidateSchedule(c.ConsolidateSchedule); err != nil {
		return fmt.Errorf("CONSOLIDATE_SCHEDULE: %w", err)
	}
	if err := c.Memory().Validate(); err != nil {
		return err
	}
	return nil
}

// Memory returns the cache engine configuration.
func (c *Config) Memory() memory.Config {
	m := memory.DefaultConfig()
	m.Capacity = c.Capacity
	m.NearDuplicateThreshold = c.NearDuplicateThreshold
	m.MinQuality = c.MinQuality
	m.MinUniqueness = c.MinUniqueness
	m.DecayFactor = c.DecayFactor
	m.SurvivalFloor = c.SurvivalFloor
	m.InactivityWindow = c.InactivityWindow
	m.CycleInterval = c.CycleInterval
	m.EvictionBatchFraction = c.EvictionBatchFraction
	m.MinLength = c.MinLength
	m.MaxLength = c.MaxLength
	m.SampleSize = c.SampleSize
	m.AutoTune = c.AutoTune
	m.Weight = c.Weight
	return m
}

// Lexicon loads the configured keyword table, falling back to the built-in one.
func (c *Config) Lexicon() (*lexicon.Lexicon, error) {
	if c.LexiconPath == "" {
		return lexicon.Default(), nil
	}
	lex, err := lexicon.LoadFile(c.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	return lex, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
