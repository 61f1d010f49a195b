// Package memory is the cache engine: ingestion with deduplication and the
// quality gate, access, queries, and the consolidation cycle.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iammorganparry/clive/apps/semcache/internal/cache"
	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/lexicon"
	"github.com/iammorganparry/clive/apps/semcache/internal/models"
	"github.com/iammorganparry/clive/apps/semcache/internal/sanitize"
	"github.com/iammorganparry/clive/apps/semcache/internal/scoring"
	"github.com/iammorganparry/clive/apps/semcache/internal/search"
)

var (
	ErrNotFound      = errors.New("entry not found")
	ErrInvalidVector = errors.New("invalid query vector")
)

// Config holds the tunable parameters of one cache instance.
type Config struct {
	Capacity               int
	NearDuplicateThreshold float64
	MinQuality             float64
	MinUniqueness          float64
	DecayFactor            float64
	SurvivalFloor          float64
	InactivityWindow       time.Duration
	EvictionBatchFraction  float64
	CycleInterval          time.Duration

	MinLength  int // runes, after sanitisation
	MaxLength  int
	SampleSize int // entries compared per ingestion

	MergeBoost  float64
	AccessBoost float64
	AutoTune    bool
	TuneStep    float64
	QueueSize   int

	Weight scoring.WeightConfig
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:               500,
		NearDuplicateThreshold: 0.85,
		MinQuality:             0.3,
		MinUniqueness:          0.4,
		DecayFactor:            0.99,
		SurvivalFloor:          0.01,
		InactivityWindow:       24 * time.Hour,
		EvictionBatchFraction:  0.2,
		CycleInterval:          time.Hour,
		MinLength:              12,
		MaxLength:              4000,
		SampleSize:             50,
		MergeBoost:             0.05,
		AccessBoost:            0.01,
		AutoTune:               true,
		TuneStep:               0.02,
		QueueSize:              1024,
		Weight:                 scoring.DefaultWeightConfig,
	}
}

// Validate checks the ranges the engine relies on.
func (c Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	for name, v := range map[string]float64{
		"near-duplicate threshold": c.NearDuplicateThreshold,
		"min quality":              c.MinQuality,
		"min uniqueness":           c.MinUniqueness,
		"survival floor":           c.SurvivalFloor,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %f", name, v)
		}
	}
	if c.AutoTune {
		for name, v := range map[string]float64{"min quality": c.MinQuality, "min uniqueness": c.MinUniqueness} {
			if v < tuneFloor || v > tuneCeiling {
				return fmt.Errorf("%s must be in [%.1f,%.1f] when self-tuning, got %f", name, tuneFloor, tuneCeiling, v)
			}
		}
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		return fmt.Errorf("decay factor must be in (0,1), got %f", c.DecayFactor)
	}
	if c.EvictionBatchFraction <= 0 || c.EvictionBatchFraction > 1 {
		return fmt.Errorf("eviction batch fraction must be in (0,1], got %f", c.EvictionBatchFraction)
	}
	if c.MinLength > c.MaxLength {
		return fmt.Errorf("min length %d exceeds max length %d", c.MinLength, c.MaxLength)
	}
	if c.InactivityWindow < 0 || c.CycleInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if err := c.Weight.Validate(); err != nil {
		return fmt.Errorf("weight config: %w", err)
	}
	return nil
}

// Option injects a collaborator into the Service.
type Option func(*Service)

func WithEmbedder(e embedding.Embedder) Option { return func(s *Service) { s.embedder = e } }
func WithScorer(sc scoring.Scorer) Option { return func(s *Service) { s.scorer = sc } }
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }
func WithRand(r cache.Rand) Option { return func(s *Service) { s.rng = r } }
func WithPersister(p Persister) Option { return func(s *Service) { s.persister = p } }
func WithLexicon(l *lexicon.Lexicon) Option { return func(s *Service) { s.lexicon = l } }
func WithEvictionPolicy(p cache.EvictionPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// Service is one cache instance. Mutations (including Get, which counts as
// an access) hold the write lock; queries, sampling and Stats share the
// read lock.
type Service struct {
	cfg       Config
	lexicon   *lexicon.Lexicon
	embedder  embedding.Embedder
	scorer    scoring.Scorer
	clock     Clock
	policy    cache.EvictionPolicy
	persister Persister
	persist   *persistQueue
	logger    *slog.Logger

	mu            sync.RWMutex
	store         *cache.Store
	dedup         *Deduplicator
	minQuality    float64
	minUniqueness float64
	lastDecay     time.Time

	rngMu sync.Mutex
	rng   cache.Rand
}

// NewService creates a cache from configuration. Collaborators not supplied
// through options get production defaults: the hash embedder and lexicon
// scorer over the built-in lexicon, the system clock, a randomly seeded
// source and no persistence.
func NewService(cfg Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:           cfg,
		logger:        logger,
		minQuality:    cfg.MinQuality,
		minUniqueness: cfg.MinUniqueness,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.lexicon == nil {
		s.lexicon = lexicon.Default()
	}
	if s.embedder == nil {
		s.embedder = embedding.NewHashEmbedder(embedding.DefaultDimension, s.lexicon)
	}
	if s.scorer == nil {
		s.scorer = scoring.NewLexiconScorer(s.lexicon, scoring.DefaultWindowSize)
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.policy == nil {
		s.policy = cache.NewWeightedRecency()
	}
	if s.persister != nil {
		s.persist = newPersistQueue(s.persister, cfg.QueueSize, logger)
	}

	s.store = cache.NewStore(cfg.Capacity, cfg.EvictionBatchFraction, s.policy)
	s.dedup = NewDeduplicator(s.store, cfg.SampleSize)
	return s, nil
}

// Ingest runs one fragment through sanitisation, length validation, exact
// and near-duplicate detection, the quality gate and insertion. Every
// defined outcome is reported through the result status; the error is only
// non-nil when the store's own invariants are violated.
func (s *Service) Ingest(content, sourceURL string) (models.IngestResult, error) {
	content = sanitize.Clean(content)
	if n := utf8.RuneCountInString(content); n < s.cfg.MinLength || n > s.cfg.MaxLength {
		return models.IngestResult{Status: models.StatusRejectedLowQuality, Reason: models.ReasonLength}, nil
	}

	hash := embedding.ContentHash(content)
	fp := embedding.NewFingerprint(content)
	tokens := lexicon.Tokenize(content)

	vec, err := s.embedder.Embed(content)
	degraded := err != nil
	if degraded {
		s.logger.Warn("embedding failed, falling back to fingerprint", "source_url", sourceURL, "error", err)
		vec = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	d := s.dedup.CheckDuplicate(hash, vec, fp)
	if d.ExactDuplicateID != "" {
		return models.IngestResult{Status: models.StatusRejectedDuplicate, EntryID: d.ExactDuplicateID, Similarity: 1}, nil
	}

	stored := vec
	if degraded {
		stored = make([]float32, s.embedder.Dim())
	}

	if d.BestID != "" && d.BestSimilarity >= s.cfg.NearDuplicateThreshold {
		if err := s.merge(d.BestID, content, hash, stored, tokens, now); err != nil {
			return models.IngestResult{}, err
		}
		return models.IngestResult{
			Status:     models.StatusMerged,
			EntryID:    d.BestID,
			Similarity: d.BestSimilarity,
			Degraded:   degraded,
		}, nil
	}

	r := s.scorer.Score(content, d.BestSimilarity)
	if r.Quality <= s.minQuality && r.Uniqueness <= s.minUniqueness {
		return models.IngestResult{
			Status:     models.StatusRejectedLowQuality,
			Reason:     models.ReasonQuality,
			Similarity: d.BestSimilarity,
			Degraded:   degraded,
		}, nil
	}

	e := &models.CacheEntry{
		ID:              uuid.New().String(),
		Content:         content,
		Embedding:       stored,
		ContentHash:     hash,
		QualityScore:    clamp01(r.Quality),
		UniquenessScore: clamp01(r.Uniqueness),
		CognitiveWeight: s.cfg.Weight.CognitiveWeight(r),
		AccessCount:     1,
		CreatedAt:       now,
		LastAccessed:    now,
		Tags:            s.lexicon.Matches(tokens),
		ClusterID:       assignCluster(s.lexicon, tokens),
	}
	if err := s.insertLocked(e, now); err != nil {
		return models.IngestResult{}, err
	}
	s.persist.persist(e)

	s.logger.Debug("inserted entry", "id", e.ID, "weight", e.CognitiveWeight, "cluster", e.ClusterID, "source_url", sourceURL)
	return models.IngestResult{
		Status:     models.StatusInserted,
		EntryID:    e.ID,
		Similarity: d.BestSimilarity,
		Degraded:   degraded,
	}, nil
}

// merge folds an incoming near-duplicate into an existing entry.
func (s *Service) merge(id, content, hash string, vec []float32, tokens []string, now time.Time) error {
	e, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("merge into %s: %w", id, ErrNotFound)
	}
	if err := s.store.Rehash(id, hash); err != nil {
		return fmt.Errorf("merge into %s: %w", id, err)
	}
	e.Content = content
	e.Embedding = vec
	e.Tags = models.MergeTags(e.Tags, s.lexicon.Matches(tokens))
	e.AccessCount++
	e.CognitiveWeight = math.Min(1, e.CognitiveWeight+s.cfg.MergeBoost)
	e.LastAccessed = later(now, e.LastAccessed)
	s.store.Touch(id)
	s.persist.persist(e)
	return nil
}

// insertLocked adds e, evicting first if the store is full.
func (s *Service) insertLocked(e *models.CacheEntry, now time.Time) error {
	evicted, err := s.store.Insert(e, now)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	for _, v := range evicted {
		s.persist.remove(v.ID)
	}
	if len(evicted) > 0 {
		s.logger.Info("evicted entries", "count", len(evicted), "state", models.StateEvicted)
	}
	return nil
}

// Get returns a copy of the entry and records the access.
func (s *Service) Get(id string) (*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.AccessCount++
	e.LastAccessed = later(s.clock.Now(), e.LastAccessed)
	e.CognitiveWeight = math.Min(1, e.CognitiveWeight+s.cfg.AccessBoost)
	s.store.Touch(id)
	s.persist.persist(e)
	return e.Clone(), nil
}

// State reports the lifecycle state of a live entry.
func (s *Service) State(id string) (models.EntryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.store.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	return e.State(s.clock.Now(), s.cfg.InactivityWindow), nil
}

// QueryByTags returns entries sharing at least one tag whose overlap with
// tags is at least minOverlap, by weight descending then most recently
// accessed. An empty query matches nothing.
func (s *Service) QueryByTags(tags []string, minOverlap float64) []*models.CacheEntry {
	if len(tags) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.CacheEntry
	for _, e := range s.store.All() {
		if overlap := search.TagOverlap(e.Tags, tags); overlap > 0 && overlap >= minOverlap {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CognitiveWeight != b.CognitiveWeight {
			return a.CognitiveWeight > b.CognitiveWeight
		}
		if !a.LastAccessed.Equal(b.LastAccessed) {
			return a.LastAccessed.After(b.LastAccessed)
		}
		return a.ID < b.ID
	})
	return out
}

// QueryByVector returns the topK entries by cosine similarity to vector.
func (s *Service) QueryByVector(vector []float32, topK int) ([]models.ScoredEntry, error) {
	if len(vector) != s.embedder.Dim() {
		return nil, fmt.Errorf("%w: dimension %d, want %d", ErrInvalidVector, len(vector), s.embedder.Dim())
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := search.TopK(vector, s.store.All(), func(e *models.CacheEntry) []float32 { return e.Embedding }, topK)
	out := make([]models.ScoredEntry, len(hits))
	for i, h := range hits {
		out[i] = models.ScoredEntry{Entry: h.Item.Clone(), Similarity: h.Score}
	}
	return out, nil
}

// QueryByText embeds text with the service's embedder and runs QueryByVector.
func (s *Service) QueryByText(text string, topK int) ([]models.ScoredEntry, error) {
	vec, err := s.embedder.Embed(sanitize.Clean(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVector, err)
	}
	return s.QueryByVector(vec, topK)
}

// SampleWeighted draws k entries with replacement, proportional to weight.
func (s *Service) SampleWeighted(k int) []*models.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.rngMu.Lock()
	picked := cache.SampleWeighted(s.store.All(), k, s.rng)
	s.rngMu.Unlock()

	out := make([]*models.CacheEntry, len(picked))
	for i, e := range picked {
		out[i] = e.Clone()
	}
	return out
}

// Stats computes the aggregate view of the current store.
func (s *Service) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked(s.clock.Now())
}

// Len returns the number of live entries.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Len()
}

// Thresholds returns the current, possibly self-tuned, acceptance thresholds.
func (s *Service) Thresholds() (minQuality, minUniqueness float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minQuality, s.minUniqueness
}

// PersistenceStatus pings the durable store, if any.
func (s *Service) PersistenceStatus(ctx context.Context) models.ServiceCheck {
	if s.persister == nil {
		return models.ServiceCheck{Status: "disabled"}
	}
	if err := s.persister.Ping(ctx); err != nil {
		return models.ServiceCheck{Status: "error", Message: err.Error()}
	}
	return models.ServiceCheck{Status: "ok"}
}

// Warmup loads persisted entries into an empty or partially filled cache.
// Entries with no content, a duplicate id or hash, or a stale embedding are
// repaired or skipped; scores are clamped. Returns how many were loaded.
func (s *Service) Warmup(ctx context.Context) (int, error) {
	if s.persister == nil {
		return 0, nil
	}
	entries, err := s.persister.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load persisted entries: %w", err)
	}

	// Oldest first so the most recently used end up at the front.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastAccessed.Before(entries[j].LastAccessed)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	loaded := 0
	for _, e := range entries {
		if !s.repair(e, now) {
			s.logger.Warn("skipping invalid persisted entry", "id", e.ID)
			continue
		}
		if _, dup := s.store.Get(e.ID); dup {
			continue
		}
		if _, dup := s.store.ByHash(e.ContentHash); dup {
			s.persist.remove(e.ID)
			continue
		}
		if err := s.insertLocked(e, now); err != nil {
			s.logger.Warn("skipping persisted entry", "id", e.ID, "error", err)
			continue
		}
		loaded++
	}
	s.logger.Info("warmup complete", "loaded", loaded, "total", s.store.Len())
	return loaded, nil
}

// repair normalises a persisted entry in place and reports whether it is
// usable.
func (s *Service) repair(e *models.CacheEntry, now time.Time) bool {
	if e == nil || e.ID == "" || e.Content == "" {
		return false
	}
	e.ContentHash = embedding.ContentHash(e.Content)
	if len(e.Embedding) != s.embedder.Dim() {
		vec, err := s.embedder.Embed(e.Content)
		if err != nil {
			vec = make([]float32, s.embedder.Dim())
		}
		e.Embedding = vec
	}
	e.QualityScore = clamp01(e.QualityScore)
	e.UniquenessScore = clamp01(e.UniquenessScore)
	e.CognitiveWeight = clamp01(e.CognitiveWeight)
	if e.AccessCount < 0 {
		e.AccessCount = 0
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.LastAccessed.Before(e.CreatedAt) {
		e.LastAccessed = e.CreatedAt
	}
	tokens := lexicon.Tokenize(e.Content)
	if e.Tags == nil {
		e.Tags = s.lexicon.Matches(tokens)
	}
	if e.ClusterID == "" {
		e.ClusterID = assignCluster(s.lexicon, tokens)
	}
	return true
}

// Close waits for pending persistence writes.
func (s *Service) Close() {
	s.persist.close()
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
