package memory

import (
	"math"
	"sort"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/models"
	"github.com/iammorganparry/clive/apps/semcache/internal/search"
)

const (
	selfPerceptionBar = 0.6
	emergentShare     = 0.2

	tuneMinEntries   = 10
	diversityTarget  = 0.3
	saturationWeight = 0.8
	maxTuneStep      = 0.05
	tuneFloor        = 0.1
	tuneCeiling      = 0.9
)

// Consolidate runs one consolidation cycle: a decay pass over idle entries
// (only if a full cycle interval has elapsed since the last one), removal of
// entries that fell below the survival floor, folding of near-duplicate
// pairs, stats recomputation and, after a decay pass, threshold
// self-tuning. Calling it twice in a row only recomputes stats the second
// time.
func (s *Service) Consolidate() models.ConsolidationReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	report := models.ConsolidationReport{}

	if s.lastDecay.IsZero() || now.Sub(s.lastDecay) >= s.cfg.CycleInterval {
		report.DecayPass = true
		s.lastDecay = now
		s.decayLocked(now, &report)
	}
	s.mergeNearDuplicatesLocked(&report)

	stats := s.statsLocked(now)
	if report.DecayPass && s.cfg.AutoTune {
		report.Tuned = s.tuneLocked(stats)
		stats.MinQuality, stats.MinUniqueness = s.minQuality, s.minUniqueness
	}
	report.Stats = stats

	if report.DecayPass || report.Merged > 0 {
		s.logger.Info("consolidation complete",
			"decayed", report.Decayed,
			"removed", report.Removed,
			"merged", report.Merged,
			"skipped", report.Skipped,
			"tuned", report.Tuned,
			"total", stats.TotalEntries,
		)
	}
	return report
}

func (s *Service) decayLocked(now time.Time, report *models.ConsolidationReport) {
	for _, e := range s.store.All() {
		w := e.CognitiveWeight
		if math.IsNaN(w) || math.IsInf(w, 0) {
			s.logger.Warn("skipping entry with non-finite weight", "id", e.ID, "weight", w)
			report.Skipped++
			continue
		}
		if now.Sub(e.LastAccessed) <= s.cfg.InactivityWindow {
			continue
		}

		e.CognitiveWeight = w * s.cfg.DecayFactor
		report.Decayed++

		if e.CognitiveWeight < s.cfg.SurvivalFloor {
			s.store.Remove(e.ID)
			s.persist.remove(e.ID)
			report.Removed++
			s.logger.Debug("removed decayed entry", "id", e.ID, "state", models.StateRemoved)
			continue
		}
		s.persist.persist(e)
	}
}

// mergeNearDuplicatesLocked folds every pair at or above the near-duplicate
// threshold into the heavier entry. Ingest only compares against a recent
// sample, so pairs involving older entries are resolved here.
func (s *Service) mergeNearDuplicatesLocked(report *models.ConsolidationReport) {
	var entries []*models.CacheEntry
	for _, e := range s.store.All() {
		if !math.IsNaN(e.CognitiveWeight) && !math.IsInf(e.CognitiveWeight, 0) {
			entries = append(entries, e)
		}
	}
	if len(entries) < 2 {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.CognitiveWeight != b.CognitiveWeight {
			return a.CognitiveWeight > b.CognitiveWeight
		}
		if a.AccessCount != b.AccessCount {
			return a.AccessCount > b.AccessCount
		}
		if !a.LastAccessed.Equal(b.LastAccessed) {
			return a.LastAccessed.After(b.LastAccessed)
		}
		return a.ID < b.ID
	})

	fps := make(map[string]embedding.Fingerprint, len(entries))
	fingerprint := func(e *models.CacheEntry) embedding.Fingerprint {
		fp, ok := fps[e.ID]
		if !ok {
			fp = embedding.NewFingerprint(e.Content)
			fps[e.ID] = fp
		}
		return fp
	}

	gone := make(map[string]bool)
	for i, keep := range entries {
		if gone[keep.ID] {
			continue
		}
		folded := false
		for _, other := range entries[i+1:] {
			if gone[other.ID] {
				continue
			}
			var sim float64
			if search.IsZero(keep.Embedding) || search.IsZero(other.Embedding) {
				sim = fingerprint(keep).Overlap(fingerprint(other))
			} else {
				sim = search.CosineSimilarity(keep.Embedding, other.Embedding)
			}
			if sim < s.cfg.NearDuplicateThreshold {
				continue
			}

			keep.Tags = models.MergeTags(keep.Tags, other.Tags)
			keep.AccessCount++
			keep.CognitiveWeight = math.Min(1, keep.CognitiveWeight+s.cfg.MergeBoost)
			keep.LastAccessed = later(keep.LastAccessed, other.LastAccessed)
			s.store.Remove(other.ID)
			s.persist.remove(other.ID)
			gone[other.ID] = true
			folded = true
			report.Merged++
			s.logger.Debug("merged near-duplicate entry", "id", other.ID, "into", keep.ID, "similarity", sim)
		}
		if folded {
			s.persist.persist(keep)
		}
	}
}

func (s *Service) statsLocked(now time.Time) models.Stats {
	stats := models.Stats{
		MinQuality:       s.minQuality,
		MinUniqueness:    s.minUniqueness,
		ComputedAt:       now,
		EmergentPatterns: []models.ClusterPattern{},
	}

	entries := s.store.All()
	stats.TotalEntries = len(entries)
	if len(entries) == 0 {
		return stats
	}

	var sum float64
	var finite, perceptive int
	clusters := make(map[string]int)
	for _, e := range entries {
		clusters[e.ClusterID]++
		if math.IsNaN(e.CognitiveWeight) || math.IsInf(e.CognitiveWeight, 0) {
			continue
		}
		finite++
		sum += e.CognitiveWeight
		if e.CognitiveWeight > selfPerceptionBar {
			perceptive++
		}
	}

	total := float64(len(entries))
	if finite > 0 {
		stats.AverageWeight = sum / float64(finite)
	}
	stats.SelfPerceptionRatio = float64(perceptive) / total
	stats.Diversity = float64(len(clusters)) / total

	for id, n := range clusters {
		if share := float64(n) / total; share > emergentShare {
			stats.EmergentPatterns = append(stats.EmergentPatterns, models.ClusterPattern{ClusterID: id, Count: n, Share: share})
		}
	}
	sort.Slice(stats.EmergentPatterns, func(i, j int) bool {
		a, b := stats.EmergentPatterns[i], stats.EmergentPatterns[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ClusterID < b.ClusterID
	})
	return stats
}

// tuneLocked nudges the acceptance thresholds: down when the store lacks
// diversity, up when it is saturated with high scorers. Thresholds always
// stay within [tuneFloor, tuneCeiling].
func (s *Service) tuneLocked(stats models.Stats) bool {
	if stats.TotalEntries < tuneMinEntries {
		return false
	}
	step := math.Min(math.Abs(s.cfg.TuneStep), maxTuneStep)

	var delta float64
	switch {
	case stats.Diversity < diversityTarget:
		delta = -step
	case stats.AverageWeight > saturationWeight:
		delta = step
	default:
		return false
	}

	q := clampRange(s.minQuality+delta, tuneFloor, tuneCeiling)
	u := clampRange(s.minUniqueness+delta, tuneFloor, tuneCeiling)
	if q == s.minQuality && u == s.minUniqueness {
		return false
	}
	s.logger.Info("tuned acceptance thresholds",
		"min_quality", q,
		"min_uniqueness", u,
		"diversity", stats.Diversity,
		"average_weight", stats.AverageWeight,
	)
	s.minQuality, s.minUniqueness = q, u
	return true
}

func clampRange(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
