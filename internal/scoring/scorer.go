// Package scoring computes quality, uniqueness and the cognitive weight of
// incoming fragments.
package scoring

import (
	"math"
	"sync"

	"github.com/iammorganparry/clive/apps/semcache/internal/lexicon"
)

const (
	// MaxRareBonus caps the uniqueness bonus for unseen token pairings.
	MaxRareBonus = 0.3
	// DefaultWindowSize is how many recent bigrams count as "seen".
	DefaultWindowSize = 2048
	qualitySaturation = 4.0
)

// Result holds the per-fragment scores.
type Result struct {
	Quality    float64
	Uniqueness float64
	RareBonus  float64
	Tokens     int
}

// Scorer scores a fragment given the best similarity found against the store.
type Scorer interface {
	Score(content string, maxSimilarity float64) Result
}

// LexiconScorer scores quality from a keyword lexicon and uniqueness from
// similarity plus a rare-bigram bonus. Safe for concurrent use.
type LexiconScorer struct {
	lexicon *lexicon.Lexicon

	mu     sync.Mutex
	window *bigramWindow
}

// NewLexiconScorer creates a scorer. A nil lexicon selects lexicon.Default().
func NewLexiconScorer(lex *lexicon.Lexicon, windowSize int) *LexiconScorer {
	if lex == nil {
		lex = lexicon.Default()
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &LexiconScorer{lexicon: lex, window: newBigramWindow(windowSize)}
}

// Score computes quality and uniqueness. The fragment's bigrams are recorded
// in the recent window, so scoring the same text twice lowers its bonus.
func (s *LexiconScorer) Score(content string, maxSimilarity float64) Result {
	tokens := lexicon.Tokenize(content)

	s.mu.Lock()
	bonus := s.window.observe(tokens)
	s.mu.Unlock()

	return Result{
		Quality:    Quality(s.lexicon, tokens),
		Uniqueness: clamp01(1 - clamp01(maxSimilarity) + bonus),
		RareBonus:  bonus,
		Tokens:     len(tokens),
	}
}

// Quality is 1 - exp(-4 * raw) where raw sums, per distinct keyword seen n
// times, importance * (2 - 2^(1-n)), divided by the token count. Repeats
// therefore add less each time and the score saturates below 1.
func Quality(lex *lexicon.Lexicon, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for _, t := range tokens {
		if _, ok := lex.Lookup(t); ok {
			counts[t]++
		}
	}
	var raw float64
	for kw, n := range counts {
		c, _ := lex.Lookup(kw)
		raw += c.Importance * (2 - math.Pow(2, float64(1-n)))
	}
	raw /= float64(len(tokens))
	return clamp01(1 - math.Exp(-qualitySaturation*raw))
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
