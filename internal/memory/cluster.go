package memory

import (
	"fmt"

	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/lexicon"
)

const bucketCount = 8

// assignCluster picks the lexicon category with the largest
// importance-weighted hit count, ties broken by name. Content without
// keyword hits is bucketed by its first non-stopword token.
func assignCluster(lex *lexicon.Lexicon, tokens []string) string {
	scores := make(map[string]float64)
	for _, t := range tokens {
		if c, ok := lex.Lookup(t); ok {
			scores[c.Name] += c.Importance
		}
	}

	best, bestScore := "", 0.0
	for name, score := range scores {
		if score > bestScore || (score == bestScore && name < best) {
			best, bestScore = name, score
		}
	}
	if best != "" {
		return best
	}

	for _, t := range tokens {
		if !lexicon.IsStopWord(t) {
			return fmt.Sprintf("bucket-%d", embedding.TokenHash(t)%bucketCount)
		}
	}
	return "bucket-0"
}
