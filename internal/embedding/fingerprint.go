package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/iammorganparry/clive/apps/semcache/internal/lexicon"
)

// FingerprintSize is the number of tokens kept in a lexical fingerprint.
const FingerprintSize = 12

// ContentHash is the lower-case hex SHA-256 of the content's UTF-8 bytes.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Fingerprint is the set of the most frequent non-stopword raw tokens of a
// text. It stands in for an embedding when Embed returns ErrNoSignal.
type Fingerprint map[string]struct{}

// NewFingerprint builds the fingerprint of text. Raw (untrimmed) tokens are
// used so symbol-only content still yields a non-empty set.
func NewFingerprint(text string) Fingerprint {
	counts := make(map[string]int)
	for _, tok := range lexicon.RawTokens(text) {
		if lexicon.IsStopWord(tok) {
			continue
		}
		counts[tok]++
	}

	toks := make([]string, 0, len(counts))
	for tok := range counts {
		toks = append(toks, tok)
	}
	sort.Slice(toks, func(i, j int) bool {
		if counts[toks[i]] != counts[toks[j]] {
			return counts[toks[i]] > counts[toks[j]]
		}
		return toks[i] < toks[j]
	})
	if len(toks) > FingerprintSize {
		toks = toks[:FingerprintSize]
	}

	fp := make(Fingerprint, len(toks))
	for _, tok := range toks {
		fp[tok] = struct{}{}
	}
	return fp
}

// Overlap returns |a ∩ b| / |a ∪ b|, 0 when both are empty.
func (fp Fingerprint) Overlap(other Fingerprint) float64 {
	if len(fp) == 0 && len(other) == 0 {
		return 0
	}
	inter := 0
	for tok := range fp {
		if _, ok := other[tok]; ok {
			inter++
		}
	}
	union := len(fp) + len(other) - inter
	return float64(inter) / float64(union)
}
