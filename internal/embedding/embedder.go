package embedding

import (
	"errors"
	"hash/fnv"
	"math"

	"github.com/iammorganparry/clive/apps/semcache/internal/lexicon"
)

// ModelName identifies the embedding algorithm and its version. Persisted
// vectors produced by a different version must be recomputed.
const ModelName = "semcache-hash-v1"

const (
	// DefaultDimension of generated vectors.
	DefaultDimension = 256
	fanOut           = 5
	spreadPrime      = 7919
)

// ErrNoSignal is returned when text yields no usable token, so no direction
// can be computed. Callers fall back to lexical fingerprints.
var ErrNoSignal = errors.New("embedding: no usable tokens")

// Embedder turns text into a fixed-length L2-normalized vector.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dim() int
}

// HashEmbedder is a deterministic feature-hashing embedder.
//
// Each token t at position p (see lexicon.Tokenize) contributes
// weight(t)/sqrt(p+1) to the indices (fnv1a32(t) + i*7919) mod dim for
// i in [0,5). The accumulator is float64 and normalized before conversion to
// float32, so identical input and lexicon always give bit-identical vectors.
type HashEmbedder struct {
	dim     int
	lexicon *lexicon.Lexicon
}

// NewHashEmbedder creates an embedder. A non-positive dim selects
// DefaultDimension and a nil lexicon selects lexicon.Default().
func NewHashEmbedder(dim int, lex *lexicon.Lexicon) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if lex == nil {
		lex = lexicon.Default()
	}
	return &HashEmbedder{dim: dim, lexicon: lex}
}

// Dim returns the vector dimension.
func (e *HashEmbedder) Dim() int { return e.dim }

// Embed generates the embedding for text.
func (e *HashEmbedder) Embed(text string) ([]float32, error) {
	tokens := lexicon.Tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrNoSignal
	}

	acc := make([]float64, e.dim)
	dim := uint64(e.dim)
	for p, tok := range tokens {
		h := TokenHash(tok)
		c := e.lexicon.Weight(tok) / math.Sqrt(float64(p+1))
		for i := uint64(0); i < fanOut; i++ {
			acc[(uint64(h)+i*spreadPrime)%dim] += c
		}
	}

	var sumSq float64
	for _, v := range acc {
		sumSq += v * v
	}
	if sumSq == 0 {
		return nil, ErrNoSignal
	}
	norm := math.Sqrt(sumSq)

	vec := make([]float32, e.dim)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

// TokenHash is the 32-bit FNV-1a hash of the token's UTF-8 bytes.
func TokenHash(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}
