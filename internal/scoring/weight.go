package scoring

import (
	"fmt"
	"math"
)

// WeightConfig holds the cognitive weight formula coefficients.
type WeightConfig struct {
	QualityCoef    float64
	UniquenessCoef float64
	LengthCoef     float64
	IdealTokens    float64
	TokenSpread    float64
}

// DefaultWeightConfig is 0.4*quality + 0.4*uniqueness + 0.2*length around 24 tokens.
var DefaultWeightConfig = WeightConfig{
	QualityCoef:    0.4,
	UniquenessCoef: 0.4,
	LengthCoef:     0.2,
	IdealTokens:    24,
	TokenSpread:    16,
}

// Validate checks the coefficients are non-negative and sum to at most 1.
func (c WeightConfig) Validate() error {
	if c.QualityCoef < 0 || c.UniquenessCoef < 0 || c.LengthCoef < 0 {
		return fmt.Errorf("weight coefficients must be non-negative")
	}
	if sum := c.QualityCoef + c.UniquenessCoef + c.LengthCoef; sum > 1.0001 {
		return fmt.Errorf("weight coefficients must sum to at most 1, got %f", sum)
	}
	if c.TokenSpread <= 0 {
		return fmt.Errorf("token spread must be positive, got %f", c.TokenSpread)
	}
	return nil
}

// LengthScore is a Gaussian falloff around the ideal token count.
func (c WeightConfig) LengthScore(tokens int) float64 {
	d := float64(tokens) - c.IdealTokens
	return math.Exp(-(d * d) / (2 * c.TokenSpread * c.TokenSpread))
}

// CognitiveWeight combines the scores into the acceptance/eviction weight.
func (c WeightConfig) CognitiveWeight(r Result) float64 {
	w := c.QualityCoef*r.Quality + c.UniquenessCoef*r.Uniqueness + c.LengthCoef*c.LengthScore(r.Tokens)
	return clamp01(w)
}
