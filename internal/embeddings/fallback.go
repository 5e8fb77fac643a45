package embeddings

import (
	"context"
	"crypto/sha256"
)

// HashGenerator expands a content digest into a vector. The result carries no
// semantic meaning beyond equality: identical content maps to identical
// vectors, so exact repeats still match while the real model is unavailable.
type HashGenerator struct {
	dimension int
}

var _ Generator = (*HashGenerator)(nil)

// NewHashGenerator creates the fallback generator.
func NewHashGenerator(dimension int) *HashGenerator {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashGenerator{dimension: dimension}
}

// Embed derives the vector by cycling over the SHA-256 digest of text, each
// byte scaled into [0, 1]. It cannot fail.
func (g *HashGenerator) Embed(_ context.Context, text string) ([]float32, error) {
	digest := sha256.Sum256([]byte(text))

	vector := make([]float32, g.dimension)
	for i := range vector {
		vector[i] = float32(digest[i%sha256.Size]) / 255.0
	}
	return vector, nil
}

// Dimension reports the configured vector width.
func (g *HashGenerator) Dimension() int {
	return g.dimension
}
