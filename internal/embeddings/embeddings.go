// Package embeddings turns request content into fixed-dimension vectors for
// semantic matching. The Provider layers a store-backed vector cache over an
// external model endpoint, with a deterministic hash expansion standing in
// whenever the model cannot answer.
package embeddings

import (
	"context"
	"errors"
)

// DefaultDimension is the vector width used when none is configured, sized
// for MiniLM-class sentence embedding models.
const DefaultDimension = 384

// ErrInvalidInput reports empty or unusable input text.
var ErrInvalidInput = errors.New("embeddings: input text is empty")

// Generator produces embedding vectors of a fixed dimension.
type Generator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
