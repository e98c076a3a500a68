// Package hash provides a deterministic, dependency-free embedding service.
//
// Vectors are derived from SHA-256 digests of the text, so the same text
// always maps to the same unit vector. Similarity between vectors carries
// no semantic meaning; the service exists for offline use and tests.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the fallback vector size.
const DefaultDimensions = 384

// ModelName identifies hash vectors in logs and metrics.
const ModelName = "sha256-fallback"

// EmbeddingService generates hash-derived embeddings.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedding service.
// A non-positive dimension uses DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the hash vector for text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return Vector(text, s.dimensions), nil
}

// EmbedBatch returns one hash vector per text.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = Vector(text, s.dimensions)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model identifier.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// Vector derives a unit vector of length dim from text.
//
// Each round hashes text followed by a big-endian uint32 counter. The
// digest is read as big-endian uint32 values v, each mapped to
// 2*(v/2^32)-1 in [-1, 1). The result is divided by its L2 norm, or by
// 1 if the norm is zero.
func Vector(text string, dim int) []float32 {
	seed := make([]byte, len(text)+4)
	copy(seed, text)

	values := make([]float64, 0, dim)
	for counter := uint32(0); len(values) < dim; counter++ {
		binary.BigEndian.PutUint32(seed[len(text):], counter)
		digest := sha256.Sum256(seed)
		for i := 0; i+4 <= len(digest) && len(values) < dim; i += 4 {
			v := binary.BigEndian.Uint32(digest[i : i+4])
			values = append(values, 2*(float64(v)/(1<<32))-1)
		}
	}

	var sum float64
	for _, v := range values {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, dim)
	for i, v := range values {
		out[i] = float32(v / norm)
	}
	return out
}
