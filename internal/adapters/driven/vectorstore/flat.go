package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// FlatBackendName identifies the linear-scan backend.
const FlatBackendName = "flat"

// Ensure FlatBackend implements the interface.
var _ driven.VectorBackend = (*FlatBackend)(nil)

type flatFile struct {
	Vectors [][]float32 `json:"vectors"`
}

// FlatBackend scores every stored vector against the query.
// It is safe for use by a Store, which serialises access.
type FlatBackend struct {
	path    string
	vectors [][]float32
}

// NewFlatBackend creates a linear-scan backend persisted at path.
func NewFlatBackend(path string) *FlatBackend {
	return &FlatBackend{path: path}
}

// Name returns "flat".
func (b *FlatBackend) Name() string {
	return FlatBackendName
}

// Load reads persisted vectors. A missing file loads nothing.
func (b *FlatBackend) Load(_ context.Context, dim int) (int, error) {
	b.vectors = nil

	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var file flatFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("decode %s: %w", b.path, err)
	}
	for i, v := range file.Vectors {
		if dim > 0 && len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	b.vectors = file.Vectors
	return len(b.vectors), nil
}

// Append adds vectors.
func (b *FlatBackend) Append(_ context.Context, vectors [][]float32) error {
	b.vectors = append(b.vectors, vectors...)
	return nil
}

// Search computes the inner product with every vector.
func (b *FlatBackend) Search(ctx context.Context, query []float32, n int) ([]driven.VectorHit, error) {
	if n <= 0 || len(b.vectors) == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, len(b.vectors))
	for i, v := range b.vectors {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hits[i] = driven.VectorHit{Position: i, Score: dot(query, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if n < len(hits) {
		hits = hits[:n]
	}
	return hits, nil
}

// Vectors returns the stored vectors.
func (b *FlatBackend) Vectors(context.Context) ([][]float32, error) {
	out := make([][]float32, len(b.vectors))
	copy(out, b.vectors)
	return out, nil
}

// Truncate drops rows from position n.
func (b *FlatBackend) Truncate(_ context.Context, n int) error {
	if n < len(b.vectors) {
		b.vectors = b.vectors[:n]
	}
	return nil
}

// Reset drops all rows.
func (b *FlatBackend) Reset(context.Context) error {
	b.vectors = nil
	return nil
}

// Save writes the vectors as JSON.
func (b *FlatBackend) Save(context.Context) error {
	file := flatFile{Vectors: b.vectors}
	if file.Vectors == nil {
		file.Vectors = [][]float32{}
	}
	raw, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}
	return writeFileAtomic(b.path, raw)
}

// Close is a no-op.
func (b *FlatBackend) Close() error {
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
