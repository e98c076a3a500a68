//go:build !cgo

package sqlitevec

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.VectorBackend = (*Backend)(nil)

// Name identifies the backend.
const Name = "sqlite-vec"

var errNoCGO = fmt.Errorf("%w: sqlite-vec requires a cgo build", domain.ErrNotAvailable)

// Available reports whether the native backend is compiled in.
func Available() bool {
	return false
}

// Backend provides vector search using sqlite-vec.
// This is a stub for builds without CGO.
type Backend struct{}

// New returns domain.ErrNotAvailable.
// This is a stub for builds without CGO.
func New(string) (*Backend, error) {
	return nil, errNoCGO
}

// Name returns "sqlite-vec".
func (b *Backend) Name() string { return Name }

// Load is not available without CGO.
func (b *Backend) Load(context.Context, int) (int, error) { return 0, errNoCGO }

// Append is not available without CGO.
func (b *Backend) Append(context.Context, [][]float32) error { return errNoCGO }

// Search is not available without CGO.
func (b *Backend) Search(context.Context, []float32, int) ([]driven.VectorHit, error) {
	return nil, errNoCGO
}

// Vectors is not available without CGO.
func (b *Backend) Vectors(context.Context) ([][]float32, error) { return nil, errNoCGO }

// Truncate is not available without CGO.
func (b *Backend) Truncate(context.Context, int) error { return errNoCGO }

// Reset is not available without CGO.
func (b *Backend) Reset(context.Context) error { return errNoCGO }

// Save is not available without CGO.
func (b *Backend) Save(context.Context) error { return errNoCGO }

// Close is a no-op.
func (b *Backend) Close() error { return nil }
