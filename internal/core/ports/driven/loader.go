package driven

import (
	"context"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// DocumentLoader turns a file or directory into normalised documents.
// A missing path yields no documents and no error.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

// Parser converts the raw text of one file into a document.
// Parsers are registered per file extension.
type Parser interface {
	// Name identifies the parser in configuration and logs.
	Name() string

	// Extensions returns the lower-case extensions handled, with leading dot.
	Extensions() []string

	// Parse builds a document from the file contents at path.
	Parse(ctx context.Context, path string, raw string) (domain.Document, error)
}
