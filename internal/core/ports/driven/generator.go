package driven

import (
	"context"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// Generator produces answer text from a question and ranked chunks.
// The engine treats it as an opaque capability.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error)
}
