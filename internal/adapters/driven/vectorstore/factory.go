package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/docseek/cgo/sqlitevec"
	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/logger"
)

// NewBackend resolves a backend kind to a concrete backend at indexPath.
func NewBackend(kind, indexPath string) (driven.VectorBackend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "auto", "faiss":
		b, err := sqlitevec.New(indexPath)
		if errors.Is(err, domain.ErrNotAvailable) {
			logger.L().Info("native vector backend unavailable, using flat", zap.Error(err))
			return NewFlatBackend(indexPath), nil
		}
		if err != nil {
			return nil, err
		}
		return b, nil

	case "native", "sqlite-vec":
		b, err := sqlitevec.New(indexPath)
		if err != nil {
			return nil, err
		}
		return b, nil

	case "flat", "linear":
		return NewFlatBackend(indexPath), nil

	default:
		return nil, fmt.Errorf("%w: unsupported vector store type %q", domain.ErrConfiguration, kind)
	}
}

// New builds the store described by settings and loads persisted state.
func New(ctx context.Context, settings domain.VectorStoreSettings) (*Store, error) {
	backend, err := NewBackend(settings.Type, settings.IndexPath)
	if err != nil {
		return nil, err
	}

	store, err := Open(ctx, backend, settings.MetadataPath)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}
