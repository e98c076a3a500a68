// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/custodia-labs/docseek/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/docseek/internal/adapters/driven/embedding/instrumented"
	ollamaembed "github.com/custodia-labs/docseek/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docseek/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Provider names after alias resolution.
const (
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// InitResult contains the result of embedding service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Provider         string   // Provider actually in use.
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if fell back to the hash provider.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
}

// ResolveProvider maps a configured provider kind, including aliases, to
// a provider name.
func ResolveProvider(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "hash", "fallback", "local":
		return ProviderHash, nil
	case "ollama", "sentence_transformers", "sentence-transformers":
		return ProviderOllama, nil
	case "openai":
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrConfiguration, kind)
	}
}

// CreateEmbeddingService creates the embedding service selected by settings
// without checking connectivity.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings are required", domain.ErrConfiguration)
	}

	provider, err := ResolveProvider(settings.Provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case ProviderOllama:
		return createOllamaEmbedding(settings), nil
	case ProviderOpenAI:
		return createOpenAIEmbedding(settings)
	default:
		return hash.NewEmbeddingService(settings.Dimensions), nil
	}
}

// CreateAndValidateEmbeddingService creates the configured embedding service
// and wraps it with metrics registered on reg (nil skips registration).
//
// When settings.Fallback is set the remote provider is pinged, and if it is
// not available the hash provider is used instead with a warning. A missing
// OpenAI key counts as not available. Without
// fallback, availability errors surface on first use.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings, reg prometheus.Registerer) (*InitResult, error) {
	if settings != nil && settings.Fallback && missingOpenAIKey(settings) {
		result := &InitResult{Provider: ProviderOpenAI}
		svc := result.fallBack(openAIDimensions(settings), errors.New("no api key"))
		result.EmbeddingService = instrumented.New(svc, result.Provider, instrumented.NewMetrics(reg))
		return result, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, err
	}
	provider, _ := ResolveProvider(settings.Provider)
	result := &InitResult{Provider: provider}

	if settings.Fallback && provider != ProviderHash {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := svc.Ping(pingCtx)
		cancel()

		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotAvailable):
			dims := svc.Dimensions()
			svc.Close()
			svc = result.fallBack(dims, err)
		default:
			svc.Close()
			return nil, fmt.Errorf("validate %s embeddings: %w", provider, err)
		}
	}

	result.EmbeddingService = instrumented.New(svc, result.Provider, instrumented.NewMetrics(reg))
	return result, nil
}

// fallBack records why r.Provider could not be used and returns a hash
// service of the same dimension.
func (r *InitResult) fallBack(dims int, cause error) driven.EmbeddingService {
	warning := fmt.Sprintf("%s embeddings unavailable, using hash fallback: %v", r.Provider, cause)
	logger.L().Warn("embedding provider unavailable, falling back",
		zap.String("provider", r.Provider),
		zap.Int("dimensions", dims),
		zap.Error(cause),
	)
	r.Provider = ProviderHash
	r.Warnings = append(r.Warnings, warning)
	r.FellBack = true
	return hash.NewEmbeddingService(dims)
}

// missingOpenAIKey reports whether settings select OpenAI with no key
// configured or in the environment.
func missingOpenAIKey(settings *domain.EmbeddingSettings) bool {
	provider, err := ResolveProvider(settings.Provider)
	if err != nil || provider != ProviderOpenAI {
		return false
	}
	return settings.APIKey == "" && os.Getenv(openaiembed.APIKeyEnv) == ""
}

func openAIDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return openaiembed.ModelDimensions(openAIModel(settings))
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.ModelName,
		Timeout:           settings.Timeout,
		Dimensions:        settings.Dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             openAIModel(settings),
		Timeout:           settings.Timeout,
		Dimensions:        settings.Dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// openAIModel returns the configured model, or the OpenAI default when the
// shared default (a local model) is still set.
func openAIModel(settings *domain.EmbeddingSettings) string {
	model := settings.ModelName
	if model == "" || model == domain.DefaultSettings().Embeddings.ModelName {
		return openaiembed.DefaultModel
	}
	return model
}
