package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docseek/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/docseek/internal/adapters/driven/embedding/instrumented"
	ollamaembed "github.com/custodia-labs/docseek/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docseek/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docseek/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"hash", ProviderHash},
		{"  Fallback ", ProviderHash},
		{"LOCAL", ProviderHash},
		{"ollama", ProviderOllama},
		{"sentence_transformers", ProviderOllama},
		{"sentence-transformers", ProviderOllama},
		{"OpenAI", ProviderOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := ResolveProvider(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveProvider_Unknown(t *testing.T) {
	_, err := ResolveProvider("word2vec")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "word2vec")
}

func TestCreateEmbeddingService(t *testing.T) {
	t.Run("nil settings", func(t *testing.T) {
		_, err := CreateEmbeddingService(nil)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("hash uses configured dimensions", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{Provider: "hash", Dimensions: 16})
		require.NoError(t, err)
		assert.IsType(t, &hash.EmbeddingService{}, svc)
		assert.Equal(t, 16, svc.Dimensions())
	})

	t.Run("ollama alias", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:  "sentence-transformers",
			ModelName: "nomic-embed-text",
		})
		require.NoError(t, err)
		assert.IsType(t, &ollamaembed.EmbeddingService{}, svc)
		assert.Equal(t, "nomic-embed-text", svc.ModelName())
	})

	t.Run("openai with key", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:  "openai",
			APIKey:    "test-key",
			ModelName: domain.DefaultSettings().Embeddings.ModelName,
		})
		require.NoError(t, err)
		assert.IsType(t, &openaiembed.EmbeddingService{}, svc)
		assert.Equal(t, openaiembed.DefaultModel, svc.ModelName())
	})

	t.Run("openai without key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		_, err := CreateEmbeddingService(&domain.EmbeddingSettings{Provider: "openai"})
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := CreateEmbeddingService(&domain.EmbeddingSettings{Provider: "bert"})
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestCreateAndValidateEmbeddingService_Instrumented(t *testing.T) {
	result, err := CreateAndValidateEmbeddingService(context.Background(),
		&domain.EmbeddingSettings{Provider: "hash", Dimensions: 8}, prometheus.NewRegistry())
	require.NoError(t, err)
	defer result.Close()

	assert.IsType(t, &instrumented.EmbeddingService{}, result.EmbeddingService)
	assert.Equal(t, hash.ModelName, result.EmbeddingService.ModelName())
	assert.Equal(t, ProviderHash, result.Provider)
	assert.False(t, result.FellBack)
}

func TestCreateAndValidateEmbeddingService_FallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: "ollama",
		BaseURL:  server.URL,
		Fallback: true,
	}, nil)
	require.NoError(t, err)
	defer result.Close()

	assert.True(t, result.FellBack)
	assert.Equal(t, ProviderHash, result.Provider)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "hash fallback")
	assert.Equal(t, hash.ModelName, result.EmbeddingService.ModelName())
	assert.Equal(t, ollamaembed.DefaultDimensions, result.EmbeddingService.Dimensions())
}

func TestCreateAndValidateEmbeddingService_RemoteAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	result, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider:  "ollama",
		BaseURL:   server.URL,
		ModelName: "all-minilm",
		Fallback:  true,
	}, nil)
	require.NoError(t, err)
	defer result.Close()

	assert.False(t, result.FellBack)
	assert.Equal(t, ProviderOllama, result.Provider)
	assert.Equal(t, "all-minilm", result.EmbeddingService.ModelName())
}

func TestCreateAndValidateEmbeddingService_NoFallbackSkipsPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: "ollama",
		BaseURL:  server.URL,
	}, nil)
	require.NoError(t, err)
	defer result.Close()

	assert.False(t, result.FellBack)
	_, err = result.EmbeddingService.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrNotAvailable)
}

func TestCreateAndValidateEmbeddingService_MissingKeyFallsBack(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	result, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: "openai",
		Fallback: true,
	}, nil)
	require.NoError(t, err)
	defer result.Close()

	assert.True(t, result.FellBack)
	assert.Equal(t, ProviderHash, result.Provider)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "openai embeddings unavailable")
	assert.Contains(t, result.Warnings[0], "no api key")
	assert.Equal(t, hash.ModelName, result.EmbeddingService.ModelName())
	assert.Equal(t, openaiembed.ModelDimensions(openaiembed.DefaultModel), result.EmbeddingService.Dimensions())
}

func TestCreateAndValidateEmbeddingService_MissingKeyKeepsConfiguredDimensions(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	result, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider:   "openai",
		Dimensions: 256,
		Fallback:   true,
	}, nil)
	require.NoError(t, err)
	defer result.Close()

	assert.True(t, result.FellBack)
	assert.Equal(t, 256, result.EmbeddingService.Dimensions())
}

func TestCreateAndValidateEmbeddingService_MissingKeyWithoutFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: "openai",
	}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
