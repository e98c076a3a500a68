package file

import (
	"fmt"
	"os"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// Apply maps the store onto domain settings. Keys that are absent keep
// their default from domain.DefaultSettings.
func Apply(s *ConfigStore) domain.Settings {
	out := domain.DefaultSettings()

	ing := s.Section("ingestion")
	out.Ingestion.ChunkSize = ing.Int("chunk_size", out.Ingestion.ChunkSize)
	out.Ingestion.ChunkOverlap = ing.Int("chunk_overlap", out.Ingestion.ChunkOverlap)
	out.Ingestion.SourcePath = ing.String("source_path", out.Ingestion.SourcePath)
	out.Ingestion.BatchSize = ing.Int("batch_size", out.Ingestion.BatchSize)
	out.Ingestion.Workers = ing.Int("workers", out.Ingestion.Workers)
	out.Ingestion.DeleteOnEmpty = ing.Bool("delete_on_empty", out.Ingestion.DeleteOnEmpty)
	out.Ingestion.PruneMissing = ing.Bool("prune_missing", out.Ingestion.PruneMissing)
	out.Ingestion.IncludeHidden = ing.Bool("include_hidden", out.Ingestion.IncludeHidden)
	out.Ingestion.Parsers = ing.Strings("parsers", out.Ingestion.Parsers)

	emb := s.Section("embeddings")
	out.Embeddings.Provider = emb.String("provider", out.Embeddings.Provider)
	out.Embeddings.ModelName = emb.String("model_name", out.Embeddings.ModelName)
	out.Embeddings.BaseURL = emb.String("base_url", out.Embeddings.BaseURL)
	out.Embeddings.APIKey = emb.String("api_key", out.Embeddings.APIKey)
	out.Embeddings.Dimensions = emb.Int("dimensions", out.Embeddings.Dimensions)
	out.Embeddings.Timeout = emb.Duration("timeout", out.Embeddings.Timeout)
	out.Embeddings.RequestsPerSecond = emb.Float("requests_per_second", out.Embeddings.RequestsPerSecond)
	out.Embeddings.Fallback = emb.Bool("fallback", out.Embeddings.Fallback)

	vs := s.Section("vectorstore")
	out.VectorStore.Type = vs.String("type", out.VectorStore.Type)
	out.VectorStore.IndexPath = vs.String("index_path", out.VectorStore.IndexPath)
	out.VectorStore.MetadataPath = vs.String("metadata_path", out.VectorStore.MetadataPath)

	ret := s.Section("retrieval")
	out.Retrieval.SemanticWeight = ret.Float("semantic_weight", out.Retrieval.SemanticWeight)
	out.Retrieval.Fusion = domain.FusionStrategy(ret.String("fusion", string(out.Retrieval.Fusion)))
	out.Retrieval.DefaultTopK = ret.Int("default_top_k", out.Retrieval.DefaultTopK)
	out.Retrieval.DefaultMode = domain.SearchMode(ret.String("default_mode", string(out.Retrieval.DefaultMode)))

	out.Logging.Level = s.Section("logging").String("level", out.Logging.Level)

	// The API key may come from the environment instead of the file.
	if out.Embeddings.APIKey == "" {
		out.Embeddings.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return out
}

// LoadSettings discovers, loads, maps and validates the settings.
// It returns the settings and the file they came from ("" for defaults).
func LoadSettings(explicit string) (domain.Settings, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return domain.Settings{}, "", fmt.Errorf("resolve working directory: %w", err)
	}

	path := Discover(explicit, dir)
	store, err := Load(path)
	if err != nil {
		return domain.Settings{}, path, err
	}

	settings := Apply(store)
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, path, err
	}
	return settings, path, nil
}
