package domain

import (
	"fmt"
	"time"
)

// Settings is the typed configuration of the engine.
type Settings struct {
	Ingestion   IngestionSettings
	Embeddings  EmbeddingSettings
	VectorStore VectorStoreSettings
	Retrieval   RetrievalSettings
	Logging     LoggingSettings
}

// IngestionSettings configures loading, chunking and index updates.
type IngestionSettings struct {
	ChunkSize    int
	ChunkOverlap int
	SourcePath   string
	BatchSize    int
	Workers      int

	// DeleteOnEmpty tombstones a source's chunks when an incremental
	// reload yields nothing. When false an empty reload is "no change".
	DeleteOnEmpty bool

	// PruneMissing tombstones live chunks not produced by a full reindex.
	PruneMissing bool

	// IncludeHidden indexes dot-prefixed files and directories.
	IncludeHidden bool

	// Parsers lists the optional per-extension parsers to enable.
	Parsers []string
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	Provider          string
	ModelName         string
	BaseURL           string
	APIKey            string
	Dimensions        int
	Timeout           time.Duration
	RequestsPerSecond float64
	Fallback          bool
}

// VectorStoreSettings configures the vector store backend and artifacts.
type VectorStoreSettings struct {
	Type         string
	IndexPath    string
	MetadataPath string
}

// RetrievalSettings configures query-time behaviour.
type RetrievalSettings struct {
	SemanticWeight float64
	Fusion         FusionStrategy
	DefaultTopK    int
	DefaultMode    SearchMode
}

// LoggingSettings configures the verbose logger.
type LoggingSettings struct {
	Level string
}

// DefaultSettings returns the settings used when no config file is present.
func DefaultSettings() Settings {
	return Settings{
		Ingestion: IngestionSettings{
			ChunkSize:    500,
			ChunkOverlap: 100,
			SourcePath:   "./data/docs",
			BatchSize:    64,
			Workers:      1,
		},
		Embeddings: EmbeddingSettings{
			Provider:  "hash",
			ModelName: "all-minilm",
			Timeout:   30 * time.Second,
		},
		VectorStore: VectorStoreSettings{
			Type:         "auto",
			IndexPath:    "./storage/index.db",
			MetadataPath: "./storage/index_metadata.json",
		},
		Retrieval: RetrievalSettings{
			SemanticWeight: 0.6,
			Fusion:         FusionWeighted,
			DefaultTopK:    5,
			DefaultMode:    SearchModeHybrid,
		},
		Logging: LoggingSettings{
			Level: "debug",
		},
	}
}

// Validate checks settings that can be rejected before any adapter is built.
func (s Settings) Validate() error {
	if s.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("%w: ingestion.chunk_size must be positive, got %d", ErrConfiguration, s.Ingestion.ChunkSize)
	}
	if s.Ingestion.ChunkOverlap < 0 || s.Ingestion.ChunkOverlap >= s.Ingestion.ChunkSize {
		return fmt.Errorf("%w: ingestion.chunk_overlap must be in [0, %d), got %d",
			ErrConfiguration, s.Ingestion.ChunkSize, s.Ingestion.ChunkOverlap)
	}
	if s.Retrieval.SemanticWeight < 0 || s.Retrieval.SemanticWeight > 1 {
		return fmt.Errorf("%w: retrieval.semantic_weight must be in [0, 1], got %v",
			ErrConfiguration, s.Retrieval.SemanticWeight)
	}
	if !s.Retrieval.Fusion.IsValid() {
		return fmt.Errorf("%w: unsupported retrieval.fusion %q", ErrConfiguration, s.Retrieval.Fusion)
	}
	if !s.Retrieval.DefaultMode.IsValid() {
		return fmt.Errorf("%w: unsupported retrieval.default_mode %q", ErrConfiguration, s.Retrieval.DefaultMode)
	}
	if s.VectorStore.MetadataPath == "" {
		return fmt.Errorf("%w: vectorstore.metadata_path is required", ErrConfiguration)
	}
	return nil
}
