package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docseek/internal/adapters/driven/ai"
	"github.com/custodia-labs/docseek/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docseek/internal/adapters/driven/generation/extractive"
	"github.com/custodia-labs/docseek/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docseek/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docseek/internal/connectors/filesystem"
	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/core/ports/driving"
	"github.com/custodia-labs/docseek/internal/core/services"
	"github.com/custodia-labs/docseek/internal/logger"
	"github.com/custodia-labs/docseek/internal/normalisers"
	"github.com/custodia-labs/docseek/internal/normalisers/html"
	"github.com/custodia-labs/docseek/internal/normalisers/markdown"
	"github.com/custodia-labs/docseek/internal/postprocessors/chunker"
)

// parserBuilders names the optional parsers enabled by ingestion.parsers.
var parserBuilders = map[string]normalisers.BuilderFunc{
	html.Name:     func() driven.Parser { return html.New() },
	markdown.Name: func() driven.Parser { return markdown.New() },
}

// keywordCounter reports how many chunks the keyword index holds.
type keywordCounter interface {
	Len(ctx context.Context) (int, error)
}

// App holds the wired services for one CLI invocation.
type App struct {
	Settings   domain.Settings
	ConfigPath string

	Retrieval driving.RetrievalService
	Index     driving.IndexService
	Catalog   driving.CatalogService
	Store     driven.VectorStore
	Keyword   keywordCounter

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

var (
	app *App

	// appLoader builds the App on first use. Tests replace it.
	appLoader = loadApp
)

// appFor returns the wired App, building it on first use.
func appFor(cmd *cobra.Command) (*App, error) {
	if app != nil {
		return app, nil
	}
	a, err := appLoader(cmd.Context())
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}

func closeApp() {
	if app == nil {
		return
	}
	if err := app.Close(); err != nil {
		logger.Warn("Closing services: %v", err)
	}
	app = nil
}

func loadApp(ctx context.Context) (*App, error) {
	settings, path, err := file.LoadSettings(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	if err := logger.SetLevel(settings.Logging.Level); err != nil {
		logger.Warn("%v", err)
	}
	if path == "" {
		logger.Debug("Config: built-in defaults")
	} else {
		logger.Debug("Config: %s", path)
	}

	a, err := Build(ctx, settings, registry)
	if err != nil {
		return nil, err
	}
	a.ConfigPath = path
	return a, nil
}

// Build wires every adapter and service described by settings. Metrics
// are registered on reg, which may be nil.
func Build(ctx context.Context, settings domain.Settings, reg prometheus.Registerer) (*App, error) {
	a := &App{Settings: settings}
	built := false
	defer func() {
		if !built {
			a.Close() //nolint:errcheck
		}
	}()

	logger.Section("Startup")

	embed, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embeddings, reg)
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	a.closers = append(a.closers, func() error {
		embed.Close()
		return nil
	})
	for _, w := range embed.Warnings {
		logger.Warn("%s", w)
	}
	logger.Debug("Embeddings: %s (%s, %d dims)",
		embed.Provider, embed.EmbeddingService.ModelName(), embed.EmbeddingService.Dimensions())

	store, err := vectorstore.New(ctx, settings.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	a.Store = store
	logger.Debug("Vector store: %s backend, %d live chunks", store.Backend(), store.Len())

	if dim := store.Dimension(); dim != 0 && dim != embed.EmbeddingService.Dimensions() {
		logger.Warn("Index dimension %d does not match embedder dimension %d. "+
			"Remove %s and %s, then run docseek index to rebuild",
			dim, embed.EmbeddingService.Dimensions(),
			settings.VectorStore.IndexPath, settings.VectorStore.MetadataPath)
	}

	keyword, err := sqlite.NewKeywordIndex("")
	if err != nil {
		return nil, fmt.Errorf("opening keyword index: %w", err)
	}
	a.closers = append(a.closers, keyword.Close)
	a.Keyword = keyword

	parsers, err := normalisers.Build(settings.Ingestion.Parsers, parserBuilders)
	if err != nil {
		return nil, err
	}
	splitter, err := chunker.New(
		chunker.WithChunkSize(settings.Ingestion.ChunkSize),
		chunker.WithOverlap(settings.Ingestion.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}

	a.Index = services.NewIndexUpdater(
		filesystem.NewLoader(
			filesystem.WithParsers(parsers),
			filesystem.WithHiddenFiles(settings.Ingestion.IncludeHidden),
		),
		splitter,
		embed.EmbeddingService,
		store,
		services.WithBatchSize(settings.Ingestion.BatchSize),
		services.WithWorkers(settings.Ingestion.Workers),
		services.WithDeleteOnEmpty(settings.Ingestion.DeleteOnEmpty),
		services.WithPruneMissing(settings.Ingestion.PruneMissing),
		services.WithKeywordIndex(keyword),
	)

	retriever, err := services.NewRetriever(embed.EmbeddingService, store, keyword,
		services.WithSemanticWeight(settings.Retrieval.SemanticWeight),
		services.WithFusion(settings.Retrieval.Fusion),
		services.WithDefaultTopK(settings.Retrieval.DefaultTopK),
		services.WithDefaultMode(settings.Retrieval.DefaultMode),
		services.WithGenerator(extractive.New(extractive.WithMaxSources(settings.Retrieval.DefaultTopK))),
	)
	if err != nil {
		return nil, err
	}
	if err := retriever.Refresh(ctx); err != nil {
		return nil, err
	}
	a.Retrieval = retriever
	a.Catalog = services.NewCatalog(store)

	built = true
	return a, nil
}
