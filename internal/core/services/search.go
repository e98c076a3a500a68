package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/core/ports/driving"
	"github.com/custodia-labs/docseek/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Default retrieval parameters.
const (
	DefaultSemanticWeight = 0.6
	DefaultTopK           = 5
)

// Retriever answers questions with semantic, keyword or hybrid search.
type Retriever struct {
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	keyword   driven.KeywordIndex
	generator driven.Generator

	semanticWeight float64
	fusion         domain.FusionStrategy
	defaultTopK    int
	defaultMode    domain.SearchMode
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithSemanticWeight sets the semantic share of the weighted fusion score.
// It must be in [0, 1].
func WithSemanticWeight(w float64) RetrieverOption {
	return func(r *Retriever) {
		r.semanticWeight = w
	}
}

// WithFusion selects the hybrid fusion strategy.
func WithFusion(f domain.FusionStrategy) RetrieverOption {
	return func(r *Retriever) {
		r.fusion = f
	}
}

// WithDefaultTopK sets the result count used when a caller passes topK <= 0.
func WithDefaultTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.defaultTopK = k
		}
	}
}

// WithDefaultMode sets the mode used when a caller passes an empty mode.
func WithDefaultMode(m domain.SearchMode) RetrieverOption {
	return func(r *Retriever) {
		r.defaultMode = m
	}
}

// WithGenerator sets the generator used by Ask.
func WithGenerator(g driven.Generator) RetrieverOption {
	return func(r *Retriever) {
		r.generator = g
	}
}

// NewRetriever creates a retriever over the vector store and keyword index.
func NewRetriever(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	keyword driven.KeywordIndex,
	opts ...RetrieverOption,
) (*Retriever, error) {
	r := &Retriever{
		embedder:       embedder,
		store:          store,
		keyword:        keyword,
		semanticWeight: DefaultSemanticWeight,
		fusion:         domain.FusionWeighted,
		defaultTopK:    DefaultTopK,
		defaultMode:    domain.SearchModeHybrid,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.semanticWeight < 0 || r.semanticWeight > 1 {
		return nil, fmt.Errorf("%w: semantic weight must be in [0, 1], got %v",
			domain.ErrConfiguration, r.semanticWeight)
	}
	if !r.fusion.IsValid() {
		return nil, fmt.Errorf("%w: unsupported fusion strategy %q", domain.ErrConfiguration, r.fusion)
	}
	if !r.defaultMode.IsValid() {
		return nil, fmt.Errorf("%w: unsupported search mode %q", domain.ErrConfiguration, r.defaultMode)
	}
	return r, nil
}

// Refresh rebuilds the keyword index from the live rows of the store.
func (r *Retriever) Refresh(ctx context.Context) error {
	if r.keyword == nil {
		return nil
	}
	chunks := r.store.Chunks()
	if err := r.keyword.Build(ctx, chunks); err != nil {
		return fmt.Errorf("build keyword index: %w", err)
	}
	logger.Debug("Keyword index built: %d chunks", len(chunks))
	return nil
}

// Answer returns the top chunks for question using mode.
func (r *Retriever) Answer(
	ctx context.Context, question string, topK int, mode domain.SearchMode,
) ([]domain.RetrievedChunk, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, mode: %s, top_k: %d", question, mode, topK)

	if mode == "" {
		mode = r.defaultMode
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unsupported search mode %q", domain.ErrConfiguration, mode)
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}
	if strings.TrimSpace(question) == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.RetrievedChunk{}, nil
	}

	var (
		results []domain.RetrievedChunk
		err     error
	)
	switch mode {
	case domain.SearchModeSemantic:
		results, err = r.Semantic(ctx, question, topK)
	case domain.SearchModeKeyword:
		results, err = r.Keyword(ctx, question, topK)
	default:
		results, err = r.Hybrid(ctx, question, topK)
	}
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		return nil, err
	}

	logger.Info("Retrieved %d chunks (%s)", len(results), mode)
	return results, nil
}

// Ask retrieves chunks for question and generates an answer from them.
func (r *Retriever) Ask(
	ctx context.Context, question string, topK int, mode domain.SearchMode,
) (domain.Answer, error) {
	if r.generator == nil {
		return domain.Answer{}, fmt.Errorf("%w: no answer generator configured", domain.ErrNotAvailable)
	}

	chunks, err := r.Answer(ctx, question, topK, mode)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := r.generator.Generate(ctx, question, chunks)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	return domain.Answer{Text: text, Sources: chunks}, nil
}

// Semantic embeds question and searches the vector store.
func (r *Retriever) Semantic(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if r.embedder == nil || r.store == nil {
		return nil, fmt.Errorf("%w: semantic search is not configured", domain.ErrNotAvailable)
	}

	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	results, err := r.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	for i := range results {
		results[i].Source = domain.SourceSemantic
	}
	logger.Debug("Semantic search: %d hits", len(results))
	return results, nil
}

// Keyword searches the keyword index.
func (r *Retriever) Keyword(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if r.keyword == nil {
		return nil, fmt.Errorf("%w: keyword search is not configured", domain.ErrNotAvailable)
	}

	hits, err := r.keyword.Search(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	results := make([]domain.RetrievedChunk, len(hits))
	for i, hit := range hits {
		results[i] = domain.RetrievedChunk{
			Chunk:  hit.Chunk,
			Score:  hit.Score,
			Source: domain.SourceKeyword,
		}
	}
	logger.Debug("Keyword search: %d hits", len(results))
	return results, nil
}

// Hybrid runs semantic and keyword search in parallel for k results each
// and fuses the lists.
func (r *Retriever) Hybrid(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	logger.Debug("Hybrid search: running semantic and keyword searches in parallel")

	var semantic, keyword []domain.RetrievedChunk
	var semanticErr, keywordErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		semantic, semanticErr = r.Semantic(ctx, question, k)
	}()

	go func() {
		defer wg.Done()
		keyword, keywordErr = r.Keyword(ctx, question, k)
	}()

	wg.Wait()

	if err := errors.Join(semanticErr, keywordErr); err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	logger.Debug("Hybrid search: fusing %d semantic + %d keyword results with %s",
		len(semantic), len(keyword), r.fusion)
	if r.fusion == domain.FusionRRF {
		return reciprocalRankFusion(semantic, keyword, k), nil
	}
	return weightedFusion(semantic, keyword, r.semanticWeight, k), nil
}
