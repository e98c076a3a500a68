package mcp

import (
	"context"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.RetrievedChunk
	answer  domain.Answer
	err     error

	question string
	topK     int
	mode     domain.SearchMode
}

func (m *mockRetrievalService) Answer(
	_ context.Context,
	question string,
	topK int,
	mode domain.SearchMode,
) ([]domain.RetrievedChunk, error) {
	m.question, m.topK, m.mode = question, topK, mode
	return m.results, m.err
}

func (m *mockRetrievalService) Ask(
	_ context.Context,
	question string,
	topK int,
	mode domain.SearchMode,
) (domain.Answer, error) {
	m.question, m.topK, m.mode = question, topK, mode
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	count int
	err   error

	fullPath string
	sources  []string
}

func (m *mockIndexService) RunFullReindex(_ context.Context, sourcePath string) (int, error) {
	m.fullPath = sourcePath
	return m.count, m.err
}

func (m *mockIndexService) RunIncrementalUpdate(_ context.Context, sources []string) (int, error) {
	m.sources = sources
	return m.count, m.err
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	stats   domain.IndexStats
	chunks  map[string]domain.Chunk
	sources []string
	err     error
}

func (m *mockCatalogService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockCatalogService) Chunk(_ context.Context, id string) (domain.Chunk, error) {
	if m.err != nil {
		return domain.Chunk{}, m.err
	}
	c, ok := m.chunks[id]
	if !ok {
		return domain.Chunk{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *mockCatalogService) Sources(_ context.Context) ([]string, error) {
	return m.sources, m.err
}
