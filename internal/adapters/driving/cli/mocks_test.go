package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

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
	_ context.Context, question string, topK int, mode domain.SearchMode,
) ([]domain.RetrievedChunk, error) {
	m.question, m.topK, m.mode = question, topK, mode
	return m.results, m.err
}

func (m *mockRetrievalService) Ask(
	_ context.Context, question string, topK int, mode domain.SearchMode,
) (domain.Answer, error) {
	m.question, m.topK, m.mode = question, topK, mode
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
// It is safe for the concurrent use the watch command makes of it.
type mockIndexService struct {
	mu      sync.Mutex
	count   int
	err     error
	path    string
	updates [][]string
}

func (m *mockIndexService) RunFullReindex(_ context.Context, sourcePath string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = sourcePath
	return m.count, m.err
}

func (m *mockIndexService) RunIncrementalUpdate(_ context.Context, sources []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, sources)
	return m.count, m.err
}

func (m *mockIndexService) updateCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.updates...)
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	stats domain.IndexStats
	err   error
}

func (m *mockCatalogService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockCatalogService) Chunk(_ context.Context, _ string) (domain.Chunk, error) {
	return domain.Chunk{}, domain.ErrNotFound
}

func (m *mockCatalogService) Sources(_ context.Context) ([]string, error) {
	return nil, m.err
}

// mockVectorStore is a minimal driven.VectorStore for the compact command.
type mockVectorStore struct {
	compactErr error
	compacted  bool
	live       int
}

func (m *mockVectorStore) Add(_ context.Context, _ [][]float32, _ []domain.Chunk) error { return nil }
func (m *mockVectorStore) Search(_ context.Context, _ []float32, _ int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}
func (m *mockVectorStore) Delete(_ context.Context, _ ...string) error     { return nil }
func (m *mockVectorStore) Save(_ context.Context) error                  { return nil }
func (m *mockVectorStore) Chunks() []domain.Chunk                        { return nil }
func (m *mockVectorStore) Select(_ func(domain.Chunk) bool) []string     { return nil }
func (m *mockVectorStore) Dimension() int                                { return 0 }
func (m *mockVectorStore) Len() int                                      { return m.live }
func (m *mockVectorStore) Close() error                                  { return nil }

func (m *mockVectorStore) Compact(_ context.Context) error {
	m.compacted = true
	return m.compactErr
}

type mockKeywordIndex struct {
	n   int
	err error
}

func (m *mockKeywordIndex) Len(context.Context) (int, error) { return m.n, m.err }

// testApp bundles the mocks installed by setupTestServices.
type testApp struct {
	retrieval *mockRetrievalService
	index     *mockIndexService
	catalog   *mockCatalogService
	store     *mockVectorStore
	keyword   *mockKeywordIndex
}

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() (*testApp, func()) {
	mocks := &testApp{
		retrieval: &mockRetrievalService{},
		index:     &mockIndexService{},
		catalog:   &mockCatalogService{},
		store:     &mockVectorStore{},
		keyword:   &mockKeywordIndex{},
	}

	original := app
	app = &App{
		Settings:  domain.DefaultSettings(),
		Retrieval: mocks.retrieval,
		Index:     mocks.index,
		Catalog:   mocks.catalog,
		Store:     mocks.store,
		Keyword:   mocks.keyword,
	}

	return mocks, func() { app = original }
}

// resetFlags restores every flag to its default so executions do not
// leak flag values into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue) //nolint:errcheck
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	// Cobra keeps a subcommand's context from an earlier run and only
	// inherits the parent's when it is nil.
	setContext(rootCmd, ctx)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func setContext(cmd *cobra.Command, ctx context.Context) {
	for _, c := range cmd.Commands() {
		c.SetContext(ctx)
		setContext(c, ctx)
	}
}
