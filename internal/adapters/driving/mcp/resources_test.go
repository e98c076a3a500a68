package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

func TestExtractChunkID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid chunk URI",
			uri:      "docseek://chunks/abc123:0",
			expected: "abc123:0",
		},
		{
			name:     "invalid prefix",
			uri:      "file://chunks/abc",
			expected: "",
		},
		{
			name:     "empty id",
			uri:      "docseek://chunks/",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractChunkID(tt.uri))
		})
	}
}

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func catalogServer(t *testing.T, catalog *mockCatalogService) *Server {
	t.Helper()
	return newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Catalog: catalog})
}

func TestServer_handleStatsResource(t *testing.T) {
	catalog := &mockCatalogService{stats: domain.IndexStats{Chunks: 3, Documents: 2, Sources: 2, Dimension: 384}}
	server := catalogServer(t, catalog)

	result, err := server.handleStatsResource(context.Background(), readRequest("docseek://index/stats"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.JSONEq(t, `{"chunks":3,"documents":2,"sources":2,"dimension":384}`, result.Contents[0].Text)
}

func TestServer_handleSourcesResource(t *testing.T) {
	t.Run("lists sources", func(t *testing.T) {
		server := catalogServer(t, &mockCatalogService{sources: []string{"a.md", "b.md"}})

		result, err := server.handleSourcesResource(context.Background(), readRequest("docseek://sources"))

		require.NoError(t, err)
		assert.JSONEq(t, `["a.md","b.md"]`, result.Contents[0].Text)
	})

	t.Run("propagates errors", func(t *testing.T) {
		server := catalogServer(t, &mockCatalogService{err: errors.New("boom")})

		_, err := server.handleSourcesResource(context.Background(), readRequest("docseek://sources"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestServer_handleChunkResource(t *testing.T) {
	catalog := &mockCatalogService{chunks: map[string]domain.Chunk{
		"c-1": {ID: "c-1", Content: "Create a group recipe."},
	}}
	server := catalogServer(t, catalog)

	t.Run("returns content", func(t *testing.T) {
		result, err := server.handleChunkResource(context.Background(), readRequest("docseek://chunks/c-1"))

		require.NoError(t, err)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
		assert.Equal(t, "Create a group recipe.", result.Contents[0].Text)
	})

	t.Run("unknown chunk", func(t *testing.T) {
		_, err := server.handleChunkResource(context.Background(), readRequest("docseek://chunks/zzz"))
		assert.Error(t, err)
	})

	t.Run("malformed uri", func(t *testing.T) {
		_, err := server.handleChunkResource(context.Background(), readRequest("file://chunks/c-1"))
		assert.Error(t, err)
	})
}
