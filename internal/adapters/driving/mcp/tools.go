package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// SearchInput is the input schema for the search and ask tools.
type SearchInput struct {
	Question string `json:"question" jsonschema:"the question to search the documentation for"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	Mode     string `json:"mode,omitempty" jsonschema:"retrieval mode: semantic, keyword or hybrid (default hybrid)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	SourcePath string  `json:"source_path,omitempty"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string        `json:"answer"`
	Sources []ChunkOutput `json:"sources"`
}

// ReindexInput is the input schema for the reindex tool.
type ReindexInput struct {
	Path string `json:"path,omitempty" jsonschema:"directory or file to index (default: configured source path)"`
}

// UpdateInput is the input schema for the update tool.
type UpdateInput struct {
	Paths []string `json:"paths" jsonschema:"changed files or directories to re-index"`
}

// IndexOutput reports how many chunks an index run wrote.
type IndexOutput struct {
	ChunksIndexed int `json:"chunks_indexed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the indexed documentation and return the most relevant chunks",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documentation, with sources",
	}, s.handleAsk)

	if s.ports.Index == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reindex",
		Description: "Rebuild the index from a documentation directory",
	}, s.handleReindex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update",
		Description: "Re-index changed documentation files",
	}, s.handleUpdate)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Retrieval.Answer(ctx, input.Question, input.TopK, domain.SearchMode(input.Mode))
	if err != nil {
		return nil, SearchOutput{}, toolError("search", err)
	}

	return nil, SearchOutput{
		Results: toChunkOutputs(results),
		Count:   len(results),
	}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Retrieval.Ask(ctx, input.Question, input.TopK, domain.SearchMode(input.Mode))
	if err != nil {
		return nil, AskOutput{}, toolError("ask", err)
	}

	return nil, AskOutput{
		Answer:  answer.Text,
		Sources: toChunkOutputs(answer.Sources),
	}, nil
}

// handleReindex handles the reindex tool invocation.
func (s *Server) handleReindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReindexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexOutput{}, ErrIndexingDisabled
	}

	path := input.Path
	if path == "" {
		path = s.ports.SourcePath
	}

	n, err := s.ports.Index.RunFullReindex(ctx, path)
	if err != nil {
		return nil, IndexOutput{}, toolError("reindex", err)
	}
	return nil, IndexOutput{ChunksIndexed: n}, nil
}

// handleUpdate handles the update tool invocation.
func (s *Server) handleUpdate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexOutput{}, ErrIndexingDisabled
	}

	if len(input.Paths) == 0 {
		return nil, IndexOutput{}, toolError("update", fmt.Errorf("%w: paths is required", domain.ErrInvalidInput))
	}

	n, err := s.ports.Index.RunIncrementalUpdate(ctx, input.Paths)
	if err != nil {
		return nil, IndexOutput{}, toolError("update", err)
	}
	return nil, IndexOutput{ChunksIndexed: n}, nil
}

func toChunkOutputs(results []domain.RetrievedChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(results))
	for i, r := range results {
		out[i] = ChunkOutput{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Chunk.DocumentID,
			SourcePath: r.Chunk.SourcePath(),
			Content:    r.Chunk.Content,
			Score:      r.Score,
			Source:     r.Source,
		}
	}
	return out
}
