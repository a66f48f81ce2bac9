package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/services"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query     string   `json:"query" jsonschema:"the visitor question to find portfolio context for"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of chunks to return"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum similarity score between 0 and 1"`
	Types     []string `json:"types,omitempty" jsonschema:"restrict to document types: profile, project, aiProject, aiShowcase"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`

	// Context is the results rendered as numbered blocks for a prompt.
	Context string `json:"context"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	SourceID   string  `json:"source_id"`
	SourceType string  `json:"source_type"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// SyncStatusInput is the input schema for the sync_status tool.
type SyncStatusInput struct{}

// SyncStatusOutput is the output schema for the sync_status tool.
type SyncStatusOutput struct {
	Running    bool               `json:"running"`
	LastReport *domain.SyncReport `json:"last_report,omitempty"`
	Stats      *domain.IndexStats `json:"stats,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find portfolio content relevant to a question",
	}, s.handleRetrieve)

	if s.ports.Synchronizer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "sync_status",
			Description: "Report whether a sync is running, the last sync result and index statistics",
		}, s.handleSyncStatus)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := &domain.RetrieveOptions{Limit: input.Limit, Threshold: input.Threshold}
	for _, t := range input.Types {
		opts.SourceTypes = append(opts.SourceTypes, domain.SourceType(t))
	}

	results, err := s.ports.Retriever.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]ChunkOutput, len(results)),
		Count:   len(results),
		Context: services.FormatContext(results),
	}
	for i, r := range results {
		output.Results[i] = ChunkOutput{
			SourceID:   r.SourceID,
			SourceType: r.SourceType.String(),
			Title:      r.Title,
			Score:      r.Score,
			Text:       r.Text,
		}
	}

	return nil, output, nil
}

// handleSyncStatus handles the sync_status tool invocation.
func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncStatusInput,
) (*mcp.CallToolResult, SyncStatusOutput, error) {
	if s.ports.Synchronizer == nil {
		return nil, SyncStatusOutput{}, errors.New("synchroniser not configured")
	}
	status, err := s.ports.Synchronizer.Status(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, err
	}

	output := SyncStatusOutput{Running: status.Running, LastReport: status.LastReport}
	if s.ports.Index != nil {
		stats, err := s.ports.Index.Stats(ctx)
		if err != nil {
			return nil, SyncStatusOutput{}, err
		}
		output.Stats = &stats
	}
	return nil, output, nil
}
