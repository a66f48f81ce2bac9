package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for portfolio-rag resources.
	uriScheme = "portfolio://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Index != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "index/stats",
			Name:        "index-stats",
			Description: "Indexed documents and chunks per document type",
			MIMEType:    "application/json",
		}, s.handleStatsResource)
	}

	if s.ports.Synchronizer != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "sync/last",
			Name:        "last-sync",
			Description: "Report of the most recent sync run",
			MIMEType:    "application/json",
		}, s.handleLastSyncResource)
	}

	// Template for per-type retrieval, e.g. portfolio://types/project/search?q=...
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "types/{type}/search{?q}",
		Name:        "typed-search",
		Description: "Chunks of one document type relevant to a query",
		MIMEType:    "text/plain",
	}, s.handleTypedSearchResource)
}

// handleStatsResource returns index statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	return jsonResource(req.Params.URI, stats)
}

// handleLastSyncResource returns the last sync report.
func (s *Server) handleLastSyncResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Synchronizer.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync status: %w", err)
	}
	if status.LastReport == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, status.LastReport)
}

// handleTypedSearchResource retrieves chunks restricted to one document type.
func (s *Server) handleTypedSearchResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docType, query := parseTypedSearchURI(req.Params.URI)
	if !docType.IsValid() || query == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	results, err := s.ports.Retriever.Retrieve(ctx, query, &domain.RetrieveOptions{
		SourceTypes: []domain.SourceType{docType},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(r.Text)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     sb.String(),
		}},
	}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// parseTypedSearchURI extracts the type and query from
// portfolio://types/{type}/search?q={query}.
func parseTypedSearchURI(uri string) (domain.SourceType, string) {
	const prefix = uriScheme + "types/"

	if !strings.HasPrefix(uri, prefix) {
		return "", ""
	}
	rest := strings.TrimPrefix(uri, prefix)

	docType, tail, ok := strings.Cut(rest, "/search")
	if !ok || docType == "" {
		return "", ""
	}
	query, err := queryParam(tail, "q")
	if err != nil {
		return "", ""
	}
	return domain.SourceType(docType), query
}

func queryParam(tail, name string) (string, error) {
	raw, ok := strings.CutPrefix(tail, "?")
	if !ok {
		return "", errNoQuery
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(values.Get(name))
	if v == "" {
		return "", errNoQuery
	}
	return v, nil
}

var errNoQuery = errors.New("no query")
