package mcp

import (
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever answers similarity queries.
	Retriever driving.Retriever

	// Synchronizer reports and triggers sync runs. Optional.
	Synchronizer driving.Synchronizer

	// Index reports index statistics. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
