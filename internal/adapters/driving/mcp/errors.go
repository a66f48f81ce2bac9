// Package mcp provides an MCP (Model Context Protocol) server adapter for portfolio-rag.
// It lets AI assistants retrieve portfolio context and inspect the index.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
