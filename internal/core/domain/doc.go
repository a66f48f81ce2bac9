// Package domain defines the core business entities for portfolio-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: A CMS entity (profile, project, aiProject, aiShowcase)
//   - NormalizedDocument: Canonical text and content hash for a SourceDocument
//   - Chunk: An embedded span of text with provenance
//   - SyncState: What has already been embedded for a source document
//   - SyncReport: The outcome of a synchronisation run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
