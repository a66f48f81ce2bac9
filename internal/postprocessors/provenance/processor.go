// Package provenance stamps chunks with stable identifiers and source metadata.
package provenance

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// namespace scopes chunk IDs so they never collide with IDs from other generators.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/portfolio-rag/chunk"))

// ChunkID returns the deterministic ID of the index-th chunk of sourceID.
func ChunkID(sourceID string, index int) string {
	return uuid.NewSHA1(namespace, []byte(sourceID+"#"+strconv.Itoa(index))).String()
}

// Processor assigns IDs, positions and provenance metadata to chunks.
type Processor struct{}

// New creates a provenance processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "provenance"
}

// Process renumbers chunks in order and fills ID, source fields and metadata.
// Existing metadata keys written by earlier processors are preserved.
func (p *Processor) Process(_ context.Context, doc *domain.NormalizedDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		c := &chunks[i]
		c.Index = i
		c.ID = ChunkID(doc.SourceID, i)
		c.SourceID = doc.SourceID
		c.SourceType = doc.SourceType

		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		c.Metadata[domain.MetaSource] = string(doc.SourceType)
		c.Metadata[domain.MetaSourceID] = doc.SourceID
		c.Metadata[domain.MetaChunkIndex] = i
		if doc.Title != "" {
			c.Metadata[domain.MetaTitle] = doc.Title
		}
		if offset, ok := c.Metadata[domain.MetaOffset].(int); ok {
			if path := doc.FieldAt(offset); path != "" {
				c.Metadata[domain.MetaFieldPath] = path
			}
		}
	}
	return chunks, nil
}
