package driving

import (
	"context"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// Retriever finds the context chunks most relevant to a user question.
type Retriever interface {
	// Retrieve returns chunks ranked by similarity to query.
	// Nil opts uses the configured defaults. No match is an empty result, not an error.
	Retrieve(ctx context.Context, query string, opts *domain.RetrieveOptions) ([]domain.RetrievedChunk, error)
}

// IndexService reports on the contents of the vector index.
type IndexService interface {
	// Stats summarises indexed documents and chunks.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
