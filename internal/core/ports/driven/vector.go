package driven

import (
	"context"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// VectorStore persists embedded chunks and per-document sync state,
// and answers cosine similarity queries.
//
// Implementations must:
//   - upsert chunks by ID
//   - treat DeleteBySource of an unknown source as a no-op
//   - return search results with Score >= Threshold, in descending score order,
//     at most Limit of them
//   - reject vectors whose length differs from stored vectors with
//     *domain.DimensionMismatchError
//   - wrap backend failures in *domain.StoreUnavailableError
type VectorStore interface {
	// UpsertChunks inserts or replaces chunks by ID.
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// DeleteBySource removes every chunk whose source ID matches.
	DeleteBySource(ctx context.Context, sourceID string) error

	// Search returns the chunks most similar to the query vector.
	Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error)

	// GetSyncState returns the sync state of every tracked document, keyed by source ID.
	GetSyncState(ctx context.Context) (map[string]domain.SyncState, error)

	// SetSyncState stores or replaces the sync state for one document.
	SetSyncState(ctx context.Context, state domain.SyncState) error

	// DeleteSyncState removes the sync state for one document.
	DeleteSyncState(ctx context.Context, sourceID string) error

	// Dimensions returns the vector size of stored chunks, or 0 when empty.
	Dimensions(ctx context.Context) (int, error)

	// Stats summarises the store contents.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
