package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

func TestChunkMetadata_IdentityKeysWin(t *testing.T) {
	c := domain.Chunk{
		ID:         "id",
		SourceID:   "casa-bonita",
		SourceType: domain.SourceTypeProject,
		Index:      2,
		Metadata: map[string]any{
			domain.MetaSourceID: "stale",
			domain.MetaTitle:    "Casa Bonita",
		},
	}

	meta := chunkMetadata(c)

	assert.Equal(t, "casa-bonita", meta[domain.MetaSourceID])
	assert.Equal(t, "project", meta[domain.MetaSource])
	assert.Equal(t, 2, meta[domain.MetaChunkIndex])
	assert.Equal(t, "Casa Bonita", meta[domain.MetaTitle])
	assert.Equal(t, "stale", c.Metadata[domain.MetaSourceID], "input metadata must not be mutated")
}

func TestChunkFromRow(t *testing.T) {
	// jsonb numbers decode as float64
	c := chunkFromRow("id", "text", []float32{1, 2}, map[string]any{
		domain.MetaSourceID:   "me",
		domain.MetaSource:     "profile",
		domain.MetaChunkIndex: float64(3),
	})

	assert.Equal(t, "me", c.SourceID)
	assert.Equal(t, domain.SourceTypeProfile, c.SourceType)
	assert.Equal(t, 3, c.Index)
	assert.Equal(t, []float32{1, 2}, c.Embedding)
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "idx_documents_source_id", indexName(`"documents"`, "source_id"))
}

func TestNewStore_EmptyDSN(t *testing.T) {
	_, err := NewStore(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
}

// TestStore_Integration runs against a real pgvector database when
// PORTFOLIO_RAG_TEST_POSTGRES_DSN is set.
func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("PORTFOLIO_RAG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PORTFOLIO_RAG_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	table := "test_chunks_" + uuid.NewString()[:8]

	store, err := NewStore(ctx, Config{DSN: dsn, Table: table})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = store.pool.Exec(ctx, "DROP TABLE IF EXISTS "+store.table)
		_ = store.Close()
	})
	vs := store.VectorStore()

	require.NoError(t, vs.UpsertChunks(ctx, []domain.Chunk{
		{ID: "a0", SourceID: "a", SourceType: domain.SourceTypeProject, Index: 0, Content: "alpha", Embedding: []float32{1, 0, 0}},
		{ID: "b0", SourceID: "b", SourceType: domain.SourceTypeProfile, Index: 0, Content: "beta", Embedding: []float32{0, 1, 0}},
	}))

	results, err := vs.Search(ctx, []float32{1, 0, 0}, domain.SearchOptions{Threshold: 0.5, Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.SourceID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	err = vs.UpsertChunks(ctx, []domain.Chunk{{ID: "c0", SourceID: "c", Embedding: []float32{1, 0}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, vs.DeleteBySource(ctx, "a"))
	results, err = vs.Search(ctx, []float32{1, 0, 0}, domain.SearchOptions{Limit: 5})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.Chunk.SourceID)
	}

	id := "it-" + uuid.NewString()
	require.NoError(t, vs.SetSyncState(ctx, domain.SyncState{
		SourceID: id, SourceType: domain.SourceTypeProject, ContentHash: "h", ChunkCount: 1, SyncedAt: time.Now(),
	}))
	states, err := vs.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h", states[id].ContentHash)
	require.NoError(t, vs.DeleteSyncState(ctx, id))
}
