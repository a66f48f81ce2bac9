package memory

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

func chunk(id, source string, typ domain.SourceType, index int, vec ...float32) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		SourceID:   source,
		SourceType: typ,
		Index:      index,
		Content:    "content " + id,
		Embedding:  vec,
		Metadata:   map[string]any{domain.MetaSource: string(typ), domain.MetaSourceID: source},
	}
}

// chunksFor returns the stored chunks of one source ordered by index.
func chunksFor(s *VectorStore, sourceID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.SourceID == sourceID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func TestVectorStore_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()

	require.NoError(t, store.UpsertChunks(ctx, []domain.Chunk{chunk("a", "doc", domain.SourceTypeProject, 0, 1, 0)}))
	updated := chunk("a", "doc", domain.SourceTypeProject, 0, 0, 1)
	updated.Content = "new"
	require.NoError(t, store.UpsertChunks(ctx, []domain.Chunk{updated}))

	got := chunksFor(store, "doc")
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()

	require.NoError(t, store.UpsertChunks(ctx, []domain.Chunk{chunk("a", "doc", domain.SourceTypeProject, 0, 1, 0, 0)}))

	err := store.UpsertChunks(ctx, []domain.Chunk{chunk("b", "doc2", domain.SourceTypeProject, 0, 1, 0)})
	var dimErr *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
	assert.Empty(t, chunksFor(store, "doc2"))

	dims, err := store.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)
}

func TestVectorStore_DeleteBySource(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	require.NoError(t, store.UpsertChunks(ctx, []domain.Chunk{
		chunk("a0", "a", domain.SourceTypeProject, 0, 1, 0),
		chunk("a1", "a", domain.SourceTypeProject, 1, 1, 0),
		chunk("b0", "b", domain.SourceTypeProfile, 0, 0, 1),
	}))

	require.NoError(t, store.DeleteBySource(ctx, "a"))
	require.NoError(t, store.DeleteBySource(ctx, "unknown"))

	assert.Empty(t, chunksFor(store, "a"))
	assert.Len(t, chunksFor(store, "b"), 1)
}

func TestVectorStore_Search(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	require.NoError(t, store.UpsertChunks(ctx, []domain.Chunk{
		chunk("exact", "p1", domain.SourceTypeProject, 0, 1, 0),
		chunk("close", "p2", domain.SourceTypeProject, 0, 0.9, 0.1),
		chunk("far", "p3", domain.SourceTypeProject, 0, 0, 1),
		chunk("profile", "me", domain.SourceTypeProfile, 0, 0.8, 0.2),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, domain.SearchOptions{Threshold: 0.5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Chunk.ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.5)
	}

	limited, err := store.Search(ctx, []float32{1, 0}, domain.SearchOptions{Threshold: 0, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	filtered, err := store.Search(ctx, []float32{1, 0}, domain.SearchOptions{
		Limit:       10,
		SourceTypes: []domain.SourceType{domain.SourceTypeProfile},
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "profile", filtered[0].Chunk.ID)
}

func TestVectorStore_SyncStateAndStats(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, store.UpsertChunks(ctx, []domain.Chunk{chunk("a0", "a", domain.SourceTypeProject, 0, 1)}))
	require.NoError(t, store.SetSyncState(ctx, domain.SyncState{SourceID: "a", SourceType: domain.SourceTypeProject, ContentHash: "h1", ChunkCount: 1, SyncedAt: older}))
	require.NoError(t, store.SetSyncState(ctx, domain.SyncState{SourceID: "me", SourceType: domain.SourceTypeProfile, ContentHash: "h2", SyncedAt: newer}))

	states, err := store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Equal(t, "h1", states["a"].ContentHash)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 1, stats.TotalChunks)
	require.NotNil(t, stats.LastSync)
	assert.Equal(t, newer, *stats.LastSync)
	assert.Equal(t, 1, stats.SourcesCount[domain.SourceTypeProfile])

	require.NoError(t, store.DeleteSyncState(ctx, "a"))
	states, err = store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.NotContains(t, states, "a")
}
