package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

func unavailable(op string, err error) error {
	return &domain.StoreUnavailableError{Op: op, Err: err}
}

// UpsertChunks writes all chunks in one transaction.
func (s *vectorStore) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dims, err := s.Dimensions(ctx)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return &domain.DimensionMismatchError{Expected: dims, Got: len(c.Embedding)}
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`, s.store.table)

	err = pgx.BeginFunc(ctx, s.store.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(query, c.ID, c.Content, pgvector.NewVector(c.Embedding), chunkMetadata(c))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return unavailable("upsert", err)
	}
	return nil
}

// DeleteBySource removes every chunk whose metadata names the source.
func (s *vectorStore) DeleteBySource(ctx context.Context, sourceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE metadata->>'sourceId' = $1`, s.store.table)
	if _, err := s.store.pool.Exec(ctx, query, sourceID); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// Search ranks chunks by cosine similarity inside the database.
func (s *vectorStore) Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	dims, err := s.Dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if dims > 0 && len(query) != dims {
		return nil, &domain.DimensionMismatchError{Expected: dims, Got: len(query)}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = math.MaxInt32
	}
	types := make([]string, len(opts.SourceTypes))
	for i, t := range opts.SourceTypes {
		types[i] = string(t)
	}

	sql := fmt.Sprintf(`
		SELECT id, content, embedding, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		  AND (cardinality($4::text[]) = 0 OR metadata->>'source' = ANY($4::text[]))
		ORDER BY embedding <=> $1
		LIMIT $3
	`, s.store.table)

	rows, err := s.store.pool.Query(ctx, sql, pgvector.NewVector(query), opts.Threshold, limit, types)
	if err != nil {
		return nil, unavailable("search", err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var (
			id, content string
			embedding   pgvector.Vector
			metadata    map[string]any
			similarity  float64
		)
		if err := rows.Scan(&id, &content, &embedding, &metadata, &similarity); err != nil {
			return nil, unavailable("search", fmt.Errorf("scanning chunk: %w", err))
		}
		results = append(results, domain.ScoredChunk{
			Chunk: chunkFromRow(id, content, embedding.Slice(), metadata),
			Score: similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("search", err)
	}
	return results, nil
}

// GetSyncState loads every sync state row.
func (s *vectorStore) GetSyncState(ctx context.Context) (map[string]domain.SyncState, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT source_id, source_type, content_hash, chunk_count, synced_at
		FROM rag_sync_state
	`)
	if err != nil {
		return nil, unavailable("get sync state", err)
	}
	defer rows.Close()

	states := make(map[string]domain.SyncState)
	for rows.Next() {
		var st domain.SyncState
		var sourceType string
		if err := rows.Scan(&st.SourceID, &sourceType, &st.ContentHash, &st.ChunkCount, &st.SyncedAt); err != nil {
			return nil, unavailable("get sync state", fmt.Errorf("scanning sync state: %w", err))
		}
		st.SourceType = domain.SourceType(sourceType)
		states[st.SourceID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get sync state", err)
	}
	return states, nil
}

// SetSyncState stores or updates sync state for a document.
func (s *vectorStore) SetSyncState(ctx context.Context, state domain.SyncState) error {
	if state.SyncedAt.IsZero() {
		state.SyncedAt = time.Now().UTC()
	}
	_, err := s.store.pool.Exec(ctx, `
		INSERT INTO rag_sync_state (source_id, source_type, content_hash, chunk_count, synced_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_id) DO UPDATE SET
			source_type = EXCLUDED.source_type,
			content_hash = EXCLUDED.content_hash,
			chunk_count = EXCLUDED.chunk_count,
			synced_at = EXCLUDED.synced_at
	`, state.SourceID, string(state.SourceType), state.ContentHash, state.ChunkCount, state.SyncedAt)
	if err != nil {
		return unavailable("set sync state", err)
	}
	return nil
}

// DeleteSyncState removes sync state for a document.
func (s *vectorStore) DeleteSyncState(ctx context.Context, sourceID string) error {
	if _, err := s.store.pool.Exec(ctx, `DELETE FROM rag_sync_state WHERE source_id = $1`, sourceID); err != nil {
		return unavailable("delete sync state", err)
	}
	return nil
}

// Dimensions returns the size of any stored vector.
func (s *vectorStore) Dimensions(ctx context.Context) (int, error) {
	var dims int
	err := s.store.pool.QueryRow(ctx, fmt.Sprintf(`SELECT vector_dims(embedding) FROM %s LIMIT 1`, s.store.table)).Scan(&dims)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("dimensions", err)
	}
	return dims, nil
}

// Stats summarises documents and chunks.
func (s *vectorStore) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats := domain.IndexStats{SourcesCount: make(map[domain.SourceType]int)}

	if err := s.store.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.store.table)).Scan(&stats.TotalChunks); err != nil {
		return stats, unavailable("stats", err)
	}

	rows, err := s.store.pool.Query(ctx, `
		SELECT source_type, COUNT(*), MAX(synced_at)
		FROM rag_sync_state
		GROUP BY source_type
	`)
	if err != nil {
		return stats, unavailable("stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sourceType string
		var count int
		var last time.Time
		if err := rows.Scan(&sourceType, &count, &last); err != nil {
			return stats, unavailable("stats", err)
		}
		stats.SourcesCount[domain.SourceType(sourceType)] = count
		stats.TotalDocuments += count
		if stats.LastSync == nil || last.After(*stats.LastSync) {
			at := last
			stats.LastSync = &at
		}
	}
	if err := rows.Err(); err != nil {
		return stats, unavailable("stats", err)
	}
	return stats, nil
}

// Close closes the pool.
func (s *vectorStore) Close() error {
	return s.store.Close()
}

// chunkMetadata returns the jsonb document for a chunk.
// Identity keys always reflect the chunk fields.
func chunkMetadata(c domain.Chunk) map[string]any {
	meta := make(map[string]any, len(c.Metadata)+3)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[domain.MetaSource] = string(c.SourceType)
	meta[domain.MetaSourceID] = c.SourceID
	meta[domain.MetaChunkIndex] = c.Index
	return meta
}

// chunkFromRow rebuilds a chunk from its stored columns.
func chunkFromRow(id, content string, embedding []float32, metadata map[string]any) domain.Chunk {
	c := domain.Chunk{
		ID:        id,
		Content:   content,
		Embedding: embedding,
		Metadata:  metadata,
	}
	if v, ok := metadata[domain.MetaSourceID].(string); ok {
		c.SourceID = v
	}
	if v, ok := metadata[domain.MetaSource].(string); ok {
		c.SourceType = domain.SourceType(v)
	}
	switch v := metadata[domain.MetaChunkIndex].(type) {
	case float64:
		c.Index = int(v)
	case int:
		c.Index = v
	}
	return c
}
