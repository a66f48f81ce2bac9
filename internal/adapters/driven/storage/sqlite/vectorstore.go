package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/storage/vectors"
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

// UpsertChunks stores chunks in a single transaction.
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

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("upsert", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source_id, source_type, chunk_index, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			source_type = excluded.source_type,
			chunk_index = excluded.chunk_index,
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return unavailable("upsert", fmt.Errorf("preparing statement: %w", err))
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.SourceID, string(chunk.SourceType),
			chunk.Index, chunk.Content, vectors.Encode(chunk.Embedding), string(metadataJSON)); err != nil {
			return unavailable("upsert", fmt.Errorf("saving chunk %s: %w", chunk.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("upsert", fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// DeleteBySource removes all chunks of a source document.
func (s *vectorStore) DeleteBySource(ctx context.Context, sourceID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", sourceID); err != nil {
		return unavailable("delete", fmt.Errorf("deleting chunks: %w", err))
	}
	return nil
}

// Search scans every candidate chunk and ranks by cosine similarity.
func (s *vectorStore) Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	dims, err := s.Dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if dims > 0 && len(query) != dims {
		return nil, &domain.DimensionMismatchError{Expected: dims, Got: len(query)}
	}

	q := `SELECT id, source_id, source_type, chunk_index, content, embedding, metadata FROM chunks`
	var args []any
	if len(opts.SourceTypes) > 0 {
		placeholders := make([]string, len(opts.SourceTypes))
		for i, t := range opts.SourceTypes {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		q += " WHERE source_type IN (" + strings.Join(placeholders, ", ") + ")"
	}

	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable("search", fmt.Errorf("querying chunks: %w", err))
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		score := vectors.Cosine(query, chunk.Embedding)
		if score < opts.Threshold {
			continue
		}
		results = append(results, domain.ScoredChunk{Chunk: *chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("search", fmt.Errorf("iterating chunks: %w", err))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// GetSyncState loads every sync state row.
func (s *vectorStore) GetSyncState(ctx context.Context) (map[string]domain.SyncState, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, source_type, content_hash, chunk_count, synced_at
		FROM sync_state
	`)
	if err != nil {
		return nil, unavailable("get sync state", fmt.Errorf("querying sync state: %w", err))
	}
	defer rows.Close()

	states := make(map[string]domain.SyncState)
	for rows.Next() {
		var st domain.SyncState
		var sourceType string
		var syncedAt sql.NullTime
		if err := rows.Scan(&st.SourceID, &sourceType, &st.ContentHash, &st.ChunkCount, &syncedAt); err != nil {
			return nil, fmt.Errorf("scanning sync state: %w", err)
		}
		st.SourceType = domain.SourceType(sourceType)
		if syncedAt.Valid {
			st.SyncedAt = syncedAt.Time
		}
		states[st.SourceID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get sync state", fmt.Errorf("iterating sync state: %w", err))
	}
	return states, nil
}

// SetSyncState stores or updates sync state for a document.
func (s *vectorStore) SetSyncState(ctx context.Context, state domain.SyncState) error {
	if state.SyncedAt.IsZero() {
		state.SyncedAt = time.Now().UTC()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_state (source_id, source_type, content_hash, chunk_count, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			source_type = excluded.source_type,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			synced_at = excluded.synced_at
	`, state.SourceID, string(state.SourceType), state.ContentHash, state.ChunkCount, state.SyncedAt.UTC())
	if err != nil {
		return unavailable("set sync state", fmt.Errorf("saving sync state: %w", err))
	}
	return nil
}

// DeleteSyncState removes sync state for a document.
func (s *vectorStore) DeleteSyncState(ctx context.Context, sourceID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_state WHERE source_id = ?", sourceID); err != nil {
		return unavailable("delete sync state", fmt.Errorf("deleting sync state: %w", err))
	}
	return nil
}

// Dimensions returns the vector size of any stored chunk.
func (s *vectorStore) Dimensions(ctx context.Context) (int, error) {
	var size sql.NullInt64
	err := s.store.db.QueryRowContext(ctx, "SELECT length(embedding) FROM chunks LIMIT 1").Scan(&size)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("dimensions", err)
	}
	return int(size.Int64) / 4, nil
}

// Stats summarises documents and chunks.
func (s *vectorStore) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats := domain.IndexStats{SourcesCount: make(map[domain.SourceType]int)}

	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.TotalChunks); err != nil {
		return stats, unavailable("stats", fmt.Errorf("counting chunks: %w", err))
	}

	states, err := s.GetSyncState(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalDocuments = len(states)
	for _, st := range states {
		stats.SourcesCount[st.SourceType]++
		if stats.LastSync == nil || st.SyncedAt.After(*stats.LastSync) {
			at := st.SyncedAt
			stats.LastSync = &at
		}
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *vectorStore) Close() error {
	return s.store.Close()
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var sourceType string
	var embeddingBlob []byte
	var metadataJSON string

	if err := rows.Scan(&chunk.ID, &chunk.SourceID, &sourceType, &chunk.Index,
		&chunk.Content, &embeddingBlob, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	chunk.SourceType = domain.SourceType(sourceType)

	embedding, err := vectors.Decode(embeddingBlob)
	if err != nil {
		return nil, fmt.Errorf("decoding embedding for chunk %s: %w", chunk.ID, err)
	}
	chunk.Embedding = embedding

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
