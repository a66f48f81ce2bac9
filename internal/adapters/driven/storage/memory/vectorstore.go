package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Search is a brute-force cosine scan.
type VectorStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	states map[string]domain.SyncState
	dims   int
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		chunks: make(map[string]domain.Chunk),
		states: make(map[string]domain.SyncState),
	}
}

// UpsertChunks inserts or replaces chunks by ID.
// The batch is rejected as a whole if any vector has the wrong length.
func (s *VectorStore) UpsertChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dims
	for _, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return &domain.DimensionMismatchError{Expected: dims, Got: len(c.Embedding)}
		}
	}

	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		c.Metadata = copyMetadata(c.Metadata)
		s.chunks[c.ID] = c
	}
	s.dims = dims
	return nil
}

// DeleteBySource removes every chunk of a source document.
func (s *VectorStore) DeleteBySource(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.SourceID == sourceID {
			delete(s.chunks, id)
		}
	}
	if len(s.chunks) == 0 {
		s.dims = 0
	}
	return nil
}

// Search scores every chunk against query.
func (s *VectorStore) Search(_ context.Context, query []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims > 0 && len(query) != s.dims {
		return nil, &domain.DimensionMismatchError{Expected: s.dims, Got: len(query)}
	}

	var results []domain.ScoredChunk
	for _, c := range s.chunks {
		if !opts.AllowsType(c.SourceType) {
			continue
		}
		score := vectors.Cosine(query, c.Embedding)
		if score < opts.Threshold {
			continue
		}
		c.Metadata = copyMetadata(c.Metadata)
		results = append(results, domain.ScoredChunk{Chunk: c, Score: score})
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

// GetSyncState returns a copy of all sync state.
func (s *VectorStore) GetSyncState(_ context.Context) (map[string]domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.SyncState, len(s.states))
	for id, st := range s.states {
		out[id] = st
	}
	return out, nil
}

// SetSyncState stores sync state for one document.
func (s *VectorStore) SetSyncState(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.SourceID] = state
	return nil
}

// DeleteSyncState removes sync state for one document.
func (s *VectorStore) DeleteSyncState(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sourceID)
	return nil
}

// Dimensions returns the stored vector size, or 0 when empty.
func (s *VectorStore) Dimensions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims, nil
}

// Stats summarises the store contents.
func (s *VectorStore) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.IndexStats{
		TotalDocuments: len(s.states),
		TotalChunks:    len(s.chunks),
		SourcesCount:   make(map[domain.SourceType]int),
	}
	for _, st := range s.states {
		stats.SourcesCount[st.SourceType]++
		if stats.LastSync == nil || st.SyncedAt.After(*stats.LastSync) {
			at := st.SyncedAt
			stats.LastSync = &at
		}
	}
	return stats, nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
