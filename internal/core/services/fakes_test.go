package services

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// --- Test doubles shared by the service tests ---

// fakeSource implements driven.ContentSource over an in-memory document set.
type fakeSource struct {
	mu      sync.Mutex
	docs    map[string]domain.SourceDocument
	listErr error
}

func newFakeSource(docs ...domain.SourceDocument) *fakeSource {
	s := &fakeSource{docs: make(map[string]domain.SourceDocument)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) List(_ context.Context) ([]domain.SourceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.SourceDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeSource) Get(_ context.Context, id string) (*domain.SourceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (s *fakeSource) put(d domain.SourceDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d
}

func (s *fakeSource) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// fakeEmbedder produces deterministic bag-of-words vectors and counts calls.
type fakeEmbedder struct {
	dims    int
	calls   atomic.Int64
	texts   atomic.Int64
	failFor map[string]error // substring -> error
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{dims: dims}
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	e.texts.Add(int64(len(texts)))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		for substr, err := range e.failFor {
			if strings.Contains(t, substr) {
				return nil, err
			}
		}
		out[i] = bagOfWords(t, e.dims)
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int            { return e.dims }
func (e *fakeEmbedder) ModelName() string          { return "fake" }
func (e *fakeEmbedder) Ping(context.Context) error { return nil }
func (e *fakeEmbedder) Close() error               { return nil }

// bagOfWords hashes lower-cased words into a normalised vector.
func bagOfWords(text string, dims int) []float32 {
	v := make([]float32, dims)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32())%dims]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

// storedChunks returns the chunks of one source ordered by index, read back
// through Search with a threshold no cosine score can fall below.
func storedChunks(t *testing.T, store driven.VectorStore, sourceID string) []domain.Chunk {
	t.Helper()
	ctx := context.Background()
	dims, err := store.Dimensions(ctx)
	require.NoError(t, err)
	if dims == 0 {
		return nil
	}
	query := make([]float32, dims)
	for i := range query {
		query[i] = 1
	}
	scored, err := store.Search(ctx, query, domain.SearchOptions{Threshold: -2})
	require.NoError(t, err)

	var out []domain.Chunk
	for _, sc := range scored {
		if sc.Chunk.SourceID == sourceID {
			out = append(out, sc.Chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// failingStore fails selected operations of an in-memory store.
type failingStore struct {
	*memory.VectorStore
	upsertFail map[string]error // source ID -> error
}

var _ driven.VectorStore = (*failingStore)(nil)

func (s *failingStore) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if err, ok := s.upsertFail[c.SourceID]; ok {
			return err
		}
	}
	return s.VectorStore.UpsertChunks(ctx, chunks)
}

// normaliserFunc adapts a function to driven.Normaliser.
type normaliserFunc func(domain.SourceDocument) (*domain.NormalizedDocument, error)

func (f normaliserFunc) Normalise(d domain.SourceDocument) (*domain.NormalizedDocument, error) {
	return f(d)
}

func project(id, title, description string) domain.SourceDocument {
	return domain.SourceDocument{
		ID:   id,
		Type: domain.SourceTypeProject,
		Fields: map[string]any{
			"_id":         id,
			"_type":       "project",
			"title":       title,
			"description": description,
		},
	}
}

func profile(id, name, bio string) domain.SourceDocument {
	return domain.SourceDocument{
		ID:   id,
		Type: domain.SourceTypeProfile,
		Fields: map[string]any{
			"name":   name,
			"bio":    bio,
			"skills": []any{"Go", "PostgreSQL"},
		},
	}
}
