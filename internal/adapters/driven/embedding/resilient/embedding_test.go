package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// scriptedEmbedder returns queued errors first, then vectors of size dims.
type scriptedEmbedder struct {
	mu      sync.Mutex
	errs    []error
	dims    int
	calls   int
	batches [][]string
	// override returns custom vectors for a batch when set.
	override func(batch []string) [][]float32
}

func (e *scriptedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (e *scriptedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.batches = append(e.batches, texts)
	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		return nil, err
	}
	if e.override != nil {
		return e.override(texts), nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dims)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (e *scriptedEmbedder) Dimensions() int              { return 0 }
func (e *scriptedEmbedder) ModelName() string            { return "scripted" }
func (e *scriptedEmbedder) Ping(_ context.Context) error { return nil }
func (e *scriptedEmbedder) Close() error                 { return nil }

func transient() error {
	return domain.NewEmbeddingProviderError("test", 429, errors.New("rate limited"))
}

func permanent() error {
	return domain.NewEmbeddingProviderError("test", 400, errors.New("bad input"))
}

func newTestService(inner *scriptedEmbedder, cfg Config) (*EmbeddingService, *[]time.Duration) {
	s := New(inner, cfg)
	var delays []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return s, &delays
}

func TestEmbedBatch_RetriesTransientErrors(t *testing.T) {
	inner := &scriptedEmbedder{errs: []error{transient(), transient()}, dims: 3}
	s, delays := newTestService(inner, Config{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 3, inner.calls)
	require.Len(t, *delays, 2)

	// Jittered exponential backoff: [d/2, d] for d = 100ms, 200ms.
	assert.GreaterOrEqual(t, (*delays)[0], 50*time.Millisecond)
	assert.LessOrEqual(t, (*delays)[0], 100*time.Millisecond)
	assert.GreaterOrEqual(t, (*delays)[1], 100*time.Millisecond)
	assert.LessOrEqual(t, (*delays)[1], 200*time.Millisecond)
}

func TestEmbedBatch_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &scriptedEmbedder{errs: []error{transient(), transient(), transient()}, dims: 3}
	s, _ := newTestService(inner, Config{MaxRetries: 2})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 3, inner.calls)
}

func TestEmbedBatch_PermanentErrorNotRetried(t *testing.T) {
	inner := &scriptedEmbedder{errs: []error{permanent()}, dims: 3}
	s, delays := newTestService(inner, Config{})

	_, err := s.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *delays)
}

func TestEmbedBatch_SplitsBatches(t *testing.T) {
	inner := &scriptedEmbedder{dims: 2}
	s, _ := newTestService(inner, Config{BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := s.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, inner.batches)
	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v[0], "order must be preserved")
	}
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	inner := &scriptedEmbedder{dims: 4}
	s, _ := newTestService(inner, Config{})

	_, err := s.Embed(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Dimensions())

	inner.dims = 8
	_, err = s.Embed(context.Background(), "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.True(t, domain.IsFatal(err))

	var dimErr *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 8, dimErr.Got)
}

func TestEmbedBatch_ConfiguredDimensions(t *testing.T) {
	inner := &scriptedEmbedder{dims: 3}
	s, _ := newTestService(inner, Config{Dimensions: 768})

	_, err := s.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatch_CountMismatchIsPermanent(t *testing.T) {
	inner := &scriptedEmbedder{override: func([]string) [][]float32 { return [][]float32{{1}} }}
	s, _ := newTestService(inner, Config{})

	_, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.False(t, domain.IsTransient(err))
}

func TestEmbedBatch_EmptyVectorRejected(t *testing.T) {
	inner := &scriptedEmbedder{override: func(b []string) [][]float32 { return make([][]float32, len(b)) }}
	s, _ := newTestService(inner, Config{})

	_, err := s.Embed(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
}

func TestEmbedBatch_Empty(t *testing.T) {
	s, _ := newTestService(&scriptedEmbedder{}, Config{})
	vecs, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedBatch_ContextCancelled(t *testing.T) {
	inner := &scriptedEmbedder{errs: []error{transient()}, dims: 2}
	s := New(inner, Config{BaseDelay: time.Hour, MaxDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.EmbedBatch(ctx, []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_Capped(t *testing.T) {
	s := New(&scriptedEmbedder{}, Config{BaseDelay: time.Second, MaxDelay: 4 * time.Second})
	for attempt := 0; attempt < 70; attempt++ {
		d := s.backoff(attempt)
		assert.LessOrEqual(t, d, 4*time.Second)
		assert.Positive(t, d)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(&scriptedEmbedder{}, Config{})
	assert.Equal(t, DefaultMaxRetries, s.cfg.MaxRetries)
	assert.Equal(t, DefaultBatchSize, s.cfg.BatchSize)
	assert.Equal(t, "scripted", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())

	s = New(&scriptedEmbedder{}, Config{MaxRetries: -1})
	assert.Equal(t, 0, s.cfg.MaxRetries)
}
