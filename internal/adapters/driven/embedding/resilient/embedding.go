// Package resilient wraps an EmbeddingService with rate limiting, retries,
// batch splitting and vector dimension checks.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 10 * time.Second
	DefaultBatchSize  = 32
)

// Config holds the resilience settings.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int

	// MaxRetries is the number of retries after a transient failure.
	// Negative disables retries.
	MaxRetries int

	// BaseDelay is the first backoff delay; it doubles per attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// BatchSize caps the number of texts sent per provider call.
	BatchSize int

	// Dimensions is the expected vector size. Zero means learn it from the
	// first vector returned.
	Dimensions int
}

// EmbeddingService decorates another EmbeddingService.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
	cfg     Config

	mu   sync.Mutex
	dims int

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wraps inner with the given configuration.
func New(inner driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = inner.Dimensions()
	}

	return &EmbeddingService{
		inner:   inner,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		cfg:     cfg,
		dims:    dims,
		sleep:   sleepCtx,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in batches of at most BatchSize, preserving order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := s.call(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, &domain.EmbeddingProviderError{
				Provider: s.inner.ModelName(),
				Err:      fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vecs)),
			}
		}
		for _, v := range vecs {
			if err := s.checkDimensions(v); err != nil {
				return nil, err
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) call(ctx context.Context, batch []string) ([][]float32, error) {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vecs, err := s.inner.EmbedBatch(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		if !domain.IsTransient(err) || attempt >= s.cfg.MaxRetries {
			return nil, err
		}

		delay := s.backoff(attempt)
		logger.Debug("embedding: transient error (attempt %d/%d), retrying in %s: %v",
			attempt+1, s.cfg.MaxRetries+1, delay, err)
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return nil, errors.Join(sleepErr, err)
		}
	}
}

// backoff returns the delay before retry attempt+1: exponential with
// jitter in [d/2, d), capped at MaxDelay.
func (s *EmbeddingService) backoff(attempt int) time.Duration {
	d := s.cfg.MaxDelay
	if attempt < 32 {
		d = s.cfg.BaseDelay << attempt
	}
	if d <= 0 || d > s.cfg.MaxDelay {
		d = s.cfg.MaxDelay
	}
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func (s *EmbeddingService) checkDimensions(v []float32) error {
	if len(v) == 0 {
		return &domain.EmbeddingProviderError{Provider: s.inner.ModelName(), Err: errors.New("empty embedding")}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dims == 0 {
		s.dims = len(v)
		return nil
	}
	if len(v) != s.dims {
		return &domain.DimensionMismatchError{Expected: s.dims, Got: len(v)}
	}
	return nil
}

// Dimensions returns the established vector size, or zero if not yet known.
func (s *EmbeddingService) Dimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates to the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
