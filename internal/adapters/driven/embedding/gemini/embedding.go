// Package gemini provides an embedding service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const providerName = "gemini"

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Dimensions is the embedding vector size (default: 768).
	Dimensions int

	// ClientOptions are passed to the underlying client, after the API key.
	ClientOptions []option.ClientOption
}

// EmbeddingService generates embeddings using Gemini.
type EmbeddingService struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	modelName  string
	dimensions int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", domain.ErrEmbeddingUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &EmbeddingService{
		client:     client,
		model:      client.EmbeddingModel(cfg.Model),
		modelName:  cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(err)
	}
	if resp.Embedding == nil {
		return nil, domain.NewEmbeddingProviderError(providerName, 200, errors.New("empty embedding in response"))
	}
	return toFloat32(resp.Embedding.Values), nil
}

// EmbedBatch embeds texts with a single batch request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := s.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := s.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, domain.NewEmbeddingProviderError(providerName, 200,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, domain.NewEmbeddingProviderError(providerName, 200, fmt.Errorf("embedding %d missing", i))
		}
		out[i] = toFloat32(e.Values)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.modelName
}

// Ping embeds a short test string.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close releases the client connection.
func (s *EmbeddingService) Close() error {
	return s.client.Close()
}

func toFloat32[T float32 | float64](values []T) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

// classify converts a client error into an EmbeddingProviderError with an
// HTTP-equivalent status so transient failures are retried.
func classify(err error) error {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return domain.NewEmbeddingProviderError(providerName, 0, err)
	}
	if code := apiErr.HTTPCode(); code > 0 {
		return domain.NewEmbeddingProviderError(providerName, code, err)
	}
	if st := apiErr.GRPCStatus(); st != nil {
		return domain.NewEmbeddingProviderError(providerName, httpStatus(st.Code()), err)
	}
	return domain.NewEmbeddingProviderError(providerName, 0, err)
}

// httpStatus maps gRPC codes to their HTTP equivalents.
func httpStatus(c codes.Code) int {
	switch c {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return 400
	case codes.Unauthenticated:
		return 401
	case codes.PermissionDenied:
		return 403
	case codes.NotFound:
		return 404
	case codes.DeadlineExceeded:
		return 504
	case codes.ResourceExhausted:
		return 429
	case codes.Unavailable:
		return 503
	case codes.Unimplemented:
		return 501
	case codes.Canceled:
		return 499
	default:
		return 500
	}
}
