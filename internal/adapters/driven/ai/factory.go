// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/portfolio-rag/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/portfolio-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/portfolio-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/embedding/resilient"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). Check the [embedding] settings",
			domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err != nil {
		return err
	}
	return svc.Close()
}

// CreateEmbeddingService creates the provider adapter selected by settings
// and wraps it with rate limiting, retries and dimension checks.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingUnavailable)
	}

	var (
		inner driven.EmbeddingService
		err   error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		inner = createOllamaEmbedding(settings)
	case domain.AIProviderOpenAI:
		inner, err = createOpenAIEmbedding(settings)
	case domain.AIProviderGemini:
		inner, err = createGeminiEmbedding(ctx, settings)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return resilient.New(inner, resilient.Config{
		RequestsPerSecond: settings.RequestsPerSecond,
		MaxRetries:        settings.MaxRetries,
		BatchSize:         settings.BatchSize,
		Dimensions:        settings.Dimensions,
	}), nil
}

// dimensionsFor returns the configured dimensions, else the known size for the model.
func dimensionsFor(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensionsFor(settings),
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensionsFor(settings),
	})
}

func createGeminiEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
		APIKey:     settings.APIKey,
		Model:      settings.Model,
		Dimensions: dimensionsFor(settings),
	})
}
