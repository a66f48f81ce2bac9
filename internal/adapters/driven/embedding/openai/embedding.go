// Package openai embeds text with the OpenAI embeddings API or a compatible endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const providerName = "openai"

// Defaults applied by NewEmbeddingService.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Native output sizes. Unknown models report 0 until the first response.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the OpenAI adapter.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL can point at Azure OpenAI or another compatible server.
	BaseURL string

	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Other models ignore it.
	Dimensions int
}

// EmbeddingService calls POST {BaseURL}/embeddings.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions atomic.Int64

	// sendDimensions is true for models that accept the dimensions parameter.
	sendDimensions bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewEmbeddingService validates cfg and applies defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrEmbeddingUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = modelDimensions[cfg.Model]
	}

	s := &EmbeddingService{
		client:         &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		sendDimensions: strings.HasPrefix(cfg.Model, "text-embedding-3"),
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. Results follow input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	in := embeddingRequest{Model: s.model, Input: texts}
	if s.sendDimensions {
		in.Dimensions = s.Dimensions()
	}

	var out embeddingResponse
	status, err := s.do(ctx, http.MethodPost, "/embeddings", in, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, domain.NewEmbeddingProviderError(providerName, status,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out.Data)))
	}

	// The API may return items out of order; Index is authoritative.
	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, domain.NewEmbeddingProviderError(providerName, status,
				fmt.Errorf("bad embedding index %d", d.Index))
		}
		vecs[d.Index] = d.Embedding
	}
	s.dimensions.CompareAndSwap(0, int64(len(vecs[0])))
	return vecs, nil
}

// Dimensions returns the vector size, or 0 if not yet known.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping looks up the configured model, which checks the key and the model name together.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, "/models/"+url.PathEscape(s.model), nil, nil)
	return err
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}

// do sends an authenticated JSON request and decodes a 200 response into out.
// Every failure after the request is built is an EmbeddingProviderError.
func (s *EmbeddingService) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, domain.NewEmbeddingProviderError(providerName, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, domain.NewEmbeddingProviderError(providerName, 0, fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, domain.NewEmbeddingProviderError(providerName, resp.StatusCode, apiError(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, domain.NewEmbeddingProviderError(providerName, resp.StatusCode,
				fmt.Errorf("decoding response: %w", err))
		}
	}
	return resp.StatusCode, nil
}

// apiError prefers the structured error message over the raw body.
func apiError(raw []byte) error {
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		return errors.New(e.Error.Message)
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = "empty response"
	}
	return errors.New(msg)
}
