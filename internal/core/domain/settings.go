package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector store implementation.
type VectorBackend string

// Available vector store backends.
const (
	// VectorBackendMemory keeps everything in process memory.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite stores chunks in a local SQLite database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendPostgres stores chunks in PostgreSQL with pgvector (e.g. Supabase).
	VectorBackendPostgres VectorBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendPostgres:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// ContentBackend identifies where CMS documents are read from.
type ContentBackend string

// Available content backends.
const (
	// ContentBackendSanity queries the Sanity HTTP API.
	ContentBackendSanity ContentBackend = "sanity"

	// ContentBackendFile reads a local NDJSON export or directory of JSON documents.
	ContentBackendFile ContentBackend = "file"
)

// IsValid returns true if the backend is recognised.
func (b ContentBackend) IsValid() bool {
	return b == ContentBackendSanity || b == ContentBackendFile
}

// LockBackend identifies how concurrent sync runs are serialised.
type LockBackend string

// Available lock backends.
const (
	// LockBackendLocal serialises runs within one process.
	LockBackendLocal LockBackend = "local"

	// LockBackendRedis serialises runs across processes using Redis.
	LockBackendRedis LockBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b LockBackend) IsValid() bool {
	return b == LockBackendLocal || b == LockBackendRedis
}

// ChunkingSettings controls how canonical text is split.
type ChunkingSettings struct {
	// MaxChunkChars is the maximum characters per chunk.
	MaxChunkChars int

	// OverlapChars is the number of characters shared by consecutive chunks.
	OverlapChars int

	// BoundaryWindow is how far back from the hard limit to look for a
	// paragraph or sentence boundary.
	BoundaryWindow int
}

// RetrievalSettings holds retriever defaults.
type RetrievalSettings struct {
	// Threshold is the minimum similarity score for a result.
	Threshold float64

	// Limit caps the number of results.
	Limit int

	// SubjectName replaces first/second-person references during query expansion.
	// Empty disables expansion.
	SubjectName string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string

	// Dimensions is the expected vector size. Zero means take it from the model.
	Dimensions int

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64

	// MaxRetries bounds retries of transient provider errors.
	MaxRetries int

	// BatchSize caps the number of texts per provider request.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings selects and configures the vector store.
type VectorStoreSettings struct {
	// Backend is the store implementation.
	Backend VectorBackend

	// DataDir is the directory for the SQLite database.
	DataDir string

	// DSN is the PostgreSQL connection string.
	DSN string

	// Table is the PostgreSQL chunk table name.
	Table string
}

// SyncSettings controls the synchroniser.
type SyncSettings struct {
	// Concurrency bounds how many documents are embedded at once.
	Concurrency int

	// AllowedTypes lists the CMS document types that are indexed.
	AllowedTypes []SourceType
}

// Allows reports whether documents of type t are indexed.
func (s SyncSettings) Allows(t SourceType) bool {
	for _, allowed := range s.AllowedTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// ContentSettings configures the CMS content source.
type ContentSettings struct {
	Backend    ContentBackend
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string

	// ExportPath is the NDJSON file or JSON directory for the file backend.
	ExportPath string
}

// ServerSettings configures the HTTP ingress.
type ServerSettings struct {
	Addr string

	// WebhookSecret is the shared HMAC secret for CMS webhooks.
	WebhookSecret string

	// AdminToken guards the admin endpoints. Empty leaves them open.
	AdminToken string

	Debug bool
}

// LockSettings configures sync run serialisation.
type LockSettings struct {
	Backend       LockBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking    ChunkingSettings
	Retrieval   RetrievalSettings
	Embedding   EmbeddingSettings
	VectorStore VectorStoreSettings
	Sync        SyncSettings
	Content     ContentSettings
	Server      ServerSettings
	Lock        LockSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The embedding provider defaults to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			MaxChunkChars:  1000,
			OverlapChars:   200,
			BoundaryWindow: 200,
		},
		Retrieval: RetrievalSettings{
			Threshold: 0.3,
			Limit:     8,
		},
		Embedding: EmbeddingSettings{
			Provider:          AIProviderOllama,
			Model:             DefaultEmbeddingModels()[AIProviderOllama],
			RequestsPerSecond: 5,
			MaxRetries:        3,
			BatchSize:         32,
		},
		VectorStore: VectorStoreSettings{
			Backend: VectorBackendSQLite,
			Table:   "documents",
		},
		Sync: SyncSettings{
			Concurrency:  4,
			AllowedTypes: AllSourceTypes(),
		},
		Content: ContentSettings{
			Backend:    ContentBackendSanity,
			Dataset:    "production",
			APIVersion: "2023-05-03",
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
		Lock: LockSettings{
			Backend: LockBackendLocal,
			TTL:     10 * time.Minute,
		},
	}
}

// Validate checks settings for values the engine cannot run with.
func (s AppSettings) Validate() error {
	if s.Chunking.MaxChunkChars <= 0 {
		return fmt.Errorf("%w: chunking.max_chunk_chars must be positive", ErrInvalidInput)
	}
	if s.Chunking.OverlapChars < 0 || s.Chunking.OverlapChars >= s.Chunking.MaxChunkChars {
		return fmt.Errorf("%w: chunking.overlap_chars must be in [0, max_chunk_chars)", ErrInvalidInput)
	}
	if s.Retrieval.Threshold < 0 || s.Retrieval.Threshold > 1 {
		return fmt.Errorf("%w: retrieval.threshold must be in [0, 1]", ErrInvalidInput)
	}
	if s.Retrieval.Limit <= 0 {
		return fmt.Errorf("%w: retrieval.limit must be positive", ErrInvalidInput)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector store backend %q", ErrInvalidInput, s.VectorStore.Backend)
	}
	if s.VectorStore.Backend == VectorBackendPostgres && s.VectorStore.DSN == "" {
		return fmt.Errorf("%w: vector_store.dsn is required for postgres", ErrInvalidInput)
	}
	if !s.Content.Backend.IsValid() {
		return fmt.Errorf("%w: unknown content backend %q", ErrInvalidInput, s.Content.Backend)
	}
	if !s.Lock.Backend.IsValid() {
		return fmt.Errorf("%w: unknown lock backend %q", ErrInvalidInput, s.Lock.Backend)
	}
	for _, t := range s.Sync.AllowedTypes {
		if !t.IsValid() {
			return fmt.Errorf("%w: unknown document type %q in sync.allowed_types", ErrInvalidInput, t)
		}
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor derives the pipeline configuration from chunking settings.
func PipelineConfigFor(c ChunkingSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "provenance"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size":      c.MaxChunkChars,
				"overlap":         c.OverlapChars,
				"boundary_window": c.BoundaryWindow,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
// Works out-of-the-box with chunker using sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultAppSettings().Chunking)
}
