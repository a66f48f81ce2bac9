package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize      = "chunking.max_chunk_chars"
	keyChunkOverlap   = "chunking.overlap_chars"
	keyChunkWindow    = "chunking.boundary_window"
	keyThreshold      = "retrieval.threshold"
	keyLimit          = "retrieval.limit"
	keySubjectName    = "retrieval.subject_name"
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedRPS       = "embedding.requests_per_second"
	keyEmbedRetries   = "embedding.max_retries"
	keyEmbedBatch     = "embedding.batch_size"
	keyVectorBackend  = "vector_store.backend"
	keyVectorDataDir  = "vector_store.data_dir"
	keyVectorDSN      = "vector_store.dsn"
	keyVectorTable    = "vector_store.table"
	keySyncWorkers    = "sync.concurrency"
	keySyncTypes      = "sync.allowed_types"
	keyContentBackend = "content.backend"
	keyContentProject = "content.project_id"
	keyContentDataset = "content.dataset"
	keyContentVersion = "content.api_version"
	keyContentToken   = "content.token"
	keyContentExport  = "content.export_path"
	keyServerAddr     = "server.addr"
	keyWebhookSecret  = "server.webhook_secret"
	keyAdminToken     = "server.admin_token"
	keyServerDebug    = "server.debug"
	keyLockBackend    = "lock.backend"
	keyLockRedisAddr  = "lock.redis_addr"
	keyLockRedisPass  = "lock.redis_password"
	keyLockRedisDB    = "lock.redis_db"
	keyLockTTL        = "lock.ttl"
)

// EnvPrefix prefixes environment overrides: embedding.api_key is read
// from PORTFOLIO_RAG_EMBEDDING_API_KEY.
const EnvPrefix = "PORTFOLIO_RAG_"

// envAliases are conventional variable names honoured after the prefixed form.
var envAliases = map[string][]string{
	keyWebhookSecret:  {"SANITY_WEBHOOK_SECRET"},
	keyContentProject: {"SANITY_PROJECT_ID"},
	keyContentDataset: {"SANITY_DATASET"},
	keyContentToken:   {"SANITY_API_TOKEN"},
	keyEmbedAPIKey:    {"OPENAI_API_KEY", "GEMINI_API_KEY"},
	keyVectorDSN:      {"DATABASE_URL"},
	keyLockRedisAddr:  {"REDIS_ADDR"},
	keyAdminToken:     {"ADMIN_TOKEN"},
}

// secretKeys are never written back to the config file when empty.
var secretKeys = map[string]bool{
	keyEmbedAPIKey:   true,
	keyContentToken:  true,
	keyWebhookSecret: true,
	keyAdminToken:    true,
	keyLockRedisPass: true,
	keyVectorDSN:     true,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Keys returns every recognised configuration key.
func Keys() []string {
	return []string{
		keyChunkSize, keyChunkOverlap, keyChunkWindow,
		keyThreshold, keyLimit, keySubjectName,
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey,
		keyEmbedDims, keyEmbedRPS, keyEmbedRetries, keyEmbedBatch,
		keyVectorBackend, keyVectorDataDir, keyVectorDSN, keyVectorTable,
		keySyncWorkers, keySyncTypes,
		keyContentBackend, keyContentProject, keyContentDataset, keyContentVersion,
		keyContentToken, keyContentExport,
		keyServerAddr, keyWebhookSecret, keyAdminToken, keyServerDebug,
		keyLockBackend, keyLockRedisAddr, keyLockRedisPass, keyLockRedisDB, keyLockTTL,
	}
}

// IsSecretKey reports whether key holds a credential that should be masked.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Get retrieves current application settings.
// Values resolve from the environment, then the config file, then defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := domain.AIProvider(s.getString(keyEmbedProvider, defaults.Embedding.Provider.String()))
	model := s.getString(keyEmbedModel, "")
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	ttl, err := s.getDuration(keyLockTTL, defaults.Lock.TTL)
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			MaxChunkChars:  s.getInt(keyChunkSize, defaults.Chunking.MaxChunkChars),
			OverlapChars:   s.getInt(keyChunkOverlap, defaults.Chunking.OverlapChars),
			BoundaryWindow: s.getInt(keyChunkWindow, defaults.Chunking.BoundaryWindow),
		},
		Retrieval: domain.RetrievalSettings{
			Threshold:   s.getFloat(keyThreshold, defaults.Retrieval.Threshold),
			Limit:       s.getInt(keyLimit, defaults.Retrieval.Limit),
			SubjectName: s.getString(keySubjectName, defaults.Retrieval.SubjectName),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             model,
			BaseURL:           s.getString(keyEmbedBaseURL, ""), // No default - empty is valid for cloud providers
			APIKey:            s.getString(keyEmbedAPIKey, ""),
			Dimensions:        s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
			MaxRetries:        s.getInt(keyEmbedRetries, defaults.Embedding.MaxRetries),
			BatchSize:         s.getInt(keyEmbedBatch, defaults.Embedding.BatchSize),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend: domain.VectorBackend(s.getString(keyVectorBackend, defaults.VectorStore.Backend.String())),
			DataDir: s.getString(keyVectorDataDir, defaults.VectorStore.DataDir),
			DSN:     s.getString(keyVectorDSN, ""),
			Table:   s.getString(keyVectorTable, defaults.VectorStore.Table),
		},
		Sync: domain.SyncSettings{
			Concurrency:  s.getInt(keySyncWorkers, defaults.Sync.Concurrency),
			AllowedTypes: s.getSourceTypes(keySyncTypes, defaults.Sync.AllowedTypes),
		},
		Content: domain.ContentSettings{
			Backend:    domain.ContentBackend(s.getString(keyContentBackend, string(defaults.Content.Backend))),
			ProjectID:  s.getString(keyContentProject, ""),
			Dataset:    s.getString(keyContentDataset, defaults.Content.Dataset),
			APIVersion: s.getString(keyContentVersion, defaults.Content.APIVersion),
			Token:      s.getString(keyContentToken, ""),
			ExportPath: s.getString(keyContentExport, ""),
		},
		Server: domain.ServerSettings{
			Addr:          s.getString(keyServerAddr, defaults.Server.Addr),
			WebhookSecret: s.getString(keyWebhookSecret, ""),
			AdminToken:    s.getString(keyAdminToken, ""),
			Debug:         s.getBool(keyServerDebug, defaults.Server.Debug),
		},
		Lock: domain.LockSettings{
			Backend:       domain.LockBackend(s.getString(keyLockBackend, string(defaults.Lock.Backend))),
			RedisAddr:     s.getString(keyLockRedisAddr, ""),
			RedisPassword: s.getString(keyLockRedisPass, ""),
			RedisDB:       s.getInt(keyLockRedisDB, defaults.Lock.RedisDB),
			TTL:           ttl,
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	types := make([]string, len(settings.Sync.AllowedTypes))
	for i, t := range settings.Sync.AllowedTypes {
		types[i] = t.String()
	}

	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, settings.Chunking.MaxChunkChars},
		{keyChunkOverlap, settings.Chunking.OverlapChars},
		{keyChunkWindow, settings.Chunking.BoundaryWindow},
		{keyThreshold, settings.Retrieval.Threshold},
		{keyLimit, settings.Retrieval.Limit},
		{keySubjectName, settings.Retrieval.SubjectName},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyEmbedRetries, settings.Embedding.MaxRetries},
		{keyEmbedBatch, settings.Embedding.BatchSize},
		{keyVectorBackend, settings.VectorStore.Backend.String()},
		{keyVectorDataDir, settings.VectorStore.DataDir},
		{keyVectorDSN, settings.VectorStore.DSN},
		{keyVectorTable, settings.VectorStore.Table},
		{keySyncWorkers, settings.Sync.Concurrency},
		{keySyncTypes, types},
		{keyContentBackend, string(settings.Content.Backend)},
		{keyContentProject, settings.Content.ProjectID},
		{keyContentDataset, settings.Content.Dataset},
		{keyContentVersion, settings.Content.APIVersion},
		{keyContentToken, settings.Content.Token},
		{keyContentExport, settings.Content.ExportPath},
		{keyServerAddr, settings.Server.Addr},
		{keyWebhookSecret, settings.Server.WebhookSecret},
		{keyAdminToken, settings.Server.AdminToken},
		{keyServerDebug, settings.Server.Debug},
		{keyLockBackend, string(settings.Lock.Backend)},
		{keyLockRedisAddr, settings.Lock.RedisAddr},
		{keyLockRedisPass, settings.Lock.RedisPassword},
		{keyLockRedisDB, settings.Lock.RedisDB},
		{keyLockTTL, settings.Lock.TTL.String()},
	}

	for _, v := range values {
		if str, ok := v.value.(string); ok && str == "" && secretKeys[v.key] {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set updates a single configuration key. The value is parsed according to
// the key and the resulting settings must validate before anything is stored.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)

	var parsed any = value
	switch key {
	case keyChunkSize, keyChunkOverlap, keyChunkWindow, keyLimit,
		keyEmbedDims, keyEmbedRetries, keyEmbedBatch, keySyncWorkers, keyLockRedisDB:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case keyThreshold, keyEmbedRPS:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case keyServerDebug:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case keyLockTTL:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration", domain.ErrInvalidInput, key)
		}
	case keySyncTypes:
		parsed = splitList(value)
	default:
		if !isKnownKey(key) {
			return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidInput, key)
		}
	}

	previous, existed := s.configStore.Get(key)
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := s.Validate(); err != nil {
		if existed {
			_ = s.configStore.Set(key, previous)
		} else {
			_ = s.configStore.Delete(key)
		}
		return err
	}
	return nil
}

// ConfigPath returns where settings are persisted.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

// env returns the environment override for key, if any.
func (s *SettingsService) env(key string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if v, ok := s.lookupEnv(name); ok && v != "" {
		return v, true
	}
	for _, alias := range envAliases[key] {
		if v, ok := s.lookupEnv(alias); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.env(key); ok {
		return v
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.env(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.env(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if v, exists := s.configStore.Get(key); !exists || v == "" {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if v, ok := s.env(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if v, exists := s.configStore.Get(key); !exists || v == "" {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := s.getString(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

func (s *SettingsService) getSourceTypes(key string, defaultVal []domain.SourceType) []domain.SourceType {
	var raw []string
	if v, ok := s.env(key); ok {
		raw = splitList(v)
	} else {
		raw = s.configStore.GetStringSlice(key)
	}
	if len(raw) == 0 {
		return defaultVal
	}
	types := make([]domain.SourceType, len(raw))
	for i, r := range raw {
		types[i] = domain.SourceType(r)
	}
	return types
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}
