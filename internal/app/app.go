// Package app assembles the engine from settings: it picks the vector store,
// content source, sync lock and embedding provider and wires them into the
// core services.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/lock/redislock"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/portfolio-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/portfolio-rag/internal/connectors/sanity"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/core/services"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
	"github.com/custodia-labs/portfolio-rag/internal/normalisers/cms"
	"github.com/custodia-labs/portfolio-rag/internal/postprocessors"
)

// Engine holds the wired services for one process.
type Engine struct {
	Settings     domain.AppSettings
	Synchronizer *services.SmartSynchronizer
	Retriever    *services.RetrieverService
	Index        *services.IndexService

	// Watcher is set when the content source can push change events.
	Watcher driven.ContentWatcher

	closers []func() error
}

// Close releases every adapter opened by New.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// New builds an engine. Settings are validated first.
//
// A missing content source or embedding provider is not an error: the
// engine starts and the affected operations fail with
// domain.ErrContentSourceUnavailable or domain.ErrEmbeddingUnavailable.
// Storage and lock failures abort.
func New(ctx context.Context, settings domain.AppSettings) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{Settings: settings}

	store, reports, err := e.openStore(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	lock, err := e.openLock(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	source := e.openSource()

	var embedder driven.EmbeddingService
	if svc, err := ai.CreateEmbeddingService(ctx, &settings.Embedding); err != nil {
		logger.Warn("Embedding provider not available: %v", err)
	} else {
		embedder = svc
		e.closers = append(e.closers, svc.Close)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	e.Synchronizer = services.NewSmartSynchronizer(
		source,
		cms.New(),
		pipeline,
		embedder,
		store,
		services.SyncConfig{
			Concurrency:  settings.Sync.Concurrency,
			AllowedTypes: settings.Sync.AllowedTypes,
		},
		services.WithSyncLock(lock),
		services.WithReportStore(reports),
	)
	e.Retriever = services.NewRetrieverService(embedder, store, settings.Retrieval)
	e.Index = services.NewIndexService(store, reports)
	return e, nil
}

func (e *Engine) openStore(ctx context.Context) (driven.VectorStore, driven.SyncReportStore, error) {
	cfg := e.Settings.VectorStore
	switch cfg.Backend {
	case domain.VectorBackendMemory:
		logger.Debug("Using in-memory vector store")
		return memory.NewVectorStore(), memory.NewReportStore(), nil

	case domain.VectorBackendPostgres:
		store, err := postgres.NewStore(ctx, postgres.Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		e.closers = append(e.closers, store.Close)
		logger.Debug("Using postgres vector store (table %s)", cfg.Table)
		return store.VectorStore(), store.ReportStore(), nil

	default:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		e.closers = append(e.closers, store.Close)
		logger.Debug("Using sqlite vector store at %s", store.Path())
		return store.VectorStore(), store.ReportStore(), nil
	}
}

func (e *Engine) openLock(ctx context.Context) (driven.SyncLock, error) {
	cfg := e.Settings.Lock
	if cfg.Backend != domain.LockBackendRedis {
		return memory.NewSyncLock(), nil
	}
	lock, err := redislock.New(ctx, redislock.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening redis lock: %w", err)
	}
	e.closers = append(e.closers, lock.Close)
	logger.Debug("Using redis sync lock at %s", cfg.RedisAddr)
	return lock, nil
}

// openSource returns nil when the configured source cannot be used.
func (e *Engine) openSource() driven.ContentSource {
	cfg := e.Settings.Content
	types := e.Settings.Sync.AllowedTypes

	if cfg.Backend == domain.ContentBackendFile {
		conn := filesystem.New(cfg.ExportPath, types)
		if err := conn.Validate(); err != nil {
			logger.Warn("Content export not available: %v", err)
			return nil
		}
		e.Watcher = conn
		return conn
	}

	conn, err := sanity.New(sanity.Config{
		ProjectID:  cfg.ProjectID,
		Dataset:    cfg.Dataset,
		APIVersion: cfg.APIVersion,
		Token:      cfg.Token,
		Types:      types,
	})
	if err != nil {
		logger.Warn("Sanity source not available: %v", err)
		return nil
	}
	return conn
}
