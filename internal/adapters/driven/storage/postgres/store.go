package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// DefaultTable is the chunk table name used by Supabase vector templates.
const DefaultTable = "documents"

// Config holds PostgreSQL connection settings.
type Config struct {
	// DSN is a libpq connection string or postgres:// URL.
	DSN string

	// Table is the chunk table. Defaults to "documents".
	Table string

	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32
}

// Store is a pgxpool-backed store exposing the vector and report store ports.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// NewStore connects, creates the schema if needed and registers the vector type.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrVectorStoreUnavailable)
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	// The extension must exist before the pool's connections can register its types.
	if err := ensureExtension(ctx, cfg.DSN); err != nil {
		return nil, &domain.StoreUnavailableError{Op: "connect", Err: err}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "connect", Err: err}
	}

	s := &Store{pool: pool, table: pgx.Identifier{table}.Sanitize()}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, &domain.StoreUnavailableError{Op: "migrate", Err: err}
	}

	logger.Debug("postgres store ready (table %s)", table)
	return s, nil
}

func ensureExtension(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id        text PRIMARY KEY,
			content   text NOT NULL,
			embedding vector NOT NULL,
			metadata  jsonb NOT NULL DEFAULT '{}'::jsonb
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s ((metadata->>'sourceId'))`,
			pgx.Identifier{indexName(s.table, "source_id")}.Sanitize(), s.table),
		`CREATE TABLE IF NOT EXISTS rag_sync_state (
			source_id    text PRIMARY KEY,
			source_type  text NOT NULL,
			content_hash text NOT NULL,
			chunk_count  integer NOT NULL DEFAULT 0,
			synced_at    timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rag_sync_reports (
			run_id      text PRIMARY KEY,
			started_at  timestamptz NOT NULL,
			finished_at timestamptz NOT NULL,
			report      jsonb NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// indexName derives an index name from a sanitized table identifier.
func indexName(sanitizedTable, suffix string) string {
	return "idx_" + strings.ReplaceAll(sanitizedTable, `"`, "") + "_" + suffix
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// VectorStore returns a VectorStore interface backed by this store.
func (s *Store) VectorStore() driven.VectorStore {
	return &vectorStore{store: s}
}

// ReportStore returns a SyncReportStore interface backed by this store.
func (s *Store) ReportStore() driven.SyncReportStore {
	return &reportStore{store: s}
}
