package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// reportStore implements driven.SyncReportStore.
type reportStore struct {
	store *Store
}

var _ driven.SyncReportStore = (*reportStore)(nil)

// SaveReport stores a finished run.
func (s *reportStore) SaveReport(ctx context.Context, report *domain.SyncReport) error {
	_, err := s.store.pool.Exec(ctx, `
		INSERT INTO rag_sync_reports (run_id, started_at, finished_at, report)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			report = EXCLUDED.report
	`, report.RunID, report.StartedAt, report.FinishedAt, report)
	if err != nil {
		return unavailable("save report", err)
	}
	return nil
}

// LastReport returns the most recently finished run.
func (s *reportStore) LastReport(ctx context.Context) (*domain.SyncReport, error) {
	var report domain.SyncReport
	err := s.store.pool.QueryRow(ctx, `
		SELECT report FROM rag_sync_reports
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&report)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("last report", err)
	}
	return &report, nil
}
