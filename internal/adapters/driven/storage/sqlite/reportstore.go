package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// reportStore implements driven.SyncReportStore.
type reportStore struct {
	store *Store
}

var _ driven.SyncReportStore = (*reportStore)(nil)

// SaveReport stores a finished run as JSON.
func (s *reportStore) SaveReport(ctx context.Context, report *domain.SyncReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_reports (run_id, started_at, finished_at, report)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			report = excluded.report
	`, report.RunID, report.StartedAt.UTC(), report.FinishedAt.UTC(), string(body))
	if err != nil {
		return unavailable("save report", fmt.Errorf("saving report: %w", err))
	}
	return nil
}

// LastReport returns the most recently finished run.
func (s *reportStore) LastReport(ctx context.Context) (*domain.SyncReport, error) {
	var body string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT report FROM sync_reports
		ORDER BY finished_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("last report", fmt.Errorf("querying report: %w", err))
	}

	var report domain.SyncReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &report, nil
}
