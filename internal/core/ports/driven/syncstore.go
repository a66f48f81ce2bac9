package driven

import (
	"context"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// ReleaseFunc releases a held lock.
type ReleaseFunc func(ctx context.Context) error

// SyncLock serialises sync runs across callers.
type SyncLock interface {
	// Acquire takes the lock named key without blocking.
	// Returns domain.ErrSyncInProgress when another holder has it.
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// SyncReportStore persists the outcome of sync runs.
type SyncReportStore interface {
	// SaveReport stores a finished run report.
	SaveReport(ctx context.Context, report *domain.SyncReport) error

	// LastReport returns the most recent report.
	// Returns domain.ErrNotFound when no run has been recorded.
	LastReport(ctx context.Context) (*domain.SyncReport, error)
}
