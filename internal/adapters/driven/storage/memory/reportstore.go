package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure ReportStore implements the interface.
var _ driven.SyncReportStore = (*ReportStore)(nil)

// ReportStore keeps the most recent sync report in memory.
type ReportStore struct {
	mu   sync.RWMutex
	last *domain.SyncReport
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{}
}

// SaveReport replaces the stored report.
func (s *ReportStore) SaveReport(_ context.Context, report *domain.SyncReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *report
	r.Changes = append([]domain.ChangeRecord(nil), report.Changes...)
	s.last = &r
	return nil
}

// LastReport returns the stored report.
func (s *ReportStore) LastReport(_ context.Context) (*domain.SyncReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, domain.ErrNotFound
	}
	r := *s.last
	return &r, nil
}
