package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService reports on the vector index.
type IndexService struct {
	store   driven.VectorStore
	reports driven.SyncReportStore
}

// NewIndexService creates an index service. reports is optional.
func NewIndexService(store driven.VectorStore, reports driven.SyncReportStore) *IndexService {
	return &IndexService{store: store, reports: reports}
}

// Stats summarises the index. When no document carries a sync time the
// finish time of the last recorded run is used instead.
func (s *IndexService) Stats(ctx context.Context) (domain.IndexStats, error) {
	if s.store == nil {
		return domain.IndexStats{}, domain.ErrVectorStoreUnavailable
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("index stats: %w", err)
	}
	if stats.SourcesCount == nil {
		stats.SourcesCount = map[domain.SourceType]int{}
	}

	if stats.LastSync == nil && s.reports != nil {
		last, err := s.reports.LastReport(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return domain.IndexStats{}, fmt.Errorf("last report: %w", err)
		default:
			finished := last.FinishedAt
			stats.LastSync = &finished
		}
	}
	return stats, nil
}
