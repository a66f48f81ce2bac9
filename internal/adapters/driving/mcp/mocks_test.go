package mcp

import (
	"context"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	results []domain.RetrievedChunk
	err     error
	query   string
	opts    *domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(
	_ context.Context,
	query string,
	opts *domain.RetrieveOptions,
) ([]domain.RetrievedChunk, error) {
	m.query = query
	m.opts = opts
	return m.results, m.err
}

// mockSynchronizer is a mock implementation of driving.Synchronizer.
type mockSynchronizer struct {
	status *driving.SyncStatus
	err    error
}

func (m *mockSynchronizer) Sync(_ context.Context) (*domain.SyncReport, error) {
	return nil, m.err
}

func (m *mockSynchronizer) SyncDocuments(_ context.Context, _ []domain.SourceDocument) (*domain.SyncReport, error) {
	return nil, m.err
}

func (m *mockSynchronizer) SyncOne(_ context.Context, _ string) (*domain.SyncReport, error) {
	return nil, m.err
}

func (m *mockSynchronizer) DeleteOne(_ context.Context, _ string) (*domain.SyncReport, error) {
	return nil, m.err
}

func (m *mockSynchronizer) Status(_ context.Context) (*driving.SyncStatus, error) {
	return m.status, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	stats domain.IndexStats
	err   error
}

func (m *mockIndexService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}
