package driving

import (
	"context"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// Synchronizer keeps the vector store consistent with the CMS.
type Synchronizer interface {
	// Sync pulls every document from the content source and reconciles the index.
	Sync(ctx context.Context) (*domain.SyncReport, error)

	// SyncDocuments reconciles the index against the given full document set.
	// Tracked documents missing from docs are deleted.
	SyncDocuments(ctx context.Context, docs []domain.SourceDocument) (*domain.SyncReport, error)

	// SyncOne reconciles a single document. A document that no longer exists
	// in the CMS is removed from the index.
	SyncOne(ctx context.Context, sourceID string) (*domain.SyncReport, error)

	// DeleteOne removes a document's chunks and sync state.
	DeleteOne(ctx context.Context, sourceID string) (*domain.SyncReport, error)

	// Status returns the current synchroniser status.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus represents the current state of the synchroniser.
type SyncStatus struct {
	// Running indicates if a sync is currently in progress.
	Running bool `json:"running"`

	// LastReport is the most recent finished run, if any.
	LastReport *domain.SyncReport `json:"lastReport,omitempty"`
}
