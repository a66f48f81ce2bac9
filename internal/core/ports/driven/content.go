package driven

import (
	"context"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// ContentSource reads documents from the CMS.
type ContentSource interface {
	// Name identifies the source for logging.
	Name() string

	// List returns every published document of the configured types.
	List(ctx context.Context) ([]domain.SourceDocument, error)

	// Get returns one document by ID.
	// Returns domain.ErrNotFound when the document does not exist.
	Get(ctx context.Context, id string) (*domain.SourceDocument, error)
}

// ContentWatcher is implemented by sources that can push change notifications.
type ContentWatcher interface {
	// Watch emits an event per changed document until ctx is cancelled.
	// The channel is closed when watching stops.
	Watch(ctx context.Context) (<-chan domain.ContentEvent, error)
}
