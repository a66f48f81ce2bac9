package driven

import "github.com/custodia-labs/portfolio-rag/internal/core/domain"

// Normaliser turns a CMS document into canonical, hashable text.
type Normaliser interface {
	// Normalise returns the canonical form of doc.
	// A nil result with a nil error means the document has nothing to index
	// (unsupported type or no indexable content) and should be treated as absent.
	Normalise(doc domain.SourceDocument) (*domain.NormalizedDocument, error)
}
