package connectors

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

// draftPrefix marks unpublished Sanity documents.
const draftPrefix = "drafts."

// IsDraft reports whether id names an unpublished draft.
func IsDraft(id string) bool {
	return strings.HasPrefix(id, draftPrefix)
}

// DecodeDocument converts a raw Sanity document into a SourceDocument.
// System fields (_id, _type, _rev, _updatedAt) populate the typed
// attributes; every field, system fields included, is kept in Fields.
func DecodeDocument(raw map[string]any) (domain.SourceDocument, error) {
	id, _ := raw["_id"].(string)
	if id == "" {
		return domain.SourceDocument{}, fmt.Errorf("%w: document without _id", domain.ErrInvalidInput)
	}
	docType, _ := raw["_type"].(string)
	rev, _ := raw["_rev"].(string)

	doc := domain.SourceDocument{
		ID:     id,
		Type:   domain.SourceType(docType),
		Rev:    rev,
		Fields: raw,
	}
	if ts, ok := raw["_updatedAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			doc.UpdatedAt = t
		}
	}
	return doc, nil
}

// Filter drops drafts and documents whose type is not in allowed.
// An empty allowed list keeps every type.
func Filter(docs []domain.SourceDocument, allowed []domain.SourceType) []domain.SourceDocument {
	out := docs[:0:0]
	for _, d := range docs {
		if IsDraft(d.ID) || !typeAllowed(d.Type, allowed) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func typeAllowed(t domain.SourceType, allowed []domain.SourceType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
