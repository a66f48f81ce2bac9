package connectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

func TestDecodeDocument(t *testing.T) {
	raw := map[string]any{
		"_id":        "casa-bonita",
		"_type":      "project",
		"_rev":       "r1",
		"_updatedAt": "2024-03-01T10:00:00Z",
		"title":      "Casa Bonita",
	}

	doc, err := DecodeDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "casa-bonita", doc.ID)
	assert.Equal(t, domain.SourceTypeProject, doc.Type)
	assert.Equal(t, "r1", doc.Rev)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), doc.UpdatedAt)
	assert.Equal(t, "Casa Bonita", doc.Fields["title"])
}

func TestDecodeDocument_MissingID(t *testing.T) {
	_, err := DecodeDocument(map[string]any{"_type": "project"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFilter(t *testing.T) {
	docs := []domain.SourceDocument{
		{ID: "a", Type: domain.SourceTypeProject},
		{ID: "drafts.a", Type: domain.SourceTypeProject},
		{ID: "b", Type: domain.SourceTypeProfile},
		{ID: "c", Type: "siteSettings"},
	}

	got := Filter(docs, []domain.SourceType{domain.SourceTypeProject, domain.SourceTypeProfile})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	assert.Len(t, Filter(docs, nil), 3, "no allow-list keeps every published type")
	assert.True(t, IsDraft("drafts.x"))
	assert.False(t, IsDraft("x"))
}
