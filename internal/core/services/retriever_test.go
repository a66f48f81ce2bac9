package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/normalisers/cms"
)

// indexedStore syncs docs into a fresh in-memory store.
func indexedStore(t *testing.T, embedder *fakeEmbedder, docs ...domain.SourceDocument) *memory.VectorStore {
	t.Helper()
	store := memory.NewVectorStore()
	sync := newTestSynchronizer(t, newFakeSource(docs...), cms.New(), embedder, store)
	_, err := sync.Sync(context.Background())
	require.NoError(t, err)
	return store
}

func TestRetrieverService_Retrieve(t *testing.T) {
	embedder := newFakeEmbedder(64)
	store := indexedStore(t, embedder,
		project("casa-bonita", "Casa Bonita", "Restaurant booking site with a waitlist."),
		project("weather", "Weather Station", "Raspberry Pi sensors streaming to Grafana."),
	)
	retriever := NewRetrieverService(embedder, store, domain.RetrievalSettings{Threshold: 0.1, Limit: 5})

	results, err := retriever.Retrieve(context.Background(), "restaurant booking waitlist", nil)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	top := results[0]
	assert.Equal(t, "casa-bonita", top.SourceID)
	assert.Equal(t, domain.SourceTypeProject, top.SourceType)
	assert.Equal(t, "Casa Bonita", top.Title)
	assert.Contains(t, top.Text, "waitlist")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRetrieverService_ThresholdFiltersEverything(t *testing.T) {
	embedder := newFakeEmbedder(64)
	store := indexedStore(t, embedder, project("a", "Alpha", "Distributed systems in Go."))
	retriever := NewRetrieverService(embedder, store, domain.RetrievalSettings{Threshold: 0.3, Limit: 5})

	results, err := retriever.Retrieve(context.Background(), "banana smoothie recipe", &domain.RetrieveOptions{Threshold: ptr(0.99)})

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetrieverService_OptionsOverrideDefaults(t *testing.T) {
	embedder := newFakeEmbedder(64)
	store := indexedStore(t, embedder,
		project("a", "Alpha", "Go services."),
		project("b", "Beta", "Go tooling."),
		project("c", "Gamma", "Go libraries."),
		profile("profile", "Jane Doe", "Writes Go."),
	)
	retriever := NewRetrieverService(embedder, store, domain.RetrievalSettings{Threshold: 0.99, Limit: 1})

	results, err := retriever.Retrieve(context.Background(), "Go", &domain.RetrieveOptions{
		Threshold:   ptr(0.01),
		Limit:       2,
		SourceTypes: []domain.SourceType{domain.SourceTypeProject},
	})

	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, domain.SourceTypeProject, r.SourceType)
		assert.GreaterOrEqual(t, r.Score, 0.01)
	}
}

func TestRetrieverService_ExplicitZeroThreshold(t *testing.T) {
	embedder := newFakeEmbedder(64)
	store := indexedStore(t, embedder,
		project("a", "Alpha", "Go services."),
		project("b", "Beta", "Banana bread."),
		project("c", "Gamma", "Sailing logs."),
	)
	retriever := NewRetrieverService(embedder, store, domain.RetrievalSettings{Threshold: 0.99, Limit: 10})

	defaults, err := retriever.Retrieve(context.Background(), "Go", &domain.RetrieveOptions{SkipExpansion: true})
	require.NoError(t, err)

	all, err := retriever.Retrieve(context.Background(), "Go", &domain.RetrieveOptions{Threshold: ptr(0.0), SkipExpansion: true})
	require.NoError(t, err)

	assert.Less(t, len(defaults), len(all))
	for _, r := range all {
		assert.GreaterOrEqual(t, r.Score, 0.0)
	}
}

func TestRetrieverService_ThresholdOutOfRange(t *testing.T) {
	retriever := NewRetrieverService(newFakeEmbedder(8), memory.NewVectorStore(), domain.RetrievalSettings{Limit: 5})

	_, err := retriever.Retrieve(context.Background(), "q", &domain.RetrieveOptions{Threshold: ptr(1.5)})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func ptr[T any](v T) *T { return &v }

func TestRetrieverService_EmptyQuery(t *testing.T) {
	embedder := newFakeEmbedder(8)
	retriever := NewRetrieverService(embedder, memory.NewVectorStore(), domain.RetrievalSettings{Limit: 5})

	results, err := retriever.Retrieve(context.Background(), "   ", nil)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, embedder.calls.Load())
}

func TestRetrieverService_EmbedError(t *testing.T) {
	embedder := newFakeEmbedder(8)
	embedder.failFor = map[string]error{"boom": domain.NewEmbeddingProviderError("fake", 503, errors.New("down"))}
	retriever := NewRetrieverService(embedder, memory.NewVectorStore(), domain.RetrievalSettings{Limit: 5})

	_, err := retriever.Retrieve(context.Background(), "boom", nil)

	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
}

func TestRetrieverService_MissingDependencies(t *testing.T) {
	_, err := NewRetrieverService(nil, memory.NewVectorStore(), domain.RetrievalSettings{}).
		Retrieve(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = NewRetrieverService(newFakeEmbedder(8), nil, domain.RetrievalSettings{}).
		Retrieve(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
}

func TestRetrieverService_ExpandsPronouns(t *testing.T) {
	embedder := newFakeEmbedder(64)
	store := indexedStore(t, embedder,
		profile("profile", "Jane Doe", "Jane Doe mentors junior engineers."),
		project("a", "Alpha", "Compiler experiments."),
	)
	retriever := NewRetrieverService(embedder, store, domain.RetrievalSettings{
		Threshold:   0.05,
		Limit:       5,
		SubjectName: "Jane Doe",
	})

	results, err := retriever.Retrieve(context.Background(), "what does she do", nil)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "profile", results[0].SourceID)
}

func TestQueryExpander_Expand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"possessive", "What are your skills?", "What are Jane Doe's skills?"},
		{"subject", "Have you used Go?", "Have Jane Doe used Go?"},
		{"third person", "Where did he work", "Where did Jane Doe work"},
		{"her as possessive", "Tell me about her projects", "Tell me about Jane Doe's projects"},
		{"her as object", "tell me about her", "tell me about Jane Doe"},
		{"her before preposition", "What do people say about her at work", "What do people say about Jane Doe at work"},
		{"her before punctuation", "Have you met her?", "Have Jane Doe met Jane Doe?"},
		{"hers", "Is this design hers", "Is this design Jane Doe's"},
		{"case insensitive", "YOUR experience", "Jane Doe's experience"},
		{"word boundary", "The youth theatre", "The youth theatre"},
		{"no pronouns", "Casa Bonita stack", "Casa Bonita stack"},
	}

	expander := NewQueryExpander("Jane Doe")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expander.Expand(tt.input))
		})
	}
}

func TestQueryExpander_NoName(t *testing.T) {
	assert.Equal(t, "what are your skills", NewQueryExpander("  ").Expand("what are your skills"))

	var nilExpander *QueryExpander
	assert.Equal(t, "your", nilExpander.Expand("your"))
}

func TestFormatContext(t *testing.T) {
	assert.Empty(t, FormatContext(nil))

	got := FormatContext([]domain.RetrievedChunk{
		{Text: "Booking site.", SourceID: "casa-bonita", SourceType: domain.SourceTypeProject, Score: 0.82, Title: "Casa Bonita"},
		{Text: "Engineer.", SourceID: "profile", SourceType: domain.SourceTypeProfile, Score: 0.5},
	})

	assert.Equal(t,
		"[1] Casa Bonita (Project, score 0.82)\nBooking site.\n\n[2] profile (Profile, score 0.50)\nEngineer.",
		got)
}
