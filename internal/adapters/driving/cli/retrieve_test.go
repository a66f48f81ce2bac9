package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

func chunks() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{
			Text:       "Project: Casa Bonita\n\nDescription: Booking site.",
			SourceID:   "casa-bonita",
			SourceType: domain.SourceTypeProject,
			Title:      "Casa Bonita",
			Score:      0.81,
		},
	}
}

func TestRetrieveCmd_RequiresQuery(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "retrieve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestRetrieveCmd_JoinsArgsAndPassesFlags(t *testing.T) {
	ts := setupTestServices(t)
	ts.retriever.results = chunks()

	out, err := execute(t, "retrieve", "-n", "3", "--threshold", "0.5", "--type", "project", "what", "did", "you", "build")

	require.NoError(t, err)
	assert.Equal(t, "what did you build", ts.retriever.query)
	assert.Equal(t, 3, ts.retriever.opts.Limit)
	require.NotNil(t, ts.retriever.opts.Threshold)
	assert.Equal(t, 0.5, *ts.retriever.opts.Threshold)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeProject}, ts.retriever.opts.SourceTypes)
	assert.Contains(t, out, "[1] Casa Bonita (Project, 0.81)")
	assert.Contains(t, out, "Project: Casa Bonita Description: Booking site.")
}

func TestRetrieveCmd_ThresholdOnlyWhenSet(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "retrieve", "--threshold", "0", "anything")
	require.NoError(t, err)
	require.NotNil(t, ts.retriever.opts.Threshold)
	assert.Zero(t, *ts.retriever.opts.Threshold)

	_, err = execute(t, "retrieve", "anything")
	require.NoError(t, err)
	assert.Nil(t, ts.retriever.opts.Threshold)
}

func TestRetrieveCmd_UnknownType(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "retrieve", "--type", "blogPost", "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document type")
}

func TestRetrieveCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "retrieve", "weather")

	require.NoError(t, err)
	assert.Contains(t, out, "No relevant content found.")
}

func TestRetrieveCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.retriever.results = chunks()

	out, err := execute(t, "retrieve", "--json", "casa")

	require.NoError(t, err)
	var got []domain.RetrievedChunk
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, chunks(), got)
}

func TestRetrieveCmd_Context(t *testing.T) {
	ts := setupTestServices(t)
	ts.retriever.results = chunks()

	out, err := execute(t, "retrieve", "--context", "casa")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] Casa Bonita (Project, score 0.81)\nProject: Casa Bonita")
}

func TestRetrieveCmd_Error(t *testing.T) {
	ts := setupTestServices(t)
	ts.retriever.err = domain.ErrEmbeddingUnavailable

	_, err := execute(t, "retrieve", "casa")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "short", text: "hello", n: 10, want: "hello"},
		{name: "collapses whitespace", text: "a\n\nb   c", n: 10, want: "a b c"},
		{name: "truncates runes", text: "héllo wörld", n: 5, want: "héllo..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.text, tt.n))
		})
	}
}
