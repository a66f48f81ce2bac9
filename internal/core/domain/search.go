package domain

import "time"

// SearchOptions configures a vector store similarity search.
type SearchOptions struct {
	// Threshold is the minimum similarity a result must reach.
	Threshold float64

	// Limit is the maximum number of results.
	Limit int

	// SourceTypes restricts results to the given types. Empty means all.
	SourceTypes []SourceType
}

// AllowsType reports whether a chunk of the given type passes the type filter.
func (o SearchOptions) AllowsType(t SourceType) bool {
	if len(o.SourceTypes) == 0 {
		return true
	}
	for _, allowed := range o.SourceTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// RetrieveOptions overrides retriever defaults for a single query.
// Zero values fall back to the configured defaults.
type RetrieveOptions struct {
	// Threshold is the minimum similarity score. Nil uses the default;
	// an explicit 0 disables filtering.
	Threshold *float64

	// Limit caps the number of results.
	Limit int

	// SourceTypes restricts retrieval to the given document types.
	SourceTypes []SourceType

	// SkipExpansion disables query rewriting.
	SkipExpansion bool
}

// RetrievedChunk is a ranked context chunk handed to the generation layer.
type RetrievedChunk struct {
	Text       string     `json:"text"`
	SourceID   string     `json:"sourceId"`
	SourceType SourceType `json:"sourceType"`
	Score      float64    `json:"score"`
	ChunkIndex int        `json:"chunkIndex"`
	Title      string     `json:"title,omitempty"`
}

// IndexStats summarises the contents of the vector store.
type IndexStats struct {
	// TotalDocuments is the number of source documents with sync state.
	TotalDocuments int `json:"totalDocuments"`

	// TotalChunks is the number of stored chunks.
	TotalChunks int `json:"totalChunks"`

	// LastSync is when the most recent document was synced.
	LastSync *time.Time `json:"lastSync"`

	// SourcesCount is the number of documents per source type.
	SourcesCount map[SourceType]int `json:"sourcesCount"`
}
