package domain

import "time"

// SourceType identifies the kind of CMS document.
type SourceType string

// Supported CMS document types.
const (
	// SourceTypeProfile is the site owner's profile document.
	SourceTypeProfile SourceType = "profile"

	// SourceTypeProject is a portfolio project.
	SourceTypeProject SourceType = "project"

	// SourceTypeAIProject is an AI/ML project write-up.
	SourceTypeAIProject SourceType = "aiProject"

	// SourceTypeAIShowcase is a showcase entry for an AI demo.
	SourceTypeAIShowcase SourceType = "aiShowcase"
)

// AllSourceTypes returns every source type the normaliser understands, in a stable order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeProfile,
		SourceTypeProject,
		SourceTypeAIProject,
		SourceTypeAIShowcase,
	}
}

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeProfile, SourceTypeProject, SourceTypeAIProject, SourceTypeAIShowcase:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// Description returns a human-readable description of the source type.
func (t SourceType) Description() string {
	switch t {
	case SourceTypeProfile:
		return "Profile"
	case SourceTypeProject:
		return "Project"
	case SourceTypeAIProject:
		return "AI Project"
	case SourceTypeAIShowcase:
		return "AI Showcase"
	default:
		return unknownDescription
	}
}

// SourceDocument is a document as delivered by the CMS.
// The core never mutates it; it is only read and normalised.
type SourceDocument struct {
	// ID is the stable CMS identifier (e.g. "casa-bonita").
	ID string

	// Type selects the variant used to interpret Fields.
	Type SourceType

	// Rev is the CMS revision identifier, if known.
	Rev string

	// UpdatedAt is when the CMS last modified the document.
	UpdatedAt time.Time

	// Fields contains the raw structured fields from the CMS.
	Fields map[string]any
}

// NormalizedDocument is the canonical, hashable text form of a SourceDocument.
// It is derived and never persisted.
type NormalizedDocument struct {
	// SourceID is the ID of the originating SourceDocument.
	SourceID string

	// SourceType is the type of the originating SourceDocument.
	SourceType SourceType

	// Title is a display title extracted during normalisation.
	Title string

	// CanonicalText is the flattened text of all indexable fields.
	CanonicalText string

	// ContentHash is the hex SHA-256 of CanonicalText.
	ContentHash string

	// Spans locates each source field within CanonicalText, in text order.
	Spans []FieldSpan
}

// FieldSpan is the byte range of CanonicalText produced from one CMS field.
type FieldSpan struct {
	// Path is the CMS field name (e.g. "description", "experience[1]").
	Path string

	Start int
	End   int
}

// FieldAt returns the path of the span containing byte offset, or "".
func (d *NormalizedDocument) FieldAt(offset int) string {
	for _, s := range d.Spans {
		if offset >= s.Start && offset < s.End {
			return s.Path
		}
	}
	return ""
}

// Chunk is a unit of embedded content.
// The set of chunks for a SourceID is always replaced as a whole.
type Chunk struct {
	// ID is derived deterministically from SourceID and Index.
	ID string

	// SourceID links to the originating SourceDocument.
	SourceID string

	// SourceType is the type of the originating SourceDocument.
	SourceType SourceType

	// Index is the ordinal position within the document.
	Index int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	// Always includes "source" (the source type) and "sourceId".
	Metadata map[string]any
}

// Metadata keys written on every chunk.
const (
	MetaSource     = "source"
	MetaSourceID   = "sourceId"
	MetaChunkIndex = "chunkIndex"
	MetaTitle      = "title"
	MetaFieldPath  = "fieldPath"
	MetaOffset     = "offset"
)

// ScoredChunk is a chunk returned from similarity search.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the cosine similarity (higher is more similar).
	Score float64
}
