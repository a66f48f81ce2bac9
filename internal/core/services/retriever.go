package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.Retriever = (*RetrieverService)(nil)

// RetrieverService answers questions with the most similar indexed chunks.
type RetrieverService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	expander *QueryExpander
	defaults domain.RetrievalSettings
}

// NewRetrieverService creates a retriever with the given defaults.
func NewRetrieverService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	defaults domain.RetrievalSettings,
) *RetrieverService {
	return &RetrieverService{
		embedder: embedder,
		store:    store,
		expander: NewQueryExpander(defaults.SubjectName),
		defaults: defaults,
	}
}

// Retrieve returns chunks ranked by similarity to query.
func (r *RetrieverService) Retrieve(
	ctx context.Context, query string, opts *domain.RetrieveOptions,
) ([]domain.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.RetrievedChunk{}, nil
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if r.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	search := domain.SearchOptions{
		Threshold: r.defaults.Threshold,
		Limit:     r.defaults.Limit,
	}
	expand := true
	if opts != nil {
		if opts.Threshold != nil {
			if t := *opts.Threshold; t < 0 || t > 1 {
				return nil, fmt.Errorf("%w: threshold %.2f outside [0, 1]", domain.ErrInvalidInput, t)
			}
			search.Threshold = *opts.Threshold
		}
		if opts.Limit > 0 {
			search.Limit = opts.Limit
		}
		search.SourceTypes = opts.SourceTypes
		expand = !opts.SkipExpansion
	}

	if expand {
		if expanded := r.expander.Expand(query); expanded != query {
			logger.Debug("Expanded query: %q -> %q", query, expanded)
			query = expanded
		}
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := r.store.Search(ctx, vector, search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.RetrievedChunk, 0, len(scored))
	for _, sc := range scored {
		if sc.Score < search.Threshold {
			continue
		}
		if search.Limit > 0 && len(results) >= search.Limit {
			break
		}
		title, _ := sc.Chunk.Metadata[domain.MetaTitle].(string)
		results = append(results, domain.RetrievedChunk{
			Text:       sc.Chunk.Content,
			SourceID:   sc.Chunk.SourceID,
			SourceType: sc.Chunk.SourceType,
			Score:      sc.Score,
			ChunkIndex: sc.Chunk.Index,
			Title:      title,
		})
	}
	logger.Info("Retrieved %d chunks (threshold %.2f, limit %d)", len(results), search.Threshold, search.Limit)
	return results, nil
}

var (
	possessivePronouns = regexp.MustCompile(`(?i)\b(your|yours|his|hers)\b`)
	subjectPronouns    = regexp.MustCompile(`(?i)\b(you|yourself|he|him|she|himself|herself)\b`)
	herPronoun         = regexp.MustCompile(`(?i)\bher\b(\s+([a-z]+))?`)
)

// herObjectFollowers are words after which "her" is an object, not a determiner.
var herObjectFollowers = map[string]bool{
	"a": true, "about": true, "after": true, "again": true, "an": true, "and": true,
	"as": true, "at": true, "before": true, "but": true, "by": true, "did": true,
	"do": true, "does": true, "for": true, "from": true, "how": true, "if": true,
	"in": true, "is": true, "of": true, "on": true, "or": true, "so": true,
	"than": true, "that": true, "the": true, "to": true, "was": true, "what": true,
	"when": true, "where": true, "why": true, "with": true,
}

// QueryExpander rewrites second and third person references in a visitor's
// question to the portfolio owner's name, so "what are your skills" embeds
// close to "Jane Doe's skills".
type QueryExpander struct {
	name string
}

// NewQueryExpander creates an expander for name. An empty name disables expansion.
func NewQueryExpander(name string) *QueryExpander {
	return &QueryExpander{name: strings.TrimSpace(name)}
}

// Expand returns query with pronouns replaced by the subject name.
func (e *QueryExpander) Expand(query string) string {
	if e == nil || e.name == "" {
		return query
	}
	out := herPronoun.ReplaceAllStringFunc(query, e.expandHer)
	out = possessivePronouns.ReplaceAllLiteralString(out, e.name+"'s")
	return subjectPronouns.ReplaceAllLiteralString(out, e.name)
}

// expandHer treats "her" as possessive only when a noun-like word follows it.
func (e *QueryExpander) expandHer(match string) string {
	m := herPronoun.FindStringSubmatch(match)
	rest, next := m[1], m[2]
	if next == "" || herObjectFollowers[strings.ToLower(next)] {
		return e.name + rest
	}
	return e.name + "'s" + rest
}

// FormatContext renders retrieved chunks as numbered context blocks for a
// downstream generation prompt.
func FormatContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		label := c.Title
		if label == "" {
			label = c.SourceID
		}
		fmt.Fprintf(&sb, "[%d] %s (%s, score %.2f)\n%s", i+1, label, c.SourceType.Description(), c.Score, c.Text)
	}
	return sb.String()
}
