// Package chunker splits canonical text into overlapping, boundary-aligned chunks.
package chunker

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultBoundaryWindow is how far back from the size limit a boundary is searched for.
const DefaultBoundaryWindow = 200

// Processor splits document text into chunks of at most chunkSize characters.
// Cuts prefer paragraph breaks, then sentence ends, then newlines, then
// whitespace, and fall back to a hard cut when none lies within the window.
type Processor struct {
	chunkSize int
	overlap   int
	window    int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithBoundaryWindow sets the boundary search window in characters.
func WithBoundaryWindow(window int) Option {
	return func(p *Processor) {
		if window >= 0 {
			p.window = window
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		window:    DefaultBoundaryWindow,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	if p.window > p.chunkSize {
		p.window = p.chunkSize
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document's canonical text into chunks.
// Input chunks are ignored; this processor creates new chunks.
// Each chunk records the byte offset of its text in domain.MetaOffset.
func (p *Processor) Process(_ context.Context, doc *domain.NormalizedDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.CanonicalText) == "" {
		return nil, nil
	}

	text := doc.CanonicalText
	runes := []rune(text)

	// offsets[i] is the byte offset of runes[i]; offsets[len(runes)] == len(text).
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += utf8.RuneLen(r)
	}
	offsets[len(runes)] = pos

	var chunks []domain.Chunk
	emit := func(start, end int) {
		raw := string(runes[start:end])
		content := strings.TrimSpace(raw)
		if content == "" {
			return
		}
		lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		chunks = append(chunks, domain.Chunk{
			SourceID:   doc.SourceID,
			SourceType: doc.SourceType,
			Index:      len(chunks),
			Content:    content,
			Metadata:   map[string]any{domain.MetaOffset: offsets[start] + lead},
		})
	}

	for start := 0; start < len(runes); {
		end := start + p.chunkSize
		if end >= len(runes) {
			emit(start, len(runes))
			break
		}

		cut := p.boundary(runes, start, end)
		emit(start, cut)
		start = p.nextStart(runes, start, cut)
	}

	return chunks, nil
}

// boundary returns the exclusive end of the chunk starting at start whose
// hard limit is end. The result is always greater than start+overlap.
func (p *Processor) boundary(runes []rune, start, end int) int {
	lo := end - p.window
	if floor := start + p.overlap + 1; lo < floor {
		lo = floor
	}
	if lo > end {
		return end
	}

	// Paragraph break: cut after "\n\n".
	for i := end; i >= lo; i-- {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	// Sentence end followed by whitespace.
	for i := end; i >= lo; i-- {
		if i >= 1 && i < len(runes) && isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if i >= 1 && runes[i-1] == '\n' {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

// nextStart backs up overlap characters from cut and snaps forward to the
// start of a word so the overlap does not begin mid-word.
func (p *Processor) nextStart(runes []rune, start, cut int) int {
	if p.overlap == 0 {
		return cut
	}
	next := cut - p.overlap
	snapped := next
	for snapped < cut && snapped > 0 && !unicode.IsSpace(runes[snapped-1]) {
		snapped++
	}
	if snapped < cut {
		next = snapped
	}
	if next <= start {
		return cut
	}
	return next
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
