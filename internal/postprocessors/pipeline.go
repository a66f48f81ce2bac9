// Package postprocessors turns normalised documents into chunks ready for embedding.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs a fixed sequence of processors over one document.
// The first stage receives nil chunks and creates them; later stages rewrite them.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline whose stages run in the given order.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Process chunks doc. A document without text yields no chunks.
// Blank chunks are dropped, and two chunks sharing an ID is an error
// because the later one would silently replace the earlier in the store.
func (p *Pipeline) Process(ctx context.Context, doc *domain.NormalizedDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.CanonicalText) == "" {
		return nil, nil
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		var err error
		if chunks, err = stage.Process(ctx, doc, chunks); err != nil {
			return nil, fmt.Errorf("%s: stage %s: %w", doc.SourceID, stage.Name(), err)
		}
	}

	out := chunks[:0]
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		if c.ID != "" {
			if _, dup := seen[c.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate chunk id %s", doc.SourceID, c.ID)
			}
			seen[c.ID] = struct{}{}
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
