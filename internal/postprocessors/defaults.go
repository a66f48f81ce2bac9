package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/postprocessors/chunker"
	"github.com/custodia-labs/portfolio-rag/internal/postprocessors/provenance"
)

// RegisterDefaults registers the chunker and provenance stages.
func RegisterDefaults(r *Registry) error {
	if err := r.Register("chunker", buildChunker); err != nil {
		return err
	}
	return r.Register("provenance", func(map[string]any) (driven.PostProcessor, error) {
		return provenance.New(), nil
	})
}

// BuildPipeline constructs the pipeline described by cfg from the registry.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no processors", domain.ErrInvalidInput)
	}
	stages := make([]driven.PostProcessor, 0, len(cfg.Processors))
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		stages = append(stages, proc)
	}
	return NewPipeline(stages...), nil
}

// NewDefaultPipeline builds the chunker → provenance pipeline for the given settings.
func NewDefaultPipeline(settings domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	if err := RegisterDefaults(r); err != nil {
		return nil, err
	}
	return BuildPipeline(r, domain.PipelineConfigFor(settings))
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
//   - boundary_window (int): Boundary search window (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size, ok := lookupInt(cfg, "chunk_size"); ok && size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if overlap, ok := lookupInt(cfg, "overlap"); ok {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
		if window, ok := lookupInt(cfg, "boundary_window"); ok {
			opts = append(opts, chunker.WithBoundaryWindow(window))
		}
	}

	return chunker.New(opts...), nil
}

// lookupInt reads an integer that may have been decoded from TOML or JSON.
func lookupInt(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
