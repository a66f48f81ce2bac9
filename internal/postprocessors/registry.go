package postprocessors

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// BuilderFunc creates a stage from its section of the pipeline config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry resolves stage names from configuration to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds a builder. Names are unique.
func (r *Registry) Register(name string, builder BuilderFunc) error {
	if name == "" || builder == nil {
		return fmt.Errorf("%w: stage needs a name and a builder", domain.ErrInvalidInput)
	}
	if _, exists := r.builders[name]; exists {
		return fmt.Errorf("%w: stage %q already registered", domain.ErrInvalidInput, name)
	}
	r.builders[name] = builder
	return nil
}

// Build creates the named stage.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown stage %q (have %s)",
			domain.ErrInvalidInput, name, strings.Join(r.Names(), ", "))
	}
	proc, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building stage %s: %w", name, err)
	}
	return proc, nil
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
