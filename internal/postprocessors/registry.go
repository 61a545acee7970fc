// Package postprocessors builds the text splitters used by the chunk stage.
package postprocessors

import (
	"fmt"
	"sort"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// BuilderFunc creates a Splitter from generic config.
// Config is a map of splitter-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.Splitter, error)

// Registry maps splitter names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new splitter registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a splitter builder to the registry.
// Name should be unique and match the splitter's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a splitter by name with the given config.
// Returns domain.ErrInvalidConfig if the name is not registered.
func (r *Registry) Build(name string, cfg map[string]any) (driven.Splitter, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown splitter %q", domain.ErrInvalidConfig, name)
	}
	return builder(cfg)
}

// FromSettings builds the splitter selected by the chunker settings.
func (r *Registry) FromSettings(s domain.ChunkerSettings) (driven.Splitter, error) {
	return r.Build(s.Splitter, map[string]any{
		"chunk_size": s.ChunkSize,
		"overlap":    s.Overlap,
	})
}

// Has returns true if a splitter with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered splitter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
