package mcp

import (
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides search over published chunks.
	Search driving.SearchService

	// Status reports per-document enrichment progress.
	Status driving.StatusService

	// Pipeline exposes the run history.
	Pipeline driving.PipelineService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Status and Pipeline are optional; their tools and resources are
	// registered only when set.
	return nil
}
