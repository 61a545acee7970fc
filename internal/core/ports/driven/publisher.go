package driven

import (
	"context"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// IndexPublisher feeds finished chunks to the search engine.
// The searchable field is the chunk text; every attribute in
// domain.FilterableAttributes can be filtered with equality or contains.
type IndexPublisher interface {
	// Publish replaces the published chunk set with chunks.
	Publish(ctx context.Context, chunks []domain.Chunk) error

	// Search queries the published chunk set.
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchHit, error)

	// State returns when the index was last published.
	State(ctx context.Context) (domain.PublishState, error)

	// Close releases resources.
	Close() error
}
