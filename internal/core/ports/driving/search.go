package driving

import (
	"context"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// SearchService provides search over published chunks to external actors.
type SearchService interface {
	// Search runs a full-text query with optional attribute filters.
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchHit, error)
}
