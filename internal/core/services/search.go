package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchLimit is used when a query does not set a limit.
const DefaultSearchLimit = 10

// SearchService queries the published chunk index.
type SearchService struct {
	publisher driven.IndexPublisher
}

// NewSearchService creates a new search service.
// The publisher may be nil, in which case search is disabled.
func NewSearchService(publisher driven.IndexPublisher) *SearchService {
	return &SearchService{publisher: publisher}
}

// Search validates the query and runs it against the index.
func (s *SearchService) Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchHit, error) {
	if s.publisher == nil {
		return nil, domain.ErrIndexUnavailable
	}

	query.Text = strings.TrimSpace(query.Text)
	if query.Text == "" && len(query.Filters) == 0 {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if query.Limit <= 0 {
		query.Limit = DefaultSearchLimit
	}
	for _, f := range query.Filters {
		if !slices.Contains(domain.FilterableAttributes(), f.Attribute) {
			return nil, fmt.Errorf("%w: attribute %q is not filterable", domain.ErrInvalidInput, f.Attribute)
		}
		if f.Op != domain.FilterEquals && f.Op != domain.FilterContains {
			return nil, fmt.Errorf("%w: unknown filter op %q", domain.ErrInvalidInput, f.Op)
		}
	}

	logger.Section("Search")
	logger.Debug("query=%q filters=%d limit=%d", query.Text, len(query.Filters), query.Limit)

	hits, err := s.publisher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("%d hits", len(hits))
	return hits, nil
}
