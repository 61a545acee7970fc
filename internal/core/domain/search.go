package domain

import "time"

// FilterOp is a search filter comparison.
type FilterOp string

// Supported filter comparisons.
const (
	// FilterEquals matches attributes equal to the value.
	FilterEquals FilterOp = "eq"

	// FilterContains matches attributes containing the value.
	FilterContains FilterOp = "contains"
)

// Filterable chunk attributes.
const (
	AttrTitle     = "title"
	AttrFilename  = "filename"
	AttrFilepath  = "filepath"
	AttrLanguage  = "language"
	AttrPrintDate = "printDate"
	AttrSummary   = "summary"
	AttrHeader1   = "header_1"
	AttrHeader2   = "header_2"
	AttrPageIndex = "pageIndex"
)

// FilterableAttributes lists every attribute a search may filter on.
func FilterableAttributes() []string {
	return []string{
		AttrTitle, AttrFilename, AttrFilepath, AttrLanguage,
		AttrPrintDate, AttrSummary, AttrHeader1, AttrHeader2, AttrPageIndex,
	}
}

// SearchFilter restricts search results on one attribute.
type SearchFilter struct {
	// Attribute is one of FilterableAttributes.
	Attribute string

	// Op is the comparison.
	Op FilterOp

	// Value is compared against the attribute.
	Value string
}

// SearchQuery configures a search over published chunks.
type SearchQuery struct {
	// Text is matched against the chunk text; empty matches every chunk.
	Text string

	// Filters are combined with AND.
	Filters []SearchFilter

	// Limit is the maximum number of results.
	Limit int
}

// SearchHit represents a single search result.
type SearchHit struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the relevance score (higher is better).
	Score float64
}

// PublishState describes the last publication to the search index.
type PublishState struct {
	// PublishedAt is when the chunk set was last published.
	PublishedAt time.Time

	// Chunks is the number of chunks published.
	Chunks int
}

// Staleness returns how long ago the index was published relative to now.
func (s PublishState) Staleness(now time.Time) time.Duration {
	if s.PublishedAt.IsZero() {
		return 0
	}
	return now.Sub(s.PublishedAt)
}
