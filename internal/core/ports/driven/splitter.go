package driven

import "github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"

// Splitter divides page content into ordered, header-aware segments.
type Splitter interface {
	// Name returns the splitter name for logging and configuration.
	Name() string

	// Split returns the segments of content in order. Identical input
	// always yields identical output.
	Split(content string) []domain.Segment
}
