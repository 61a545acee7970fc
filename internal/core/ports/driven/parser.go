package driven

import (
	"context"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// ParsedPage is one page of parser output.
type ParsedPage struct {
	// Index is the 0-based page index.
	Index int

	// Content is the extracted page text.
	Content string
}

// ParseResult is the output of parsing one staged file.
type ParseResult struct {
	// PageCount is the number of pages in the file.
	PageCount int

	// Pages holds one entry per page, ordered by index.
	Pages []ParsedPage
}

// Parser turns a staged file into pages of text.
type Parser interface {
	// Parse extracts the pages of the file at path.
	Parse(ctx context.Context, path string, mode domain.ParseMode) (*ParseResult, error)

	// SupportedExtensions returns the lower-case file extensions handled.
	SupportedExtensions() []string
}
