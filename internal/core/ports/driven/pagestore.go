package driven

import (
	"context"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// PageStore persists the per-page records of every Document.
// Writes to canonical-page fields are guarded: they only succeed while the
// field is still null, so concurrent or repeated runs converge.
type PageStore interface {
	// SavePages creates every page of a new Document in one transaction.
	// Returns domain.ErrAlreadyExists if the Document is already stored.
	SavePages(ctx context.Context, pages []domain.Page) error

	// HasDocument reports whether any page of the Document is stored.
	HasDocument(ctx context.Context, key domain.DocumentKey) (bool, error)

	// ListDocuments returns the canonical view of every matching Document,
	// ordered by filepath.
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// GetPages returns every page of a Document ordered by page index.
	GetPages(ctx context.Context, key domain.DocumentKey) ([]domain.Page, error)

	// LeadingPages returns up to n pages from index 0, ordered by page index.
	LeadingPages(ctx context.Context, key domain.DocumentKey, n int) ([]domain.Page, error)

	// SetMetadata writes title, print date and language to the canonical
	// page if its title is still null. Returns false when the guard failed.
	SetMetadata(ctx context.Context, key domain.DocumentKey, title, printDate, language *string) (bool, error)

	// SetSummary writes the summary to the canonical page if it is still null.
	SetSummary(ctx context.Context, key domain.DocumentKey, summary string) (bool, error)

	// SetSignatures writes the validated list (nil for none) to the canonical
	// page and marks signature extraction as done, if not done already.
	SetSignatures(ctx context.Context, key domain.DocumentKey, signatures []domain.Signature) (bool, error)

	// Propagate copies every non-null canonical field to the other pages of
	// the Document where that field is null. Returns the number of pages changed.
	Propagate(ctx context.Context, key domain.DocumentKey) (int, error)
}

// ChunkStore persists the current chunk set.
type ChunkStore interface {
	// ReplaceChunks atomically swaps the chunks of the given Documents for
	// the new set. Chunks for Documents not listed are left untouched.
	ReplaceChunks(ctx context.Context, keys []domain.DocumentKey, chunks []domain.Chunk) error

	// GetChunks returns the chunks of a Document ordered by page then chunk index.
	GetChunks(ctx context.Context, key domain.DocumentKey) ([]domain.Chunk, error)

	// ListChunks returns every stored chunk in identity order.
	ListChunks(ctx context.Context) ([]domain.Chunk, error)

	// CountChunks returns the number of chunks per Document.
	CountChunks(ctx context.Context) (map[domain.DocumentKey]int, error)
}

// RunStore persists the pipeline run ledger.
type RunStore interface {
	// SaveRun records a finished run.
	SaveRun(ctx context.Context, run domain.RunReport) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error)
}
