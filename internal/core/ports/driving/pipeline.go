package driving

import (
	"context"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// PipelineService runs the enrichment and chunking pipeline.
type PipelineService interface {
	// Run executes the selected stages over every matching Document.
	// Per-document AI failures are counted in the report, not returned.
	Run(ctx context.Context, opts domain.RunOptions) (*domain.RunReport, error)

	// History returns the most recent runs, newest first.
	History(ctx context.Context, limit int) ([]domain.RunReport, error)
}

// IngestService parses staged files into the Document store.
type IngestService interface {
	// Ingest parses every supported file under root that is not stored yet.
	Ingest(ctx context.Context, root string) (*domain.IngestReport, error)
}

// StatusService reports per-document enrichment progress.
type StatusService interface {
	// Status returns the enrichment state of every matching Document.
	Status(ctx context.Context, filter domain.DocumentFilter) ([]domain.DocumentStatus, error)

	// Chunks returns the current chunks of one Document.
	Chunks(ctx context.Context, key domain.DocumentKey) ([]domain.Chunk, error)
}
