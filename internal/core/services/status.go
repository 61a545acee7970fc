package services

import (
	"context"
	"fmt"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

// StatusService reports which derived fields each Document carries.
type StatusService struct {
	pages   driven.PageStore
	chunks  driven.ChunkStore
	ceiling int
}

// NewStatusService creates a status service.
func NewStatusService(pages driven.PageStore, chunks driven.ChunkStore, ceiling int) *StatusService {
	return &StatusService{pages: pages, chunks: chunks, ceiling: ceiling}
}

// Status returns the enrichment state of every matching Document.
func (s *StatusService) Status(ctx context.Context, filter domain.DocumentFilter) ([]domain.DocumentStatus, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	docs, err := s.pages.ListDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	counts, err := s.chunks.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	statuses := make([]domain.DocumentStatus, 0, len(docs))
	for _, doc := range docs {
		pages, err := s.pages.GetPages(ctx, doc.DocumentKey)
		if err != nil {
			return nil, fmt.Errorf("get pages %s: %w", doc.DocumentKey, err)
		}
		statuses = append(statuses, domain.DocumentStatus{
			DocumentKey:       doc.DocumentKey,
			PageCount:         doc.PageCount,
			HasTitle:          doc.Title != nil,
			HasPrintDate:      doc.PrintDate != nil,
			HasLanguage:       doc.Language != nil,
			HasSummary:        doc.Summary != nil,
			HasSignatures:     len(doc.Signatures) > 0,
			SignatureCount:    len(doc.Signatures),
			SignaturesChecked: doc.SignaturesCheckedAt != nil,
			OverCeiling:       doc.PageCount > s.ceiling,
			PagesInSync:       pagesInSync(doc, pages),
			Chunks:            counts[doc.DocumentKey],
		})
	}
	return statuses, nil
}

// Chunks returns the current chunks of one Document.
func (s *StatusService) Chunks(ctx context.Context, key domain.DocumentKey) ([]domain.Chunk, error) {
	ok, err := s.pages.HasDocument(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return s.chunks.GetChunks(ctx, key)
}

// pagesInSync reports whether every page carries the canonical metadata.
func pagesInSync(doc domain.Document, pages []domain.Page) bool {
	for _, p := range pages {
		if !p.Metadata.Equal(doc.Metadata) {
			return false
		}
	}
	return true
}
