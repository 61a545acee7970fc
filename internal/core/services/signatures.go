package services

import (
	"context"
	"fmt"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// FieldSignatures is the extraction field holding raw signature strings.
const FieldSignatures = "signatures"

// SignatureSchema is the extraction schema for handwritten signatures.
var SignatureSchema = driven.Schema{
	{
		Name: FieldSignatures,
		Description: "Every handwritten signature in the document, one entry per signature, " +
			"formatted exactly as \"Name | Title | Date\". Use None for a missing part. " +
			"Ignore any page that is a dedicated \"Signatures Page\".",
		Array: true,
	},
}

// SignatureService extracts and validates handwritten signatures.
// Documents above the page ceiling are skipped; there is no text fallback.
type SignatureService struct {
	pages       driven.PageStore
	queue       *WorkQueue
	extractor   driven.Extractor
	stagingDir  string
	ceiling     int
	concurrency int
}

// NewSignatureService creates a signature service.
func NewSignatureService(
	pages driven.PageStore,
	extractor driven.Extractor,
	stagingDir string,
	ceiling, concurrency int,
) *SignatureService {
	return &SignatureService{
		pages:       pages,
		queue:       NewWorkQueue(pages),
		extractor:   extractor,
		stagingDir:  stagingDir,
		ceiling:     ceiling,
		concurrency: concurrency,
	}
}

// Run extracts signatures for every matching Document not checked yet.
func (s *SignatureService) Run(ctx context.Context, filter domain.DocumentFilter) (domain.StageReport, error) {
	docs, err := s.queue.Select(ctx, filter, NeedsSignatures)
	if err != nil {
		return domain.StageReport{Stage: domain.StageSignatures}, err
	}
	return forEachDocument(ctx, domain.StageSignatures, docs, s.concurrency, s.process)
}

func (s *SignatureService) process(ctx context.Context, doc domain.Document) (outcome, error) {
	if doc.PageCount > s.ceiling {
		logger.Debug("signatures %s: %d pages over ceiling %d", doc.DocumentKey, doc.PageCount, s.ceiling)
		return outcomeSkipped, nil
	}

	res, err := s.extractor.ExtractFile(ctx, StagedPath(s.stagingDir, doc.DocumentKey), SignatureSchema)
	if err != nil {
		if isFatal(err) {
			return outcomeFailed, err
		}
		logger.Warn("signatures %s: %v", doc.DocumentKey, err)
		return outcomeFailed, nil
	}
	if res == nil || res.Response == nil {
		logger.Warn("signatures %s: %v", doc.DocumentKey, domain.ErrEmptyResponse)
		return outcomeFailed, nil
	}

	raw := res.Strings(FieldSignatures)
	valid := domain.ValidSignatures(raw)
	if dropped := len(raw) - len(valid); dropped > 0 {
		logger.Debug("signatures %s: dropped %d incomplete of %d", doc.DocumentKey, dropped, len(raw))
	}

	written, err := s.pages.SetSignatures(ctx, doc.DocumentKey, valid)
	if err != nil {
		return outcomeFailed, fmt.Errorf("set signatures: %w", err)
	}
	if !written {
		return outcomeUnchanged, nil
	}
	return outcomeProcessed, nil
}
