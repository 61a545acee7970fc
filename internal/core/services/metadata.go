package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Metadata field names returned by extraction.
const (
	FieldTitle     = "title"
	FieldPrintDate = "printDate"
	FieldLanguage  = "language"
)

// MetadataSchema is the extraction schema for document metadata.
var MetadataSchema = driven.Schema{
	{Name: FieldTitle, Description: "The title of the document."},
	{Name: FieldPrintDate, Description: "The print date or effective date of the document, in YYYY-MM-DD format when possible."},
	{Name: FieldLanguage, Description: "The primary language of the document, as an English language name."},
}

// pageSeparator joins page texts sent to text-based extraction.
const pageSeparator = "\n\n"

// MetadataStrategy extracts title, print date and language for one Document.
type MetadataStrategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Extract runs the extraction call for the Document.
	Extract(ctx context.Context, doc domain.Document) (*driven.ExtractResult, error)
}

// FileMetadataStrategy extracts against the original staged file.
type FileMetadataStrategy struct {
	extractor  driven.Extractor
	stagingDir string
}

// NewFileMetadataStrategy creates a strategy reading files under stagingDir.
func NewFileMetadataStrategy(extractor driven.Extractor, stagingDir string) *FileMetadataStrategy {
	return &FileMetadataStrategy{extractor: extractor, stagingDir: stagingDir}
}

// Name returns the strategy name.
func (s *FileMetadataStrategy) Name() string { return "file" }

// Extract sends the staged file to the extractor.
func (s *FileMetadataStrategy) Extract(ctx context.Context, doc domain.Document) (*driven.ExtractResult, error) {
	return s.extractor.ExtractFile(ctx, StagedPath(s.stagingDir, doc.DocumentKey), MetadataSchema)
}

// TextMetadataStrategy extracts against the text of the leading pages.
type TextMetadataStrategy struct {
	extractor driven.Extractor
	pages     driven.PageStore
	lookback  int
}

// NewTextMetadataStrategy creates a strategy reading the first lookback pages.
func NewTextMetadataStrategy(extractor driven.Extractor, pages driven.PageStore, lookback int) *TextMetadataStrategy {
	return &TextMetadataStrategy{extractor: extractor, pages: pages, lookback: lookback}
}

// Name returns the strategy name.
func (s *TextMetadataStrategy) Name() string { return "text" }

// Extract sends the concatenated leading pages to the extractor.
func (s *TextMetadataStrategy) Extract(ctx context.Context, doc domain.Document) (*driven.ExtractResult, error) {
	text, err := LeadingText(ctx, s.pages, doc.DocumentKey, s.lookback)
	if err != nil {
		return nil, err
	}
	return s.extractor.ExtractText(ctx, text, MetadataSchema)
}

// StrategySelector picks exactly one strategy per Document by page count.
type StrategySelector struct {
	// Ceiling is the largest page count sent as a file.
	Ceiling int

	// File handles Documents at or below the ceiling.
	File MetadataStrategy

	// Text handles Documents above the ceiling.
	Text MetadataStrategy
}

// Select returns the strategy for the Document.
func (s StrategySelector) Select(doc domain.Document) MetadataStrategy {
	if doc.PageCount <= s.Ceiling {
		return s.File
	}
	return s.Text
}

// MetadataService fills title, print date and language on canonical pages.
type MetadataService struct {
	pages       driven.PageStore
	queue       *WorkQueue
	selector    StrategySelector
	concurrency int
}

// NewMetadataService creates a metadata service.
func NewMetadataService(pages driven.PageStore, selector StrategySelector, concurrency int) *MetadataService {
	return &MetadataService{
		pages:       pages,
		queue:       NewWorkQueue(pages),
		selector:    selector,
		concurrency: concurrency,
	}
}

// Run extracts metadata for every matching Document whose title is null.
func (s *MetadataService) Run(ctx context.Context, filter domain.DocumentFilter) (domain.StageReport, error) {
	docs, err := s.queue.Select(ctx, filter, NeedsMetadata)
	if err != nil {
		return domain.StageReport{Stage: domain.StageMetadata}, err
	}
	return forEachDocument(ctx, domain.StageMetadata, docs, s.concurrency, s.process)
}

func (s *MetadataService) process(ctx context.Context, doc domain.Document) (outcome, error) {
	strategy := s.selector.Select(doc)
	logger.Debug("metadata %s: %d pages, %s strategy", doc.DocumentKey, doc.PageCount, strategy.Name())

	res, err := strategy.Extract(ctx, doc)
	if err != nil {
		if isFatal(err) {
			return outcomeFailed, err
		}
		logger.Warn("metadata %s: %v", doc.DocumentKey, err)
		return outcomeFailed, nil
	}

	title, ok := res.String(FieldTitle)
	if !ok {
		logger.Warn("metadata %s: %v: no title", doc.DocumentKey, domain.ErrEmptyResponse)
		return outcomeFailed, nil
	}
	printDate, _ := res.String(FieldPrintDate)
	language, _ := res.String(FieldLanguage)

	written, err := s.pages.SetMetadata(ctx, doc.DocumentKey,
		&title, domain.StringPtr(printDate), domain.StringPtr(language))
	if err != nil {
		return outcomeFailed, fmt.Errorf("set metadata: %w", err)
	}
	if !written {
		logger.Debug("metadata %s: already set", doc.DocumentKey)
		return outcomeUnchanged, nil
	}
	return outcomeProcessed, nil
}

// StagedPath resolves a Document to its file under the staging directory.
func StagedPath(stagingDir string, key domain.DocumentKey) string {
	return filepath.Join(stagingDir, filepath.FromSlash(key.Filepath))
}

// LeadingText concatenates the first n pages of a Document in page order.
func LeadingText(ctx context.Context, pages driven.PageStore, key domain.DocumentKey, n int) (string, error) {
	lead, err := pages.LeadingPages(ctx, key, n)
	if err != nil {
		return "", fmt.Errorf("leading pages: %w", err)
	}
	texts := make([]string, 0, len(lead))
	for _, p := range lead {
		texts = append(texts, p.Content)
	}
	return strings.Join(texts, pageSeparator), nil
}

// isFatal reports whether an error should abort the stage instead of being
// counted against one Document.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrStorageUnavailable) ||
		errors.Is(err, domain.ErrInvalidConfig) ||
		errors.Is(err, context.Canceled)
}
