package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// Ingestor parses staged files into pages. Files already stored are left
// alone, so ingesting the same tree twice is a no-op.
type Ingestor struct {
	pages       driven.PageStore
	parser      driven.Parser
	stagingDir  string
	mode        domain.ParseMode
	concurrency int
}

// NewIngestor creates an ingestor for files under stagingDir.
func NewIngestor(
	pages driven.PageStore,
	parser driven.Parser,
	stagingDir string,
	mode domain.ParseMode,
	concurrency int,
) *Ingestor {
	return &Ingestor{
		pages:       pages,
		parser:      parser,
		stagingDir:  stagingDir,
		mode:        mode,
		concurrency: concurrency,
	}
}

// Ingest parses every supported file under root. A relative root is
// resolved against the staging directory.
func (i *Ingestor) Ingest(ctx context.Context, root string) (*domain.IngestReport, error) {
	if !filepath.IsAbs(root) {
		root = filepath.Join(i.stagingDir, root)
	}
	files, err := i.collect(root)
	if err != nil {
		return nil, err
	}
	logger.Section("Ingest")
	logger.Debug("%d candidate files under %s", len(files), root)

	var (
		mu     sync.Mutex
		report domain.IngestReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(i.concurrency, 1))

	for _, file := range files {
		g.Go(func() error {
			key, err := i.keyFor(file)
			if err != nil {
				return err
			}
			exists, err := i.pages.HasDocument(gctx, key)
			if err != nil {
				return fmt.Errorf("lookup %s: %w", key, err)
			}
			if exists {
				mu.Lock()
				report.Existing++
				mu.Unlock()
				return nil
			}

			pages, err := i.parse(gctx, file, key)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warn("ingest %s: %v", key, err)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}

			switch err := i.pages.SavePages(gctx, pages); {
			case errors.Is(err, domain.ErrAlreadyExists):
				mu.Lock()
				report.Existing++
				mu.Unlock()
			case err != nil:
				return fmt.Errorf("save %s: %w", key, err)
			default:
				logger.Debug("ingest %s: %d pages", key, len(pages))
				mu.Lock()
				report.Created++
				report.Pages += len(pages)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &report, err
	}
	logger.Info("ingest: %d created, %d existing, %d failed", report.Created, report.Existing, report.Failed)
	return &report, nil
}

// collect returns every supported file under root in lexical order.
func (i *Ingestor) collect(root string) ([]string, error) {
	exts := i.parser.SupportedExtensions()
	supported := func(path string) bool {
		return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", domain.ErrInvalidInput, root, err)
	}
	return files, nil
}

// keyFor derives the Document key from the path relative to the staging dir.
func (i *Ingestor) keyFor(file string) (domain.DocumentKey, error) {
	rel, err := filepath.Rel(i.stagingDir, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return domain.DocumentKey{}, fmt.Errorf("%w: %s is outside the staging directory", domain.ErrInvalidInput, file)
	}
	return domain.NewDocumentKey(filepath.ToSlash(rel)), nil
}

func (i *Ingestor) parse(ctx context.Context, file string, key domain.DocumentKey) ([]domain.Page, error) {
	res, err := i.parser.Parse(ctx, file, i.mode)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", domain.ErrInvalidInput)
	}

	if res.PageCount != len(res.Pages) {
		logger.Debug("ingest %s: parser reported %d pages, returned %d", key, res.PageCount, len(res.Pages))
	}
	count := len(res.Pages)
	pages := make([]domain.Page, len(res.Pages))
	for idx, p := range res.Pages {
		if p.Index != idx {
			return nil, fmt.Errorf("%w: page %d out of order", domain.ErrMalformedResponse, p.Index)
		}
		pages[idx] = domain.Page{
			DocumentKey: key,
			PageIndex:   idx,
			PageCount:   count,
			Content:     p.Content,
		}
	}
	return pages, nil
}
