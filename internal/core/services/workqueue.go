package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Predicate decides whether a Document still needs a stage's output.
type Predicate func(doc domain.Document) bool

// NeedsMetadata selects Documents whose canonical title is null.
func NeedsMetadata(doc domain.Document) bool { return doc.Title == nil }

// NeedsSummary selects Documents whose canonical summary is null.
func NeedsSummary(doc domain.Document) bool { return doc.Summary == nil }

// NeedsSignatures selects Documents whose signatures were never checked.
func NeedsSignatures(doc domain.Document) bool {
	return doc.Signatures == nil && doc.SignaturesCheckedAt == nil
}

// HasTitle selects Documents whose metadata can be propagated.
func HasTitle(doc domain.Document) bool { return doc.Title != nil }

// WorkQueue selects the Documents a stage must act on.
type WorkQueue struct {
	pages driven.PageStore
}

// NewWorkQueue creates a work queue over the page store.
func NewWorkQueue(pages driven.PageStore) *WorkQueue {
	return &WorkQueue{pages: pages}
}

// Select returns every Document matching the filter and the predicate.
func (q *WorkQueue) Select(ctx context.Context, filter domain.DocumentFilter, pred Predicate) ([]domain.Document, error) {
	docs, err := q.pages.ListDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	selected := docs[:0]
	for _, doc := range docs {
		if pred == nil || pred(doc) {
			selected = append(selected, doc)
		}
	}
	return selected, nil
}

// outcome is the per-document result of a stage.
type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeUnchanged
)

// docFunc handles one Document. A returned error is fatal to the stage.
type docFunc func(ctx context.Context, doc domain.Document) (outcome, error)

// forEachDocument runs fn over docs with at most concurrency in flight and
// tallies the outcomes into a report. The first fatal error cancels the rest.
func forEachDocument(
	ctx context.Context,
	stage domain.Stage,
	docs []domain.Document,
	concurrency int,
	fn docFunc,
) (domain.StageReport, error) {
	start := time.Now()
	report := domain.StageReport{Stage: stage, Selected: len(docs)}
	logger.Stage(string(stage), len(docs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for _, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fn(gctx, doc)
			if err != nil {
				return fmt.Errorf("%s %s: %w", stage, doc.DocumentKey, err)
			}
			mu.Lock()
			defer mu.Unlock()
			switch res {
			case outcomeProcessed:
				report.Processed++
			case outcomeFailed:
				report.Failed++
			case outcomeSkipped:
				report.Skipped++
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	report.Duration = time.Since(start)
	logger.Info("%s: %d processed, %d failed, %d skipped of %d",
		stage, report.Processed, report.Failed, report.Skipped, report.Selected)
	return report, err
}
