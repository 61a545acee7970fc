package services

import (
	"context"
	"fmt"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Propagator copies canonical metadata to the other pages of each Document.
type Propagator struct {
	pages driven.PageStore
	queue *WorkQueue
}

// NewPropagator creates a propagator.
func NewPropagator(pages driven.PageStore) *Propagator {
	return &Propagator{pages: pages, queue: NewWorkQueue(pages)}
}

// Run propagates every matching Document whose canonical title is set.
// Documents run one at a time; the only failures are storage errors.
func (p *Propagator) Run(ctx context.Context, filter domain.DocumentFilter) (domain.StageReport, error) {
	docs, err := p.queue.Select(ctx, filter, HasTitle)
	if err != nil {
		return domain.StageReport{Stage: domain.StagePropagate}, err
	}
	return forEachDocument(ctx, domain.StagePropagate, docs, 1, func(ctx context.Context, doc domain.Document) (outcome, error) {
		changed, err := p.pages.Propagate(ctx, doc.DocumentKey)
		if err != nil {
			return outcomeFailed, fmt.Errorf("propagate: %w", err)
		}
		if changed == 0 {
			return outcomeUnchanged, nil
		}
		logger.Debug("propagate %s: %d pages updated", doc.DocumentKey, changed)
		return outcomeProcessed, nil
	})
}
