package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// PublishService feeds the current chunk set to the search index.
type PublishService struct {
	chunks    driven.ChunkStore
	publisher driven.IndexPublisher
	targetLag time.Duration
	now       func() time.Time
}

// NewPublishService creates a publish service. The publisher may be nil,
// in which case publishing is disabled.
func NewPublishService(chunks driven.ChunkStore, publisher driven.IndexPublisher, targetLag time.Duration) *PublishService {
	return &PublishService{
		chunks:    chunks,
		publisher: publisher,
		targetLag: targetLag,
		now:       time.Now,
	}
}

// Enabled reports whether a publisher is configured.
func (s *PublishService) Enabled() bool {
	return s.publisher != nil
}

// TargetLag returns the configured maximum staleness of the index.
func (s *PublishService) TargetLag() time.Duration {
	return s.targetLag
}

// Run replaces the published set with every stored chunk.
func (s *PublishService) Run(ctx context.Context) (domain.StageReport, error) {
	start := time.Now()
	report := domain.StageReport{Stage: domain.StagePublish}
	if s.publisher == nil {
		return report, domain.ErrIndexUnavailable
	}

	chunks, err := s.chunks.ListChunks(ctx)
	if err != nil {
		return report, fmt.Errorf("list chunks: %w", err)
	}
	report.Selected = len(chunks)
	logger.Stage(string(domain.StagePublish), len(chunks))

	if err := s.publisher.Publish(ctx, chunks); err != nil {
		return report, fmt.Errorf("publish: %w", err)
	}
	report.Processed = len(chunks)
	report.Duration = time.Since(start)
	logger.Info("publish: %d chunks", len(chunks))
	return report, nil
}

// Stale reports whether the index is older than the target lag.
func (s *PublishService) Stale(ctx context.Context) (bool, error) {
	if s.publisher == nil {
		return false, domain.ErrIndexUnavailable
	}
	state, err := s.publisher.State(ctx)
	if err != nil {
		return false, fmt.Errorf("publish state: %w", err)
	}
	if state.PublishedAt.IsZero() {
		return true, nil
	}
	return state.Staleness(s.now()) >= s.targetLag, nil
}
