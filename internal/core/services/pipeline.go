package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// enrichmentStage is a stage that reads and writes canonical pages.
type enrichmentStage interface {
	Run(ctx context.Context, filter domain.DocumentFilter) (domain.StageReport, error)
}

// Pipeline runs the stages in order and records each run.
// Metadata and summary run concurrently, then signatures. Propagation
// waits for all three so it never races canonical writes.
type Pipeline struct {
	metadata   *MetadataService
	summary    *SummaryService
	signatures *SignatureService
	propagator *Propagator
	chunker    *ChunkService
	publisher  *PublishService
	runs       driven.RunStore

	running sync.Mutex
}

// PipelineConfig holds the stage services. Nil enrichment services and a
// disabled publisher mark their stages as unavailable.
type PipelineConfig struct {
	Metadata   *MetadataService
	Summary    *SummaryService
	Signatures *SignatureService
	Propagator *Propagator
	Chunker    *ChunkService
	Publisher  *PublishService
	Runs       driven.RunStore
}

// NewPipeline creates a pipeline from its stage services.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		metadata:   cfg.Metadata,
		summary:    cfg.Summary,
		signatures: cfg.Signatures,
		propagator: cfg.Propagator,
		chunker:    cfg.Chunker,
		publisher:  cfg.Publisher,
		runs:       cfg.Runs,
	}
}

// Run executes the selected stages. Stages whose backing service is not
// configured are skipped, unless they were requested explicitly.
func (p *Pipeline) Run(ctx context.Context, opts domain.RunOptions) (*domain.RunReport, error) {
	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}
	if !p.running.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer p.running.Unlock()

	report := &domain.RunReport{
		ID:        uuid.New().String(),
		Filter:    opts.Filter.Folder,
		StartedAt: time.Now(),
	}
	logger.Section("Pipeline run " + report.ID)

	err := p.run(ctx, opts, report)

	report.EndedAt = time.Now()
	if err != nil {
		report.Error = err.Error()
	}
	if p.runs != nil {
		// The ledger must survive a cancelled run.
		if saveErr := p.runs.SaveRun(context.WithoutCancel(ctx), *report); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("save run: %w", saveErr))
		}
	}
	return report, err
}

func (p *Pipeline) run(ctx context.Context, opts domain.RunOptions, report *domain.RunReport) error {
	explicit := len(opts.Stages) > 0
	results := make(map[domain.Stage]domain.StageReport)
	var mu sync.Mutex
	record := func(r domain.StageReport) {
		mu.Lock()
		defer mu.Unlock()
		results[r.Stage] = r
	}
	defer func() {
		for _, s := range domain.AllStages() {
			if r, ok := results[s]; ok {
				report.Stages = append(report.Stages, r)
			}
		}
	}()

	stage := func(s domain.Stage, svc enrichmentStage, unavailable error) (enrichmentStage, error) {
		if !opts.Includes(s) {
			return nil, nil
		}
		if svc == nil {
			if explicit {
				return nil, fmt.Errorf("%s: %w", s, unavailable)
			}
			logger.Warn("%s: skipped, %v", s, unavailable)
			return nil, nil
		}
		return svc, nil
	}

	enrichers := p.enrichers()
	metadata, err := stage(domain.StageMetadata, enrichers[domain.StageMetadata], domain.ErrExtractorUnavailable)
	if err != nil {
		return err
	}
	summary, err := stage(domain.StageSummary, enrichers[domain.StageSummary], domain.ErrSummariserUnavailable)
	if err != nil {
		return err
	}
	signatures, err := stage(domain.StageSignatures, enrichers[domain.StageSignatures], domain.ErrExtractorUnavailable)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range []enrichmentStage{metadata, summary} {
		if svc == nil {
			continue
		}
		g.Go(func() error {
			r, err := svc.Run(gctx, opts.Filter)
			record(r)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if signatures != nil {
		r, err := signatures.Run(ctx, opts.Filter)
		record(r)
		if err != nil {
			return err
		}
	}

	if opts.Includes(domain.StagePropagate) && p.propagator != nil {
		r, err := p.propagator.Run(ctx, opts.Filter)
		record(r)
		if err != nil {
			return err
		}
	}

	if opts.Includes(domain.StageChunk) && p.chunker != nil {
		r, err := p.chunker.Run(ctx, opts.Filter)
		record(r)
		if err != nil {
			return err
		}
	}

	if opts.Includes(domain.StagePublish) {
		switch {
		case p.publisher != nil && p.publisher.Enabled():
			r, err := p.publisher.Run(ctx)
			record(r)
			if err != nil {
				return err
			}
		case explicit:
			return fmt.Errorf("%s: %w", domain.StagePublish, domain.ErrIndexUnavailable)
		default:
			logger.Warn("%s: skipped, %v", domain.StagePublish, domain.ErrIndexUnavailable)
		}
	}

	return nil
}

// History returns the most recent runs, newest first.
func (p *Pipeline) History(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if p.runs == nil {
		return nil, nil
	}
	return p.runs.ListRuns(ctx, limit)
}

// enrichers returns the configured enrichment services by stage.
// Unconfigured services are absent so callers see a nil interface.
func (p *Pipeline) enrichers() map[domain.Stage]enrichmentStage {
	m := make(map[domain.Stage]enrichmentStage, 3)
	if p.metadata != nil {
		m[domain.StageMetadata] = p.metadata
	}
	if p.summary != nil {
		m[domain.StageSummary] = p.summary
	}
	if p.signatures != nil {
		m[domain.StageSignatures] = p.signatures
	}
	return m
}
