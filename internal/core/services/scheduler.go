package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Publisher is the publishing surface the scheduler drives.
type Publisher interface {
	Stale(ctx context.Context) (bool, error)
	Run(ctx context.Context) (domain.StageReport, error)
}

// SchedulerConfig configures background runs.
type SchedulerConfig struct {
	// PipelineSpec is a cron expression for full pipeline runs.
	// Empty disables scheduled runs.
	PipelineSpec string

	// PublishEvery is how often index staleness is checked.
	// Zero disables scheduled publishing.
	PublishEvery time.Duration

	// Filter restricts scheduled pipeline runs.
	Filter domain.DocumentFilter
}

// Scheduler runs the pipeline on a cron schedule and republishes the index
// whenever it is older than the target lag. With an ingest service it also
// ingests the staging directory at start-up, before every scheduled run,
// and whenever the watcher reports a new file.
type Scheduler struct {
	config    SchedulerConfig
	pipeline  driving.PipelineService
	publisher Publisher
	ingest    driving.IngestService
	watcher   driven.StagingWatcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	cron    *cron.Cron
	wg      sync.WaitGroup
}

// SchedulerOption configures optional scheduler collaborators.
type SchedulerOption func(*Scheduler)

// WithIngest makes the scheduler ingest staged files.
func WithIngest(ingest driving.IngestService) SchedulerOption {
	return func(s *Scheduler) { s.ingest = ingest }
}

// WithWatcher ingests files as the watcher reports them. It has no effect
// without WithIngest.
func WithWatcher(w driven.StagingWatcher) SchedulerOption {
	return func(s *Scheduler) { s.watcher = w }
}

// NewScheduler creates a scheduler. The publisher may be nil.
func NewScheduler(config SchedulerConfig, pipeline driving.PipelineService, publisher Publisher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		config:    config,
		pipeline:  pipeline,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the tasks and blocks until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}

	c := cron.New()
	if s.config.PipelineSpec != "" {
		if _, err := c.AddFunc(s.config.PipelineSpec, func() { s.runPipeline(ctx) }); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: schedule.pipeline %q: %w", domain.ErrInvalidConfig, s.config.PipelineSpec, err)
		}
		logger.Info("scheduler: pipeline on %q", s.config.PipelineSpec)
	}
	if s.publisher != nil && s.config.PublishEvery > 0 {
		spec := "@every " + s.config.PublishEvery.String()
		if _, err := c.AddFunc(spec, func() { s.runPublish(ctx) }); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: publish interval: %w", domain.ErrInvalidConfig, err)
		}
		logger.Info("scheduler: publish check %s", spec)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	var events <-chan string
	if s.ingest != nil && s.watcher != nil {
		var err error
		if events, err = s.watcher.Watch(taskCtx); err != nil {
			cancel()
			s.mu.Unlock()
			return fmt.Errorf("watch staging: %w", err)
		}
		logger.Info("scheduler: watching staging directory")
	}

	s.cron = c
	s.cancel = cancel
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if s.ingest != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ingestStaged(taskCtx, ".")
			if events == nil {
				return
			}
			for path := range events {
				s.ingestStaged(taskCtx, path)
			}
		}()
	}
	c.Start()

	select {
	case <-ctx.Done():
		s.halt()
		return ctx.Err()
	case <-stopCh:
		return nil
	}
}

// Stop gracefully shuts down the scheduler, waiting for running tasks.
func (s *Scheduler) Stop() error {
	s.halt()
	return nil
}

func (s *Scheduler) halt() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	c := s.cron
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	s.wg.Wait()
}

// ingestStaged ingests root, a staged file or folder. Failures are logged;
// the next trigger retries.
func (s *Scheduler) ingestStaged(ctx context.Context, root string) {
	if s.ingest == nil {
		return
	}
	report, err := s.ingest.Ingest(ctx, root)
	switch {
	case ctx.Err() != nil:
	case err != nil:
		logger.Error("scheduler: ingest %s: %v", root, err)
	case report.Created > 0 || report.Failed > 0:
		logger.Info("scheduler: ingest %s: %d created, %d failed", root, report.Created, report.Failed)
	}
}

// runPipeline executes one scheduled pipeline run.
func (s *Scheduler) runPipeline(ctx context.Context) {
	s.ingestStaged(ctx, ".")
	report, err := s.pipeline.Run(ctx, domain.RunOptions{Filter: s.config.Filter})
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		logger.Debug("scheduler: pipeline already running")
	case err != nil:
		logger.Error("scheduler: pipeline run failed: %v", err)
	default:
		logger.Info("scheduler: pipeline run %s finished", report.ID)
	}
}

// runPublish republishes the index if it is stale.
func (s *Scheduler) runPublish(ctx context.Context) {
	stale, err := s.publisher.Stale(ctx)
	if err != nil {
		logger.Error("scheduler: publish state: %v", err)
		return
	}
	if !stale {
		return
	}
	if _, err := s.publisher.Run(ctx); err != nil {
		logger.Error("scheduler: publish failed: %v", err)
	}
}
