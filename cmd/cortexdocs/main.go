// Command cortexdocs enriches, chunks and indexes staged PDF documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/config/file"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/parser/pdf"
	searchsqlite "github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/search/sqlite"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/storage/sqlite"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/watcher"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driving/cli"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/services"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// publishCheckInterval is how often serve checks index staleness.
const publishCheckInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	baseDir, err := file.DefaultDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	configStore, err := file.NewConfigStore(baseDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	settingsService := services.NewSettingsService(configStore, baseDir)

	svc := cli.Services{
		Version:    version,
		Settings:   settingsService,
		ValidateAI: ai.ValidateConfig,
	}

	settings, err := settingsService.Get()
	if err != nil {
		// Leave the config commands usable so the settings can be fixed.
		logger.Warn("settings: %v", err)
	} else {
		closeAll, err := wire(ctx, settings, &svc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return cli.ExitCode(err)
		}
		defer closeAll()
	}

	return cli.ExitCode(cli.Execute(ctx, svc))
}

// wire builds the stores, adapters and services from resolved settings.
func wire(ctx context.Context, settings *domain.Settings, svc *cli.Services) (func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close: %v", err)
			}
		}
	}

	store, err := sqlite.NewStore(settings.Store.DataDir, settings.Store.Namespace)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)
	pages, chunks := store.PageStore(), store.ChunkStore()

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	splitter, err := registry.FromSettings(settings.Chunker)
	if err != nil {
		closeAll()
		return nil, err
	}

	var publisher driven.IndexPublisher
	index, err := searchsqlite.New(settings.Store.DataDir, settings.Store.Namespace)
	if err != nil {
		logger.Warn("search index unavailable, publish stage disabled: %v", err)
	} else {
		closers = append(closers, index.Close)
		publisher = index
	}

	aiResult, err := ai.New(ctx, &settings.AI)
	if err != nil {
		closeAll()
		return nil, err
	}
	for _, w := range aiResult.Warnings {
		logger.Debug("%s", w)
	}
	closers = append(closers, func() error { aiResult.Close(); return nil })

	cfg := services.PipelineConfig{
		Propagator: services.NewPropagator(pages),
		Chunker:    services.NewChunkService(pages, chunks, splitter),
		Publisher:  services.NewPublishService(chunks, publisher, settings.Publish.TargetLag),
		Runs:       store.RunStore(),
	}
	if aiResult.Enabled() {
		p := settings.Pipeline
		cfg.Metadata = services.NewMetadataService(pages, services.StrategySelector{
			Ceiling: p.PageCeiling,
			File:    services.NewFileMetadataStrategy(aiResult.Extractor, settings.StagingDir),
			Text:    services.NewTextMetadataStrategy(aiResult.Extractor, pages, p.LookbackPages),
		}, p.Concurrency)
		cfg.Summary = services.NewSummaryService(pages, aiResult.Summariser,
			p.LookbackPages, p.SummaryChars, p.Concurrency, summaryOptions()...)
		cfg.Signatures = services.NewSignatureService(pages, aiResult.Extractor,
			settings.StagingDir, p.PageCeiling, p.Concurrency)
	}
	pipeline := services.NewPipeline(cfg)

	parser := pdf.New()
	ingestor := services.NewIngestor(pages, parser, settings.StagingDir, settings.ParseMode, settings.Pipeline.Concurrency)
	svc.Ingest = ingestor
	svc.Pipeline = pipeline
	svc.Status = services.NewStatusService(pages, chunks, settings.Pipeline.PageCeiling)
	if publisher != nil {
		svc.Search = services.NewSearchService(publisher)
	}

	var schedPublisher services.Publisher
	every := time.Duration(0)
	if cfg.Publisher.Enabled() {
		schedPublisher = cfg.Publisher
		every = publishCheckInterval
	}
	svc.Scheduler = services.NewScheduler(services.SchedulerConfig{
		PipelineSpec: settings.Schedule.Pipeline,
		PublishEvery: every,
		Filter:       domain.DocumentFilter{Folder: settings.Pipeline.Folder},
	}, pipeline, schedPublisher,
		services.WithIngest(ingestor),
		services.WithWatcher(watcher.New(settings.StagingDir, parser.SupportedExtensions(), watcher.DefaultDebounce)),
	)

	return closeAll, nil
}

// summaryOptions loads the user-editable summary prompt.
func summaryOptions() []services.SummaryOption {
	prompts, err := file.NewPromptStore("")
	if err != nil {
		logger.Warn("prompts: %v", err)
		return nil
	}
	instruction, err := prompts.Load(driven.PromptSummarise)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("prompts: %v", err)
		}
		return nil
	}
	return []services.SummaryOption{services.WithSummaryInstruction(instruction)}
}
