package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// SummaryService fills the summary on canonical pages.
type SummaryService struct {
	pages       driven.PageStore
	queue       *WorkQueue
	summariser  driven.Summariser
	lookback    int
	maxChars    int
	concurrency int
	instruction string
}

// SummaryOption configures a SummaryService.
type SummaryOption func(*SummaryService)

// WithSummaryInstruction replaces the instruction placed before the text.
// A blank instruction keeps the default.
func WithSummaryInstruction(instruction string) SummaryOption {
	return func(s *SummaryService) {
		if strings.TrimSpace(instruction) != "" {
			s.instruction = strings.TrimSpace(instruction)
		}
	}
}

// NewSummaryService creates a summary service. Input is the first lookback
// pages truncated to maxChars characters.
func NewSummaryService(
	pages driven.PageStore,
	summariser driven.Summariser,
	lookback, maxChars, concurrency int,
	opts ...SummaryOption,
) *SummaryService {
	s := &SummaryService{
		pages:       pages,
		queue:       NewWorkQueue(pages),
		summariser:  summariser,
		lookback:    lookback,
		maxChars:    maxChars,
		concurrency: concurrency,
		instruction: domain.DefaultSummaryInstruction,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run summarises every matching Document whose summary is null.
func (s *SummaryService) Run(ctx context.Context, filter domain.DocumentFilter) (domain.StageReport, error) {
	docs, err := s.queue.Select(ctx, filter, NeedsSummary)
	if err != nil {
		return domain.StageReport{Stage: domain.StageSummary}, err
	}
	return forEachDocument(ctx, domain.StageSummary, docs, s.concurrency, s.process)
}

func (s *SummaryService) process(ctx context.Context, doc domain.Document) (outcome, error) {
	text, err := LeadingText(ctx, s.pages, doc.DocumentKey, s.lookback)
	if err != nil {
		return outcomeFailed, err
	}
	text = Truncate(text, s.maxChars)
	if strings.TrimSpace(text) == "" {
		logger.Debug("summary %s: no text", doc.DocumentKey)
		return outcomeSkipped, nil
	}

	summary, err := s.summariser.Summarise(ctx, buildSummaryPrompt(s.instruction, text))
	if err != nil {
		if isFatal(err) {
			return outcomeFailed, err
		}
		logger.Warn("summary %s: %v", doc.DocumentKey, err)
		return outcomeFailed, nil
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		logger.Warn("summary %s: %v", doc.DocumentKey, domain.ErrEmptyResponse)
		return outcomeFailed, nil
	}

	written, err := s.pages.SetSummary(ctx, doc.DocumentKey, summary)
	if err != nil {
		return outcomeFailed, fmt.Errorf("set summary: %w", err)
	}
	if !written {
		return outcomeUnchanged, nil
	}
	return outcomeProcessed, nil
}

// SummaryPrompt builds the summarisation prompt for already-truncated text.
func SummaryPrompt(text string) string {
	return buildSummaryPrompt(domain.DefaultSummaryInstruction, text)
}

func buildSummaryPrompt(instruction, text string) string {
	return instruction + "\n\n" + text
}

// Truncate returns the first n characters of s, never splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
