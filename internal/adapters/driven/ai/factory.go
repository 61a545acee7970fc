// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/anthropic"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/gemini"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/ratelimit"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// client is what every provider adapter offers.
type client interface {
	driven.Extractor
	driven.Summariser
}

// pinger is implemented by providers that can validate credentials
// without running inference.
type pinger interface {
	Ping(ctx context.Context) error
}

// InitResult contains the result of AI service initialisation.
// Extractor and Summariser share one client and one rate limiter, so
// concurrent stages draw on the same provider quota.
type InitResult struct {
	Extractor  driven.Extractor
	Summariser driven.Summariser
	Limiter    *ratelimit.Limiter
	Warnings   []string // Non-fatal issues that disabled AI stages.
}

// Enabled returns true if AI stages can run.
func (r *InitResult) Enabled() bool {
	return r != nil && r.Extractor != nil
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r == nil || r.Extractor == nil {
		return
	}
	r.Extractor.Close()
}

// New creates the configured provider. An unconfigured provider yields an
// empty result with a warning, leaving the AI stages unavailable.
func New(ctx context.Context, settings *domain.AISettings) (*InitResult, error) {
	if settings == nil || !settings.IsConfigured() {
		return &InitResult{
			Warnings: []string{"AI provider not configured; metadata, summary and signature stages are unavailable"},
		}, nil
	}

	limiter := ratelimit.New(settings.RequestsPerSecond)
	c, err := create(ctx, settings, limiter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractorUnavailable, err)
	}

	return &InitResult{
		Extractor:  c,
		Summariser: c,
		Limiter:    limiter,
	}, nil
}

// ValidateConfig creates the configured provider and checks connectivity
// where the provider supports it.
func ValidateConfig(ctx context.Context, settings *domain.AISettings) error {
	if settings == nil || !settings.IsConfigured() {
		return fmt.Errorf("%w: provider and API key are required", domain.ErrInvalidConfig)
	}

	c, err := create(ctx, settings, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	p, ok := c.(pinger)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrExtractorUnavailable, err)
	}
	return nil
}

// create builds the adapter for the configured provider.
func create(ctx context.Context, settings *domain.AISettings, limiter *ratelimit.Limiter) (client, error) {
	switch settings.Provider {
	case domain.AIProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			Limiter: limiter,
		})

	case domain.AIProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			Limiter: limiter,
		})

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", settings.Provider)
	}
}
