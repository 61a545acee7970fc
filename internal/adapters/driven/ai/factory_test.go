package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/anthropic"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/gemini"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
		assert.False(t, result.Enabled())
	})

	t.Run("nil result", func(t *testing.T) {
		var result *InitResult
		result.Close()
		assert.False(t, result.Enabled())
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		settings     *domain.AISettings
		wantEnabled  bool
		wantWarnings bool
		wantErr      bool
		wantModel    string
	}{
		{
			name:         "nil settings disables AI",
			settings:     nil,
			wantWarnings: true,
		},
		{
			name:         "missing API key disables AI",
			settings:     &domain.AISettings{Provider: domain.AIProviderGemini},
			wantWarnings: true,
		},
		{
			name: "gemini provider creates client",
			settings: &domain.AISettings{
				Provider:          domain.AIProviderGemini,
				APIKey:            "test-key",
				RequestsPerSecond: 2,
			},
			wantEnabled: true,
			wantModel:   gemini.DefaultModel,
		},
		{
			name: "anthropic provider creates client",
			settings: &domain.AISettings{
				Provider:          domain.AIProviderAnthropic,
				APIKey:            "test-key",
				Model:             "claude-custom",
				RequestsPerSecond: 1,
			},
			wantEnabled: true,
			wantModel:   "claude-custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New(context.Background(), tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer result.Close()

			assert.Equal(t, tt.wantEnabled, result.Enabled())
			assert.Equal(t, tt.wantWarnings, len(result.Warnings) > 0)
			if tt.wantEnabled {
				require.NotNil(t, result.Summariser)
				require.NotNil(t, result.Limiter)
				assert.Equal(t, tt.wantModel, result.Extractor.ModelName())
				assert.Equal(t, tt.wantModel, result.Summariser.ModelName())
			}
		})
	}
}

func TestCreate_SharesLimiter(t *testing.T) {
	result, err := New(context.Background(), &domain.AISettings{
		Provider:          domain.AIProviderAnthropic,
		APIKey:            "test-key",
		RequestsPerSecond: 1,
	})
	require.NoError(t, err)

	c, ok := result.Extractor.(*anthropic.Client)
	require.True(t, ok)
	assert.Same(t, result.Summariser, c)
}

func TestCreate_UnsupportedProvider(t *testing.T) {
	_, err := create(context.Background(), &domain.AISettings{Provider: "ollama", APIKey: "k"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported AI provider")
}

func TestValidateConfig_Unconfigured(t *testing.T) {
	err := ValidateConfig(context.Background(), &domain.AISettings{Provider: domain.AIProviderGemini})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
