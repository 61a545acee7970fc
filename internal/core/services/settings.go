package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyDataDir           = "store.data_dir"
	KeyNamespace         = "store.namespace"
	KeyStagingDir        = "staging.dir"
	KeyFolderFilter      = "pipeline.folder_filter"
	KeyPageCeiling       = "pipeline.page_ceiling"
	KeyLookbackPages     = "pipeline.lookback_pages"
	KeySummaryChars      = "pipeline.summary_chars"
	KeyConcurrency       = "pipeline.concurrency"
	KeySplitter          = "chunker.splitter"
	KeyChunkSize         = "chunker.chunk_size"
	KeyOverlap           = "chunker.overlap"
	KeyParseMode         = "parse.mode"
	KeyAIProvider        = "ai.provider"
	KeyAIModel           = "ai.model"
	KeyAIAPIKey          = "ai.api_key"
	KeyRequestsPerSecond = "ai.requests_per_second"
	KeyTargetLag         = "publish.target_lag"
	KeySchedulePipeline  = "schedule.pipeline"
)

// EnvPrefix prefixes environment overrides, e.g. CORTEXDOCS_AI_API_KEY.
const EnvPrefix = "CORTEXDOCS_"

// keyKind is the value type stored under a config key.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindDuration
)

var settingKeys = map[string]keyKind{
	KeyDataDir:           kindString,
	KeyNamespace:         kindString,
	KeyStagingDir:        kindString,
	KeyFolderFilter:      kindString,
	KeyPageCeiling:       kindInt,
	KeyLookbackPages:     kindInt,
	KeySummaryChars:      kindInt,
	KeyConcurrency:       kindInt,
	KeySplitter:          kindString,
	KeyChunkSize:         kindInt,
	KeyOverlap:           kindInt,
	KeyParseMode:         kindString,
	KeyAIProvider:        kindString,
	KeyAIModel:           kindString,
	KeyAIAPIKey:          kindString,
	KeyRequestsPerSecond: kindFloat,
	KeyTargetLag:         kindDuration,
	KeySchedulePipeline:  kindString,
}

// SettingsService resolves application settings from the config store,
// environment overrides and defaults, in that order of precedence:
// environment, then config file, then defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	baseDir     string
	getenv      func(string) string
	validate    *validator.Validate
}

// NewSettingsService creates a settings service. baseDir anchors the
// default data and staging directories.
func NewSettingsService(configStore driven.ConfigStore, baseDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		baseDir:     baseDir,
		getenv:      os.Getenv,
		validate:    validator.New(),
	}
}

// SetEnv replaces the environment lookup. Useful for testing.
func (s *SettingsService) SetEnv(getenv func(string) string) {
	s.getenv = getenv
}

// Get returns the resolved and validated settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Store: domain.StoreSettings{
			DataDir:   s.getString(KeyDataDir, filepath.Join(s.baseDir, "data")),
			Namespace: s.getString(KeyNamespace, d.Store.Namespace),
		},
		StagingDir: s.getString(KeyStagingDir, filepath.Join(s.baseDir, "staging")),
		ParseMode:  domain.ParseMode(s.getString(KeyParseMode, string(d.ParseMode))),
		Pipeline: domain.PipelineSettings{
			Folder:        s.getString(KeyFolderFilter, ""),
			PageCeiling:   s.getInt(KeyPageCeiling, d.Pipeline.PageCeiling),
			LookbackPages: s.getInt(KeyLookbackPages, d.Pipeline.LookbackPages),
			SummaryChars:  s.getInt(KeySummaryChars, d.Pipeline.SummaryChars),
			Concurrency:   s.getInt(KeyConcurrency, d.Pipeline.Concurrency),
		},
		Chunker: domain.ChunkerSettings{
			Splitter:  s.getString(KeySplitter, d.Chunker.Splitter),
			ChunkSize: s.getInt(KeyChunkSize, d.Chunker.ChunkSize),
			Overlap:   s.getInt(KeyOverlap, d.Chunker.Overlap),
		},
		AI: domain.AISettings{
			Provider:          domain.AIProvider(s.getString(KeyAIProvider, d.AI.Provider.String())),
			Model:             s.getString(KeyAIModel, ""),
			RequestsPerSecond: s.getFloat(KeyRequestsPerSecond, d.AI.RequestsPerSecond),
		},
		Schedule: domain.ScheduleSettings{
			Pipeline: s.getString(KeySchedulePipeline, ""),
		},
	}
	settings.AI.APIKey = s.apiKey(settings.AI.Provider)

	lag, err := s.getDuration(KeyTargetLag, d.Publish.TargetLag)
	if err != nil {
		return nil, err
	}
	settings.Publish.TargetLag = lag

	if err := s.Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks settings against their constraints.
func (s *SettingsService) Validate(settings *domain.Settings) error {
	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	if c := settings.Chunker; c.Overlap >= c.ChunkSize/2 {
		return fmt.Errorf("%w: %s %d must be less than half of %s %d",
			domain.ErrInvalidConfig, KeyOverlap, c.Overlap, KeyChunkSize, c.ChunkSize)
	}
	filter := domain.DocumentFilter{Folder: settings.Pipeline.Folder}
	if err := filter.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, KeyFolderFilter, err)
	}
	return nil
}

// Set parses value according to the key type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidConfig, key)
	}
	var v any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidConfig, key)
		}
		v = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidConfig, key)
		}
		v = f
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration", domain.ErrInvalidConfig, key)
		}
		v = value
	default:
		v = value
	}
	return s.configStore.Set(key, v)
}

// Keys returns every recognised config key.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// envKey maps a dot key to its environment variable name.
func envKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (s *SettingsService) raw(key string) (string, bool) {
	if v := s.getenv(envKey(key)); v != "" {
		return v, true
	}
	if val, ok := s.configStore.Get(key); ok {
		switch v := val.(type) {
		case string:
			return v, v != ""
		default:
			return fmt.Sprint(v), true
		}
	}
	return "", false
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.raw(key); ok {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.raw(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.raw(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v, ok := s.raw(key)
	if !ok {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err)
	}
	return d, nil
}

// apiKey resolves the provider key, falling back to the provider's
// conventional environment variable.
func (s *SettingsService) apiKey(provider domain.AIProvider) string {
	if v, ok := s.raw(KeyAIAPIKey); ok {
		return v
	}
	switch provider {
	case domain.AIProviderGemini:
		return s.getenv("GEMINI_API_KEY")
	case domain.AIProviderAnthropic:
		return s.getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
