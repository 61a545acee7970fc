package domain

import "time"

// Default pipeline settings.
const (
	DefaultPageCeiling       = 125
	DefaultLookbackPages     = 10
	DefaultSummaryChars      = 8000
	DefaultChunkSize         = 2000
	DefaultChunkOverlap      = 300
	DefaultConcurrency       = 4
	DefaultNamespace         = "default"
	DefaultTargetLag         = time.Minute
	DefaultRequestsPerSecond = 2.0
)

// DefaultSummaryInstruction precedes the document text in a summary prompt.
const DefaultSummaryInstruction = "Summarize the following document in 2-3 sentences. " +
	"Reply with the summary only."

// ParseMode selects how the parser extracts page text.
type ParseMode string

// Available parse modes.
const (
	// ParseModeOCR is fast plain-text extraction.
	ParseModeOCR ParseMode = "ocr"

	// ParseModeLayout preserves table and row structure.
	ParseModeLayout ParseMode = "layout"
)

// IsValid returns true if the parse mode is recognised.
func (m ParseMode) IsValid() bool {
	return m == ParseModeOCR || m == ParseModeLayout
}

// AIProvider identifies an AI service provider for extraction and summaries.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderAnthropic is the Anthropic API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	return p == AIProviderGemini || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// StoreSettings locates the durable document store.
type StoreSettings struct {
	// DataDir holds the database files.
	DataDir string `validate:"required"`

	// Namespace selects the database within DataDir.
	Namespace string `validate:"required,excludesall=/\\"`
}

// PipelineSettings tunes the enrichment stages.
type PipelineSettings struct {
	// Folder restricts which Documents a run touches.
	Folder string

	// PageCeiling is the largest page count sent to direct file extraction.
	PageCeiling int `validate:"min=1"`

	// LookbackPages is how many leading pages feed text-based extraction
	// and summaries.
	LookbackPages int `validate:"min=1"`

	// SummaryChars is the character budget for summary source text.
	SummaryChars int `validate:"min=1"`

	// Concurrency bounds parallel AI calls across Documents.
	Concurrency int `validate:"min=1,max=64"`
}

// ChunkerSettings tunes the splitter.
type ChunkerSettings struct {
	// Splitter is the registered splitter name.
	Splitter string `validate:"required"`

	// ChunkSize is the target segment size in characters.
	ChunkSize int `validate:"min=1"`

	// Overlap is the number of characters shared by consecutive segments.
	Overlap int `validate:"min=0,ltfield=ChunkSize"`
}

// AISettings configures the extraction and summarisation provider.
type AISettings struct {
	// Provider is the AI service provider.
	Provider AIProvider `validate:"oneof=gemini anthropic"`

	// Model is the model name; empty uses the provider default.
	Model string

	// APIKey authenticates with the provider.
	APIKey string

	// RequestsPerSecond throttles calls to the provider.
	RequestsPerSecond float64 `validate:"gt=0"`
}

// IsConfigured returns true if the provider is usable.
func (a AISettings) IsConfigured() bool {
	return a.Provider.IsValid() && a.APIKey != ""
}

// PublishSettings configures the index publisher.
type PublishSettings struct {
	// TargetLag bounds the delay between chunk regeneration and publication.
	TargetLag time.Duration `validate:"min=1s"`
}

// ScheduleSettings configures the serve loop.
type ScheduleSettings struct {
	// Pipeline is a cron spec for full pipeline runs; empty disables it.
	Pipeline string
}

// Settings is the complete application configuration.
type Settings struct {
	Store      StoreSettings
	StagingDir string    `validate:"required"`
	ParseMode  ParseMode `validate:"oneof=ocr layout"`
	Pipeline   PipelineSettings
	Chunker    ChunkerSettings
	AI         AISettings
	Publish    PublishSettings
	Schedule   ScheduleSettings
}

// DefaultSettings returns settings with every tunable at its default.
func DefaultSettings() Settings {
	return Settings{
		Store:     StoreSettings{Namespace: DefaultNamespace},
		ParseMode: ParseModeLayout,
		Pipeline: PipelineSettings{
			PageCeiling:   DefaultPageCeiling,
			LookbackPages: DefaultLookbackPages,
			SummaryChars:  DefaultSummaryChars,
			Concurrency:   DefaultConcurrency,
		},
		Chunker: ChunkerSettings{
			Splitter:  "markdown",
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultChunkOverlap,
		},
		AI: AISettings{
			Provider:          AIProviderGemini,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Publish: PublishSettings{TargetLag: DefaultTargetLag},
	}
}
