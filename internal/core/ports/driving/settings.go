package driving

import "github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"

// SettingsService reads and writes application settings.
type SettingsService interface {
	// Get returns the resolved and validated settings.
	Get() (*domain.Settings, error)

	// Set parses value according to the key type and stores it.
	Set(key, value string) error

	// Keys returns every recognised config key.
	Keys() []string
}
