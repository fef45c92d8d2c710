package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the current settings, with defaults for anything unset.
	Get() (*domain.AppSettings, error)

	// Save persists the given settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider. An empty model
	// selects the provider default.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the generation provider. An empty model
	// selects the provider default.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks the stored settings.
	Validate() error
}
