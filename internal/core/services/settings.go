package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedProject    = "embedding.project"
	keyEmbedLocation   = "embedding.location"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMProject      = "llm.project"
	keyLLMLocation     = "llm.location"
	keyTemperature     = "generation.temperature"
	keyMaxTokens       = "generation.max_tokens"
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyTopK            = "retrieval.top_k"
	keyStorageDriver   = "storage.driver"
	keyStorageDSN      = "storage.dsn"
	keyRetryAttempts   = "pipeline.embed_retry_attempts"
	keyRetryDelay      = "pipeline.embed_retry_delay"
	keySweepInterval   = "pipeline.embed_sweep_interval"
	keyWatchDir        = "watch.dir"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Invalid stored values are replaced by defaults rather than reported.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Project:           s.configStore.GetString(keyEmbedProject),
			Location:          s.configStore.GetString(keyEmbedLocation),
			Dimensions:        s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
			Project:  s.configStore.GetString(keyLLMProject),
			Location: s.configStore.GetString(keyLLMLocation),
		},
		Generation: domain.GenerationSettings{
			Temperature: s.getFloat(keyTemperature, defaults.Generation.Temperature),
			MaxTokens:   s.getInt(keyMaxTokens, defaults.Generation.MaxTokens),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyTopK, defaults.Retrieval.TopK),
		},
		Storage: domain.StorageSettings{
			Driver: s.getStorageDriver(defaults.Storage.Driver),
			DSN:    s.configStore.GetString(keyStorageDSN),
		},
		Pipeline: domain.PipelineSettings{
			EmbedRetryAttempts: s.getInt(keyRetryAttempts, defaults.Pipeline.EmbedRetryAttempts),
			EmbedRetryDelay:    s.getDuration(keyRetryDelay, defaults.Pipeline.EmbedRetryDelay),
			EmbedSweepInterval: s.getDuration(keySweepInterval, defaults.Pipeline.EmbedSweepInterval),
		},
		WatchDir: s.configStore.GetString(keyWatchDir),
	}

	// Vertex embeddings share the generation project unless set apart.
	if settings.Embedding.Project == "" {
		settings.Embedding.Project = settings.LLM.Project
	}
	if settings.Embedding.Location == "" {
		settings.Embedding.Location = settings.LLM.Location
	}

	// An unset model resolves to the provider default.
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	return settings, nil
}

// Save persists application settings. Empty API keys are not written so
// a key set by hand survives a save from another command.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyEmbedProvider:   settings.Embedding.Provider.String(),
		keyEmbedModel:      settings.Embedding.Model,
		keyEmbedBaseURL:    settings.Embedding.BaseURL,
		keyEmbedProject:    settings.Embedding.Project,
		keyEmbedLocation:   settings.Embedding.Location,
		keyEmbedDimensions: settings.Embedding.Dimensions,
		keyEmbedRPS:        settings.Embedding.RequestsPerSecond,
		keyLLMProvider:     settings.LLM.Provider.String(),
		keyLLMModel:        settings.LLM.Model,
		keyLLMBaseURL:      settings.LLM.BaseURL,
		keyLLMProject:      settings.LLM.Project,
		keyLLMLocation:     settings.LLM.Location,
		keyTemperature:     settings.Generation.Temperature,
		keyMaxTokens:       settings.Generation.MaxTokens,
		keyChunkSize:       settings.Chunking.Size,
		keyChunkOverlap:    settings.Chunking.Overlap,
		keyTopK:            settings.Retrieval.TopK,
		keyStorageDriver:   string(settings.Storage.Driver),
		keyStorageDSN:      settings.Storage.DSN,
		keyRetryAttempts:   settings.Pipeline.EmbedRetryAttempts,
		keyRetryDelay:      settings.Pipeline.EmbedRetryDelay.String(),
		keySweepInterval:   settings.Pipeline.EmbedSweepInterval.String(),
		keyWatchDir:        settings.WatchDir,
	}
	if settings.Embedding.APIKey != "" {
		values[keyEmbedAPIKey] = settings.Embedding.APIKey
	}
	if settings.LLM.APIKey != "" {
		values[keyLLMAPIKey] = settings.LLM.APIKey
	}

	if err := s.configStore.SetAll(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbedding() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = defaultBaseURL(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey
	// Dimensions follow the model; a stale override would break every search.
	settings.Embedding.Dimensions = 0

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() || provider == domain.AIProviderLocal {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = defaultBaseURL(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the stored settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not fully configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	return nil
}

// defaultBaseURL keeps a custom endpoint for Ollama and clears it for cloud providers.
func defaultBaseURL(provider domain.AIProvider, current string) string {
	if provider != domain.AIProviderOllama {
		return ""
	}
	if current == "" {
		return "http://localhost:11434"
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getStorageDriver(defaultVal domain.StorageDriver) domain.StorageDriver {
	driver := domain.StorageDriver(s.configStore.GetString(keyStorageDriver))
	if !driver.IsValid() {
		return defaultVal
	}
	return driver
}
