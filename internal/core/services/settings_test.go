package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("embedding.requests_per_second", 3)
	_ = store.Set("llm.provider", "vertex")
	_ = store.Set("llm.project", "my-project")
	_ = store.Set("generation.temperature", 0.0)
	_ = store.Set("chunking.size", 500)
	_ = store.Set("chunking.overlap", 50)
	_ = store.Set("retrieval.top_k", 8)
	_ = store.Set("storage.driver", "postgres")
	_ = store.Set("storage.dsn", "postgres://localhost/docqa")
	_ = store.Set("pipeline.embed_retry_delay", "500ms")
	_ = store.Set("pipeline.embed_sweep_interval", "0s")
	_ = store.Set("watch.dir", "/inbox")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.InDelta(t, 3.0, settings.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.AIProviderVertex, settings.LLM.Provider)
	assert.Equal(t, "gemini-1.5-pro", settings.LLM.Model)
	assert.Equal(t, "my-project", settings.LLM.Project)
	assert.Zero(t, settings.Generation.Temperature, "explicit zero temperature is kept")
	assert.Equal(t, domain.ChunkingSettings{Size: 500, Overlap: 50}, settings.Chunking)
	assert.Equal(t, 8, settings.Retrieval.TopK)
	assert.Equal(t, domain.StorageDriverPostgres, settings.Storage.Driver)
	assert.Equal(t, "postgres://localhost/docqa", settings.Storage.DSN)
	assert.Equal(t, 500*time.Millisecond, settings.Pipeline.EmbedRetryDelay)
	assert.Zero(t, settings.Pipeline.EmbedSweepInterval)
	assert.Equal(t, "/inbox", settings.WatchDir)
}

func TestSettingsService_Get_VertexEmbeddingProject(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "vertex")
	_ = store.Set("llm.provider", "vertex")
	_ = store.Set("llm.project", "shared-project")
	_ = store.Set("llm.location", "europe-west4")

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, "shared-project", settings.Embedding.Project)
	assert.Equal(t, "europe-west4", settings.Embedding.Location)
	assert.True(t, settings.Embedding.IsConfigured())

	_ = store.Set("embedding.project", "embeddings-project")
	settings, err = NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, "embeddings-project", settings.Embedding.Project)
	assert.Equal(t, "shared-project", settings.LLM.Project)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("storage.driver", "mongodb")
	_ = store.Set("pipeline.embed_retry_delay", "soon")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Storage.Driver, settings.Storage.Driver)
	assert.Equal(t, defaults.Pipeline.EmbedRetryDelay, settings.Pipeline.EmbedRetryDelay)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderAnthropic, Model: "claude", APIKey: "key"}
	settings.Chunking = domain.ChunkingSettings{Size: 800, Overlap: 100}
	settings.Pipeline.EmbedSweepInterval = time.Hour
	require.NoError(t, service.Save(&settings))

	loaded, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
	assert.Equal(t, "1h0m0s", store.GetString("pipeline.embed_sweep_interval"))
}

func TestSettingsService_Save_KeepsExistingAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.api_key", "hand-written")
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "hand-written", store.GetString("llm.api_key"))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantErr   bool
		wantModel string
		wantURL   string
	}{
		{name: "ollama default model", provider: domain.AIProviderOllama, wantModel: "nomic-embed-text", wantURL: "http://localhost:11434"},
		{name: "openai with key", provider: domain.AIProviderOpenAI, model: "text-embedding-3-large", apiKey: "sk", wantModel: "text-embedding-3-large"},
		{name: "local", provider: domain.AIProviderLocal, wantModel: "hashing-768"},
		{name: "openai without key", provider: domain.AIProviderOpenAI, wantErr: true},
		{name: "anthropic cannot embed", provider: domain.AIProviderAnthropic, apiKey: "k", wantErr: true},
		{name: "unknown provider", provider: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set("embedding.dimensions", 64)
			service := NewSettingsService(store)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.Zero(t, settings.Embedding.Dimensions)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	require.NoError(t, service.SetLLMProvider(domain.AIProviderVertex, "", ""))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderVertex, settings.LLM.Provider)
	assert.Equal(t, "gemini-1.5-pro", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProviderLocal, "", ""))
	assert.Error(t, service.SetLLMProvider("invalid", "", ""))
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, NewSettingsService(memory.NewConfigStore()).Validate())
	})

	t.Run("bad chunking", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("chunking.overlap", 1000)

		err := NewSettingsService(store).Validate()

		assert.True(t, errors.Is(err, domain.ErrInvalidChunkConfig))
	})

	t.Run("embedding provider missing key", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("embedding.provider", "openai")

		err := NewSettingsService(store).Validate()

		assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
	})
}
