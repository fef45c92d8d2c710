package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range []AIProvider{AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderVertex} {
		assert.True(t, p.IsValid(), p)
		assert.NotEqual(t, unknownDescription, p.Description())
	}
	assert.False(t, AIProvider("cohere").IsValid())
	assert.Equal(t, unknownDescription, AIProvider("cohere").Description())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderVertex.RequiresAPIKey())
	assert.False(t, AIProviderLocal.RequiresAPIKey())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		want     bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"local", EmbeddingSettings{Provider: AIProviderLocal}, true},
		{"ollama", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"anthropic cannot embed", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"vertex without project", EmbeddingSettings{Provider: AIProviderVertex}, false},
		{"vertex with project", EmbeddingSettings{Provider: AIProviderVertex, Project: "p"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderLocal}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderVertex}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderVertex, Project: "p"}.IsConfigured())
}

func TestChunkingSettings_Validate(t *testing.T) {
	assert.NoError(t, ChunkingSettings{Size: 1000, Overlap: 200}.Validate())
	assert.NoError(t, ChunkingSettings{Size: 10, Overlap: 0}.Validate())

	for _, c := range []ChunkingSettings{
		{Size: 0, Overlap: 0},
		{Size: 100, Overlap: -1},
		{Size: 100, Overlap: 100},
		{Size: 100, Overlap: 150},
	} {
		err := c.Validate()
		assert.True(t, errors.Is(err, ErrInvalidChunkConfig), "%+v", c)
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, 1000, s.Chunking.Size)
	assert.Equal(t, 200, s.Chunking.Overlap)
	assert.Equal(t, DefaultTopK, s.Retrieval.TopK)
	assert.Equal(t, AIProviderLocal, s.Embedding.Provider)
	assert.True(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, StorageDriverSQLite, s.Storage.Driver)
}

func TestAppSettings_Validate(t *testing.T) {
	s := DefaultAppSettings()
	s.Retrieval.TopK = 0
	assert.True(t, errors.Is(s.Validate(), ErrInvalidInput))

	s = DefaultAppSettings()
	s.Storage.Driver = "mongo"
	assert.True(t, errors.Is(s.Validate(), ErrUnsupportedType))

	s = DefaultAppSettings()
	s.Chunking.Overlap = s.Chunking.Size
	assert.True(t, errors.Is(s.Validate(), ErrInvalidChunkConfig))
}

func TestEmbeddingDimensions_DefaultModelsKnown(t *testing.T) {
	dims := EmbeddingDimensions()
	for provider, model := range DefaultEmbeddingModels() {
		assert.NotZero(t, dims[model], "provider %s model %s", provider, model)
	}
}
