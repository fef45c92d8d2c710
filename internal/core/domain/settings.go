package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the built-in feature-hashing embedder. It needs no network.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderVertex is Gemini on Google Cloud Vertex AI.
	AIProviderVertex AIProvider = "vertex"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderVertex:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
// Vertex authenticates with application default credentials instead.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs on this machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderLocal
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (feature hashing, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderVertex:
		return "Vertex AI Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Project is the Google Cloud project (for Vertex).
	Project string

	// Location is the Google Cloud region (for Vertex).
	Location string

	// Dimensions overrides the vector size. Zero uses the model's known size.
	Dimensions int

	// RequestsPerSecond caps calls to the provider. Zero disables the cap.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbedding() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	if e.Provider == AIProviderVertex && e.Project == "" {
		return false
	}
	return true
}

// SupportsEmbedding returns true if the provider can produce embeddings.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderLocal || p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderVertex
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Project is the Google Cloud project (for Vertex).
	Project string

	// Location is the Google Cloud region (for Vertex).
	Location string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	if l.Provider == AIProviderVertex && l.Project == "" {
		return false
	}
	return true
}

// GenerationSettings tunes the answer-generation call.
type GenerationSettings struct {
	// Temperature is passed to the model on every call.
	Temperature float64

	// MaxTokens caps the answer length. Zero leaves it to the provider.
	MaxTokens int
}

// ChunkingSettings controls how extracted text is split.
type ChunkingSettings struct {
	// Size is the window size in characters.
	Size int

	// Overlap is the number of characters consecutive windows share.
	Overlap int
}

// Validate rejects settings that would stall the chunker.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunkConfig, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			ErrInvalidChunkConfig, c.Overlap, c.Size)
	}
	return nil
}

// RetrievalSettings controls similarity search.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int
}

// StorageDriver names a record store backend.
type StorageDriver string

// Available storage drivers.
const (
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverMemory   StorageDriver = "memory"
)

// IsValid returns true if the driver is recognised.
func (d StorageDriver) IsValid() bool {
	switch d {
	case StorageDriverSQLite, StorageDriverPostgres, StorageDriverMemory:
		return true
	default:
		return false
	}
}

// StorageSettings selects the record store.
type StorageSettings struct {
	Driver StorageDriver

	// DSN is the data directory for sqlite or the connection string for postgres.
	DSN string
}

// PipelineSettings controls the background ingestion pipeline.
type PipelineSettings struct {
	// EmbedRetryAttempts is how many times a document's embedding pass is
	// retried while chunks remain unembedded.
	EmbedRetryAttempts int

	// EmbedRetryDelay is the base delay of the exponential retry backoff.
	EmbedRetryDelay time.Duration

	// EmbedSweepInterval is how often the scheduler looks for completed
	// documents with unembedded chunks. Zero disables the sweep.
	EmbedSweepInterval time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Generation GenerationSettings
	Chunking   ChunkingSettings
	Retrieval  RetrievalSettings
	Storage    StorageSettings
	Pipeline   PipelineSettings

	// WatchDir is the inbox directory watched for new text files.
	WatchDir string
}

// Validate checks settings that would otherwise fail deep inside the pipeline.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, s.Retrieval.TopK)
	}
	if s.Storage.Driver != "" && !s.Storage.Driver.IsValid() {
		return fmt.Errorf("%w: storage driver %q", ErrUnsupportedType, s.Storage.Driver)
	}
	return nil
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings default to the offline local provider so ingestion works
// without credentials. Generation is left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderLocal,
			Model:    DefaultEmbeddingModels()[AIProviderLocal],
		},
		LLM: LLMSettings{},
		Generation: GenerationSettings{
			Temperature: 0.7,
		},
		Chunking: ChunkingSettings{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
		Storage: StorageSettings{
			Driver: StorageDriverSQLite,
		},
		Pipeline: PipelineSettings{
			EmbedRetryAttempts: 3,
			EmbedRetryDelay:    2 * time.Second,
			EmbedSweepInterval: 10 * time.Minute,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderVertex,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderVertex,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hashing-768",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderVertex: "gemini-embedding-001",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderVertex:    "gemini-1.5-pro",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Local
		"hashing-768": 768,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Vertex AI models
		"gemini-embedding-001":            3072,
		"text-embedding-005":              768,
		"text-multilingual-embedding-002": 768,
	}
}
