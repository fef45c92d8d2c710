package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the generation service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates a provider rejected a call for exceeding its rate limit.
	ErrRateLimited = errors.New("rate limited")

	// Pipeline Errors.

	// ErrJobActive indicates a processing job is already running for the document.
	ErrJobActive = errors.New("processing job already active for document")

	// ErrInvalidTransition indicates a processing state change that the state machine forbids.
	ErrInvalidTransition = errors.New("invalid processing state transition")

	// ErrEmptyCandidateSet indicates a similarity search had nothing to search.
	// Retrieval treats it as "no matches", never as a failure.
	ErrEmptyCandidateSet = errors.New("empty candidate set")

	// Configuration Errors.

	// ErrInvalidChunkConfig indicates a chunk size and overlap that cannot make progress.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrDimensionMismatch indicates vectors of different lengths met in one search.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// Upstream Errors.
	// Match these with errors.Is against the typed errors below.

	// ErrExtraction marks failures of the text extraction stage.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding marks failures of the embedding provider.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration marks failures of the generation provider.
	ErrGeneration = errors.New("generation failed")
)

// ExtractionError reports that a document's text could not be turned into chunks.
type ExtractionError struct {
	DocumentID string
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract document %s: %v", e.DocumentID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// EmbeddingError reports an embedding provider failure: timeout, quota,
// transport error or malformed response.
type EmbeddingError struct {
	// Provider names the embedding backend, e.g. "openai".
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("embedding: %v", e.Err)
	}
	return fmt.Sprintf("embedding (%s): %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEmbedding.
func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// GenerationError reports a generation provider failure. It is terminal
// for the query that caused it.
type GenerationError struct {
	// Model is the model that was asked to generate.
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("generation: %v", e.Err)
	}
	return fmt.Sprintf("generation (%s): %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrGeneration.
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// NewEmbeddingError wraps err as an EmbeddingError unless it already is one.
func NewEmbeddingError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return err
	}
	return &EmbeddingError{Provider: provider, Err: err}
}

// NewGenerationError wraps err as a GenerationError unless it already is one.
func NewGenerationError(model string, err error) error {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &GenerationError{Model: model, Err: err}
}
